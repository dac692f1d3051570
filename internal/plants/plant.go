// Package plants models renewable power-plant records and loads them from
// GeoJSON files or a WFS layer.
package plants

import (
	"sort"
	"strings"

	"github.com/ctessum/geom"
)

// Source is the energy source column (RE_source).
type Source string

const (
	Solar Source = "Solar power"
	Wind  Source = "Wind power"
	Hydro Source = "Hydro power"
)

// Sources lists the three sources in display order.
var Sources = []Source{Solar, Wind, Hydro}

// ParseSource accepts a source either in full ("Solar power") or by its
// first word ("solar"), case-insensitively.
func ParseSource(s string) (Source, bool) {
	for _, src := range Sources {
		if strings.EqualFold(s, string(src)) || strings.EqualFold(s+" power", string(src)) {
			return src, true
		}
	}
	return "", false
}

// ElecStatus is the electricity-generation status (stat_ele).
type ElecStatus string

const (
	Operating         ElecStatus = "O"
	NotOperating      ElecStatus = "NO"
	UnderConstruction ElecStatus = "U"
	Proposed          ElecStatus = "P"
)

func (s ElecStatus) Label() string {
	switch s {
	case Operating:
		return "Operating"
	case NotOperating:
		return "Not operating"
	case UnderConstruction:
		return "Under construction"
	case Proposed:
		return "Proposed"
	}
	return string(s)
}

// InfraStatus is the infrastructure status (stat_inf). It is independent of
// ElecStatus: an existing plant need not be generating.
type InfraStatus string

const (
	Existing               InfraStatus = "E"
	InfraUnderConstruction InfraStatus = "U"
	InfraProposed          InfraStatus = "P"
)

func (s InfraStatus) Label() string {
	switch s {
	case Existing:
		return "Existing"
	case InfraUnderConstruction:
		return "Under construction"
	case InfraProposed:
		return "Proposed"
	}
	return string(s)
}

type Plant struct {
	ID          string      `json:"id,omitempty"`
	Name        string      `json:"name,omitempty"`
	Country     string      `json:"country"`
	Source      Source      `json:"RE_source"`
	CapacityMW  float64     `json:"g_cap_mw"`
	ElecStatus  ElecStatus  `json:"stat_ele"`
	InfraStatus InfraStatus `json:"stat_inf"`
	Lon         float64     `json:"-"`
	Lat         float64     `json:"-"`
}

func (p Plant) Point() geom.Point { return geom.Point{X: p.Lon, Y: p.Lat} }

// Table is an in-memory plant table. Operations return new tables and never
// modify the receiver.
type Table []Plant

func (t Table) Filter(keep func(Plant) bool) Table {
	out := make(Table, 0, len(t))
	for _, p := range t {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// InCountries keeps plants whose country is in the list; an empty list keeps all.
func (t Table) InCountries(countries []string) Table {
	if len(countries) == 0 {
		return append(Table(nil), t...)
	}
	set := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		set[c] = struct{}{}
	}
	return t.Filter(func(p Plant) bool {
		_, ok := set[p.Country]
		return ok
	})
}

// Countries lists the distinct countries, sorted.
func (t Table) Countries() []string {
	seen := map[string]struct{}{}
	for _, p := range t {
		seen[p.Country] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Bounds is the bounding box of all plant locations, nil for an empty table.
func (t Table) Bounds() *geom.Bounds {
	if len(t) == 0 {
		return nil
	}
	b := geom.NewBounds()
	for _, p := range t {
		b.Extend(p.Point().Bounds())
	}
	return b
}

// Center is the mean plant position.
func (t Table) Center() (lon, lat float64, ok bool) {
	if len(t) == 0 {
		return 0, 0, false
	}
	for _, p := range t {
		lon += p.Lon
		lat += p.Lat
	}
	n := float64(len(t))
	return lon / n, lat / n, true
}
