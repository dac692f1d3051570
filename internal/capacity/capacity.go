// Package capacity filters and aggregates power-plant capacity. Every
// function here is pure: tables go in, new values come out.
package capacity

import (
	"errors"
	"sort"

	"github.com/mohammed-shakir/repp-atlas/internal/plants"
)

// ErrNoData reports a selection with no plants in it.
var ErrNoData = errors.New("no data available")

// ICPAC is the default country allow-list.
var ICPAC = []string{
	"Burundi", "Djibouti", "Eritrea", "Ethiopia", "Kenya", "Rwanda",
	"Somalia", "South Sudan", "Sudan", "Tanzania", "Uganda",
}

// StatusPredicate selects plants by generation status.
type StatusPredicate func(plants.Plant) bool

func Operating(p plants.Plant) bool { return p.ElecStatus == plants.Operating }

// Planned covers plants under construction or proposed.
func Planned(p plants.Plant) bool {
	return p.ElecStatus == plants.UnderConstruction || p.ElecStatus == plants.Proposed
}

func AnyStatus(plants.Plant) bool { return true }

func StatusIn(statuses ...plants.ElecStatus) StatusPredicate {
	set := make(map[plants.ElecStatus]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return func(p plants.Plant) bool {
		_, ok := set[p.ElecStatus]
		return ok
	}
}

type GroupBy int

const (
	ByCountrySource GroupBy = iota
	BySource
	ByCountry
)

// Key identifies an aggregate. Fields not part of the grouping are empty.
type Key struct {
	Country string        `json:"country,omitempty"`
	Source  plants.Source `json:"source,omitempty"`
}

// Totals maps group keys to summed capacity in MW.
type Totals map[Key]float64

// Aggregate restricts t to countries (all when empty) and to plants matching
// pred, then sums capacity per group. Groups with no matching plant are absent.
func Aggregate(t plants.Table, countries []string, pred StatusPredicate, by GroupBy) Totals {
	if pred == nil {
		pred = AnyStatus
	}
	out := Totals{}
	for _, p := range t.InCountries(countries) {
		if !pred(p) {
			continue
		}
		var k Key
		switch by {
		case BySource:
			k.Source = p.Source
		case ByCountry:
			k.Country = p.Country
		default:
			k = Key{Country: p.Country, Source: p.Source}
		}
		out[k] += p.CapacityMW
	}
	return out
}

func (t Totals) Sum() float64 {
	var s float64
	for _, v := range t {
		s += v
	}
	return s
}

// Keys returns the keys ordered by country then source.
func (t Totals) Keys() []Key {
	keys := make([]Key, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Country != keys[j].Country {
			return keys[i].Country < keys[j].Country
		}
		return keys[i].Source < keys[j].Source
	})
	return keys
}

// Row is one entry of a Totals listing.
type Row struct {
	Key
	CapacityMW float64 `json:"capacity_mw"`
}

func (t Totals) Rows() []Row {
	rows := make([]Row, 0, len(t))
	for _, k := range t.Keys() {
		rows = append(rows, Row{Key: k, CapacityMW: t[k]})
	}
	return rows
}

// Pivot is a country by source matrix; absent combinations are zero.
type Pivot struct {
	Countries []string
	Sources   []plants.Source
	Values    [][]float64 // [country][source]
}

// PivotBySource lays out country/source totals with the standard source order.
func PivotBySource(t Totals) Pivot {
	seen := map[string]struct{}{}
	for k := range t {
		seen[k.Country] = struct{}{}
	}
	p := Pivot{Sources: plants.Sources}
	for c := range seen {
		p.Countries = append(p.Countries, c)
	}
	sort.Strings(p.Countries)
	p.Values = make([][]float64, len(p.Countries))
	for i, c := range p.Countries {
		p.Values[i] = make([]float64, len(p.Sources))
		for j, s := range p.Sources {
			p.Values[i][j] = t[Key{Country: c, Source: s}]
		}
	}
	return p
}

// RowTotal is the summed capacity of country i.
func (p Pivot) RowTotal(i int) float64 {
	var s float64
	for _, v := range p.Values[i] {
		s += v
	}
	return s
}

// Comparison is operating against planned capacity for one source.
type Comparison struct {
	Source    plants.Source `json:"source"`
	Operating float64       `json:"operating_mw"`
	Planned   float64       `json:"planned_mw"`
}

// Compare totals operating and planned capacity per source over the allow-list.
// Every source appears, with zero where it has no plants.
func Compare(t plants.Table, countries []string) []Comparison {
	op := Aggregate(t, countries, Operating, BySource)
	pl := Aggregate(t, countries, Planned, BySource)
	out := make([]Comparison, 0, len(plants.Sources))
	for _, s := range plants.Sources {
		out = append(out, Comparison{
			Source:    s,
			Operating: op[Key{Source: s}],
			Planned:   pl[Key{Source: s}],
		})
	}
	return out
}

// Listing selects the plants of one country and source matching pred,
// largest capacity first. Ties keep their input order.
func Listing(t plants.Table, country string, source plants.Source, pred StatusPredicate) plants.Table {
	if pred == nil {
		pred = AnyStatus
	}
	out := t.Filter(func(p plants.Plant) bool {
		return p.Country == country && (source == "" || p.Source == source) && pred(p)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CapacityMW > out[j].CapacityMW })
	return out
}

// ParseStatus maps a status name to a predicate.
func ParseStatus(s string) (StatusPredicate, bool) {
	switch s {
	case "operating", "O":
		return Operating, true
	case "planned":
		return Planned, true
	case "", "all", "any":
		return AnyStatus, true
	case "NO", "U", "P":
		return StatusIn(plants.ElecStatus(s)), true
	}
	return nil, false
}
