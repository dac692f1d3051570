package plants

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMissingColumn reports a required attribute absent from a feature.
	ErrMissingColumn = errors.New("missing column")
	// ErrInvalid reports a value that cannot be a plant attribute.
	ErrInvalid = errors.New("invalid plant record")
)

// required attribute columns
const (
	ColCountry  = "country"
	ColSource   = "RE_source"
	ColCapacity = "g_cap_mw"
	ColElec     = "stat_ele"
	ColInfra    = "stat_inf"
)

var nameColumns = []string{"HPP_name", "name", "Name"}

type feature struct {
	ID         json.RawMessage            `json:"id"`
	Geometry   json.RawMessage            `json:"geometry"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// Decode reads a GeoJSON FeatureCollection of Point features.
func Decode(r io.Reader) (Table, error) {
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode plants: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: expected FeatureCollection, got %q", ErrInvalid, fc.Type)
	}

	out := make(Table, 0, len(fc.Features))
	for i, raw := range fc.Features {
		var f feature
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		p, err := f.plant()
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (f feature) plant() (Plant, error) {
	var p Plant
	var err error
	p.ID = canonicalID(f.ID)
	if p.Lon, p.Lat, err = point(f.Geometry); err != nil {
		return p, err
	}

	var country, src, elec, infra string
	for _, c := range []struct {
		col string
		dst *string
	}{{ColCountry, &country}, {ColSource, &src}, {ColElec, &elec}, {ColInfra, &infra}} {
		raw, ok := f.Properties[c.col]
		if !ok {
			return p, fmt.Errorf("%w %q", ErrMissingColumn, c.col)
		}
		if *c.dst, err = str(raw); err != nil {
			return p, fmt.Errorf("%w: %s: %v", ErrInvalid, c.col, err)
		}
	}
	p.Country = country
	p.Source = Source(src)
	p.ElecStatus = ElecStatus(elec)
	p.InfraStatus = InfraStatus(infra)

	raw, ok := f.Properties[ColCapacity]
	if !ok {
		return p, fmt.Errorf("%w %q", ErrMissingColumn, ColCapacity)
	}
	if p.CapacityMW, err = number(raw); err != nil {
		return p, fmt.Errorf("%w: %s: %v", ErrInvalid, ColCapacity, err)
	}
	if p.CapacityMW < 0 || math.IsInf(p.CapacityMW, 0) {
		return p, fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalid, ColCapacity, p.CapacityMW)
	}

	for _, col := range nameColumns {
		if raw, ok := f.Properties[col]; ok {
			if s, err := str(raw); err == nil && s != "" {
				p.Name = s
				break
			}
		}
	}
	return p, nil
}

func point(raw json.RawMessage) (lon, lat float64, err error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, 0, fmt.Errorf("%w: feature has no geometry", ErrInvalid)
	}
	var g struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &g); err != nil {
		return 0, 0, fmt.Errorf("%w: geometry: %v", ErrInvalid, err)
	}
	if g.Type != "Point" || len(g.Coordinates) < 2 {
		return 0, 0, fmt.Errorf("%w: geometry must be a Point, got %s", ErrInvalid, g.Type)
	}
	return g.Coordinates[0], g.Coordinates[1], nil
}

// canonicalID renders string and numeric feature ids alike.
func canonicalID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

// str accepts JSON strings and null (empty).
func str(raw json.RawMessage) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("want string, got %s", raw)
	}
	return strings.TrimSpace(s), nil
}

// number accepts JSON numbers, numeric strings and null (zero, like a NaN
// that sums to nothing).
func number(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("want number, got %s", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("want number, got %q", s)
	}
	return f, nil
}

// Encode writes t as a GeoJSON FeatureCollection.
func Encode(w io.Writer, t Table) error {
	type geometry struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}
	type feat struct {
		Type       string   `json:"type"`
		ID         string   `json:"id,omitempty"`
		Geometry   geometry `json:"geometry"`
		Properties Plant    `json:"properties"`
	}
	fc := struct {
		Type     string `json:"type"`
		Features []feat `json:"features"`
	}{Type: "FeatureCollection", Features: make([]feat, 0, len(t))}
	for _, p := range t {
		fc.Features = append(fc.Features, feat{
			Type:       "Feature",
			ID:         p.ID,
			Geometry:   geometry{Type: "Point", Coordinates: [2]float64{p.Lon, p.Lat}},
			Properties: p,
		})
	}
	return json.NewEncoder(w).Encode(fc)
}
