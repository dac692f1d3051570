package capacity

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/mohammed-shakir/repp-atlas/internal/mapper"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
)

// Cell is the capacity summed over the plants inside one H3 cell.
type Cell struct {
	ID         string
	Res        int
	CapacityMW float64
	Plants     int
	Boundary   [][2]float64
}

// Binner sums capacity per H3 cell.
type Binner struct {
	Mapper mapper.Interface
	Res    int
}

// ByCell bins t at b.Res. Cells are sorted by id.
func (b Binner) ByCell(t plants.Table) ([]Cell, error) {
	acc := map[string]*Cell{}
	for i, p := range t {
		id, err := b.Mapper.CellForPoint(p.Lon, p.Lat, b.Res)
		if err != nil {
			return nil, fmt.Errorf("plant %d (%s): %w", i, p.Name, err)
		}
		c, ok := acc[id]
		if !ok {
			c = &Cell{ID: id, Res: b.Res}
			acc[id] = c
		}
		c.CapacityMW += p.CapacityMW
		c.Plants++
	}
	return b.finish(acc)
}

// RollUp merges cells into their parents at res.
func (b Binner) RollUp(cells []Cell, res int) ([]Cell, error) {
	acc := map[string]*Cell{}
	for _, c := range cells {
		id, err := b.Mapper.ToParent(c.ID, res)
		if err != nil {
			return nil, err
		}
		p, ok := acc[id]
		if !ok {
			p = &Cell{ID: id, Res: res}
			acc[id] = p
		}
		p.CapacityMW += c.CapacityMW
		p.Plants += c.Plants
	}
	return b.finish(acc)
}

func (b Binner) finish(acc map[string]*Cell) ([]Cell, error) {
	out := make([]Cell, 0, len(acc))
	for _, c := range acc {
		ring, err := b.Mapper.Boundary(c.ID)
		if err != nil {
			return nil, err
		}
		c.Boundary = ring
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WriteCellsGeoJSON writes cells as Polygon features.
func WriteCellsGeoJSON(w io.Writer, cells []Cell) error {
	type props struct {
		Cell       string  `json:"h3"`
		Res        int     `json:"res"`
		CapacityMW float64 `json:"capacity_mw"`
		Plants     int     `json:"plants"`
	}
	type feature struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string         `json:"type"`
			Coordinates [][][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties props `json:"properties"`
	}
	fc := struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}{Type: "FeatureCollection", Features: make([]feature, 0, len(cells))}
	for _, c := range cells {
		var f feature
		f.Type = "Feature"
		f.Geometry.Type = "Polygon"
		f.Geometry.Coordinates = [][][2]float64{c.Boundary}
		f.Properties = props{Cell: c.ID, Res: c.Res, CapacityMW: c.CapacityMW, Plants: c.Plants}
		fc.Features = append(fc.Features, f)
	}
	return json.NewEncoder(w).Encode(fc)
}
