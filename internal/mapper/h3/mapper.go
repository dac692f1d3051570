package h3mapper

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/repp-atlas/internal/mapper"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

// CellForPoint returns the cell containing lon/lat (degrees) at res.
func (m *Mapper) CellForPoint(lon, lat float64, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", fmt.Errorf("coordinate out of range: lon=%v lat=%v", lon, lat)
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return c.String(), nil
}

// Boundary returns the cell outline as a closed [lon,lat] ring.
func (m *Mapper) Boundary(cell string) ([][2]float64, error) {
	c, err := parse(cell)
	if err != nil {
		return nil, err
	}
	b, err := c.Boundary()
	if err != nil {
		return nil, fmt.Errorf("h3 boundary: %w", err)
	}
	ring := make([][2]float64, 0, len(b)+1)
	for _, ll := range b {
		ring = append(ring, [2]float64{ll.Lng, ll.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// --- helpers ---

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

func parse(cell string) (h3.Cell, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return 0, fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid h3 cell %q", cell)
	}
	return c, nil
}
