// Package mapper converts between geographic coordinates and H3 cells.
package mapper

type Interface interface {
	CellForPoint(lon, lat float64, res int) (string, error)
	Boundary(cell string) ([][2]float64, error)
	ToParent(cell string, parentRes int) (string, error)
}
