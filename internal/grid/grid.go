// Package grid models gridded multi-variable datasets (forecast fields, reanalysis
// output) and reduces their variables to the 2-D slices that get rendered.
package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/ctessum/sparse"
)

var (
	// ErrNotFound is returned when a dataset has no variable with the requested name.
	ErrNotFound = errors.New("variable not found")
	// ErrShape is returned when a selected slice is not two-dimensional.
	ErrShape = errors.New("slice is not 2-D")
	// ErrIndex is returned when a step/time index falls outside the dimension.
	ErrIndex = errors.New("index out of range")
)

// DimKind tells which leading dimension, if any, must be reduced before rendering.
type DimKind int

const (
	NoExtraDimension DimKind = iota
	StepDimension
	TimeDimension
)

func (k DimKind) String() string {
	switch k {
	case StepDimension:
		return "step"
	case TimeDimension:
		return "time"
	default:
		return "none"
	}
}

// StepIndex selects a position along a step or time dimension. The zero value
// selects index 0; NoStep expresses "no index given".
type StepIndex struct {
	n    int
	none bool
}

func Step(n int) StepIndex { return StepIndex{n: n} }

func NoStep() StepIndex { return StepIndex{none: true} }

// Value returns the index and whether one is set.
func (s StepIndex) Value() (int, bool) {
	if s.none {
		return 0, false
	}
	return s.n, true
}

func (s StepIndex) String() string {
	if s.none {
		return "none"
	}
	return strconv.Itoa(s.n)
}

type Variable struct {
	Name  string
	Dims  []string
	Data  *sparse.DenseArray
	Attrs map[string]string
}

// Kind resolves the extra dimension once from the declared dimension names.
// A step dimension wins over a time dimension.
func (v *Variable) Kind() DimKind {
	hasTime := false
	for _, d := range v.Dims {
		switch d {
		case "step":
			return StepDimension
		case "time":
			hasTime = true
		}
	}
	if hasTime {
		return TimeDimension
	}
	return NoExtraDimension
}

// Attr returns the first non-empty attribute among keys.
func (v *Variable) Attr(keys ...string) string {
	for _, k := range keys {
		if s := v.Attrs[k]; s != "" {
			return s
		}
	}
	return ""
}

// Select reduces v along its step (or time) dimension. Variables without such a
// dimension, or a NoStep index on a time-only variable, are returned unchanged.
// The receiver is never modified.
func (v *Variable) Select(idx StepIndex) (*Variable, error) {
	n, ok := idx.Value()
	var dim string
	switch v.Kind() {
	case StepDimension:
		if !ok {
			return v, nil
		}
		dim = "step"
	case TimeDimension:
		if !ok {
			return v, nil
		}
		dim = "time"
	default:
		return v, nil
	}
	axis := v.axis(dim)
	return v.isel(axis, n)
}

// Slice returns v as a 2-D slice, failing with ErrShape otherwise.
func (v *Variable) Slice() (*Slice, error) {
	if len(v.Dims) != 2 || v.Data == nil || len(v.Data.Shape) != 2 {
		return nil, fmt.Errorf("%w: %q has dims %v", ErrShape, v.Name, v.Dims)
	}
	vals := make([]float64, len(v.Data.Elements))
	copy(vals, v.Data.Elements)
	return &Slice{
		Name:   v.Name,
		YDim:   v.Dims[0],
		XDim:   v.Dims[1],
		Rows:   v.Data.Shape[0],
		Cols:   v.Data.Shape[1],
		Values: vals,
		Attrs:  v.Attrs,
	}, nil
}

func (v *Variable) axis(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// isel copies the cross-section of v at position n along axis.
// Negative n counts back from the end.
func (v *Variable) isel(axis, n int) (*Variable, error) {
	shape := v.Data.Shape
	at := n
	if at < 0 {
		at += shape[axis]
	}
	if at < 0 || at >= shape[axis] {
		return nil, fmt.Errorf("%w: %s index %d, length %d", ErrIndex, v.Dims[axis], n, shape[axis])
	}
	n = at

	outShape := make([]int, 0, len(shape)-1)
	outDims := make([]string, 0, len(shape)-1)
	for i := range shape {
		if i == axis {
			continue
		}
		outShape = append(outShape, shape[i])
		outDims = append(outDims, v.Dims[i])
	}

	// row-major: elements before axis form "outer", after form "inner"
	outer, inner := 1, 1
	for i := 0; i < axis; i++ {
		outer *= shape[i]
	}
	for i := axis + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	var out *sparse.DenseArray
	if len(outShape) == 0 {
		out = sparse.ZerosDense(1)
	} else {
		out = sparse.ZerosDense(outShape...)
	}
	for o := 0; o < outer; o++ {
		src := (o*shape[axis] + n) * inner
		copy(out.Elements[o*inner:(o+1)*inner], v.Data.Elements[src:src+inner])
	}

	return &Variable{Name: v.Name, Dims: outDims, Data: out, Attrs: v.Attrs}, nil
}

// Slice is a rendered cross-section: Rows along YDim, Cols along XDim.
type Slice struct {
	Name   string
	YDim   string
	XDim   string
	Rows   int
	Cols   int
	Values []float64
	Attrs  map[string]string
}

func (s *Slice) At(r, c int) float64 { return s.Values[r*s.Cols+c] }

// Range returns the finite min and max; ok is false when every value is NaN.
func (s *Slice) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		ok = true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}

type Dataset struct {
	Vars   map[string]*Variable
	Coords map[string][]float64
	Attrs  map[string]string
}

func NewDataset() *Dataset {
	return &Dataset{
		Vars:   map[string]*Variable{},
		Coords: map[string][]float64{},
		Attrs:  map[string]string{},
	}
}

// Lookup returns the named variable or ErrNotFound.
func (d *Dataset) Lookup(name string) (*Variable, error) {
	if d != nil {
		if v, ok := d.Vars[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Names lists the data variables (coordinate variables excluded), sorted.
func (d *Dataset) Names() []string {
	out := make([]string, 0, len(d.Vars))
	for n := range d.Vars {
		if _, isCoord := d.Coords[n]; isCoord {
			continue
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Axes returns the coordinate centers for the slice's x and y dimensions,
// falling back to 0..n-1 where the dataset has no coordinate variable.
func (d *Dataset) Axes(s *Slice) (x, y []float64) {
	x = d.coord(s.XDim, s.Cols)
	y = d.coord(s.YDim, s.Rows)
	return x, y
}

func (d *Dataset) coord(dim string, n int) []float64 {
	if c, ok := d.Coords[dim]; ok && len(c) == n {
		return c
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// Edges infers cell boundaries from cell centers: midpoints between neighbours,
// with the outer edges extrapolated by half a cell.
func Edges(centers []float64) []float64 {
	n := len(centers)
	switch n {
	case 0:
		return nil
	case 1:
		return []float64{centers[0] - 0.5, centers[0] + 0.5}
	}
	out := make([]float64, n+1)
	for i := 1; i < n; i++ {
		out[i] = (centers[i-1] + centers[i]) / 2
	}
	out[0] = centers[0] - (out[1] - centers[0])
	out[n] = centers[n-1] + (centers[n-1] - out[n-1])
	return out
}
