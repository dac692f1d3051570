package grid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// attributes carried over from netCDF variables
var keptAttrs = []string{"units", "unit", "long_name", "standard_name", "description"}

var coordAliases = map[string]string{
	"lat":       "latitude",
	"latitude":  "latitude",
	"lon":       "longitude",
	"longitude": "longitude",
}

// OpenNetCDF loads every variable of a netCDF-3 file as float64 data.
// Fill and missing values become NaN.
func OpenNetCDF(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ds, err := ReadNetCDF(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %q: %w", path, err)
	}
	return ds, nil
}

func ReadNetCDF(rw cdf.ReaderWriterAt) (*Dataset, error) {
	cf, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("cdf open: %w", err)
	}

	numRecs, err := recordCount(rw)
	if err != nil {
		return nil, err
	}

	ds := NewDataset()
	for _, name := range cf.Header.Variables() {
		dims := cf.Header.Dimensions(name)
		lengths := append([]int(nil), cf.Header.Lengths(name)...)
		if len(lengths) == 0 {
			continue
		}
		// the record dimension is always first and reports length 0
		if lengths[0] == 0 {
			lengths[0] = numRecs
		}
		n := 1
		for _, l := range lengths {
			n *= l
		}
		if n == 0 {
			continue
		}

		r := cf.Reader(name, make([]int, len(lengths)), lengths)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		vals, err := toFloat64(buf)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		if len(vals) != n {
			return nil, fmt.Errorf("variable %s: dims are %d but array length is %d", name, n, len(vals))
		}

		fill := math.NaN()
		for _, a := range []string{"_FillValue", "missing_value"} {
			if fv, ok := numericAttr(cf.Header.GetAttribute(name, a)); ok {
				fill = fv
				break
			}
		}

		scale, add := 1.0, 0.0
		if sf, ok := numericAttr(cf.Header.GetAttribute(name, "scale_factor")); ok {
			scale = sf
		}
		if ao, ok := numericAttr(cf.Header.GetAttribute(name, "add_offset")); ok {
			add = ao
		}

		data := sparse.ZerosDense(lengths...)
		for i, v := range vals {
			if !math.IsNaN(fill) && v == fill {
				v = math.NaN()
			} else {
				v = v*scale + add
			}
			data.Elements[i] = v
		}

		attrs := map[string]string{}
		for _, a := range keptAttrs {
			if s, ok := stringAttr(cf.Header.GetAttribute(name, a)); ok {
				attrs[a] = s
			}
		}

		ds.Vars[name] = &Variable{Name: name, Dims: dims, Data: data, Attrs: attrs}
		if len(dims) == 1 && dims[0] == name {
			ds.Coords[name] = data.Elements
		}
	}

	// let "lat"/"latitude" and "lon"/"longitude" resolve to each other
	for name, c := range ds.Coords {
		canon, ok := coordAliases[name]
		if !ok {
			continue
		}
		for alias, target := range coordAliases {
			if target == canon {
				if _, exists := ds.Coords[alias]; !exists {
					ds.Coords[alias] = c
				}
			}
		}
	}
	return ds, nil
}

// recordCount reads numrecs from the classic netCDF header: the four bytes
// after the magic number. The streaming marker 0xFFFFFFFF counts as zero.
func recordCount(r io.ReaderAt) (int, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	n := binary.BigEndian.Uint32(hdr[4:])
	if n == math.MaxUint32 {
		return 0, nil
	}
	return int(n), nil
}

// WriteNetCDF writes ds as a netCDF-3 file with float32 variables.
func WriteNetCDF(path string, ds *Dataset) error {
	dimLen := map[string]int{}
	names := make([]string, 0, len(ds.Vars))
	for name, v := range ds.Vars {
		if v.Data == nil || len(v.Dims) != len(v.Data.Shape) {
			return fmt.Errorf("%w: %q dims %v do not match shape", ErrShape, name, v.Dims)
		}
		for i, d := range v.Dims {
			if l, ok := dimLen[d]; ok && l != v.Data.Shape[i] {
				return fmt.Errorf("dimension %s has conflicting lengths %d and %d", d, l, v.Data.Shape[i])
			}
			dimLen[d] = v.Data.Shape[i]
		}
		names = append(names, name)
	}
	// same order every time
	sort.Strings(names)

	dims := make([]string, 0, len(dimLen))
	for d := range dimLen {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	lengths := make([]int, len(dims))
	for i, d := range dims {
		lengths[i] = dimLen[d]
	}

	h := cdf.NewHeader(dims, lengths)
	for k, v := range ds.Attrs {
		h.AddAttribute("", k, v)
	}
	for _, name := range names {
		v := ds.Vars[name]
		h.AddVariable(name, v.Dims, []float32{0})
		for k, a := range v.Attrs {
			h.AddAttribute(name, k, a)
		}
		h.AddAttribute(name, "_FillValue", []float32{fillValue})
	}
	h.Define()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cf, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("cdf create: %w", err)
	}
	for _, name := range names {
		v := ds.Vars[name]
		data32 := make([]float32, len(v.Data.Elements))
		for i, e := range v.Data.Elements {
			if math.IsNaN(e) {
				data32[i] = fillValue
				continue
			}
			data32[i] = float32(e)
		}
		end := cf.Header.Lengths(name)
		start := make([]int, len(end))
		w := cf.Writer(name, start, end)
		if _, err := w.Write(data32); err != nil {
			return fmt.Errorf("writing variable %s: %w", name, err)
		}
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		return fmt.Errorf("update num recs: %w", err)
	}
	return nil
}

const fillValue float32 = 9.96921e+36

func toFloat64(buf any) ([]float64, error) {
	switch t := buf.(type) {
	case []float64:
		return t, nil
	case []float32:
		out := make([]float64, len(t))
		for i, v := range t {
			out[i] = float64(v)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(t))
		for i, v := range t {
			out[i] = float64(v)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(t))
		for i, v := range t {
			out[i] = float64(v)
		}
		return out, nil
	case []int8:
		out := make([]float64, len(t))
		for i, v := range t {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported netCDF type %T", buf)
	}
}

func numericAttr(a any) (float64, bool) {
	switch t := a.(type) {
	case []float32:
		if len(t) > 0 {
			return float64(t[0]), true
		}
	case []float64:
		if len(t) > 0 {
			return t[0], true
		}
	case []int32:
		if len(t) > 0 {
			return float64(t[0]), true
		}
	case []int16:
		if len(t) > 0 {
			return float64(t[0]), true
		}
	}
	return 0, false
}

func stringAttr(a any) (string, bool) {
	switch t := a.(type) {
	case string:
		return t, t != ""
	case []byte:
		return string(t), len(t) > 0
	case []float32, []float64, []int32, []int16:
		if f, ok := numericAttr(t); ok {
			return strconv.FormatFloat(f, 'g', -1, 64), true
		}
	}
	return "", false
}
