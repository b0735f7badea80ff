/*
Copyright © 2022 the metadata-inspector authors.
This file is part of metadata-inspector.

metadata-inspector is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

metadata-inspector is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with metadata-inspector.  If not, see <http://www.gnu.org/licenses/>.
*/

package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/hdf5"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

const (
	magicCDF = 'C'
	magicHDF = 0x89
)

// OpenNetCDF describes the contents of a NetCDF or HDF5 file. Classic
// (CDF-1/2) files and HDF5-backed NetCDF-4 files are told apart by their
// magic byte. Coordinate variables are read in full; data variables are
// described from the header only, without touching their contents.
func OpenNetCDF(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	magic := make([]byte, 1)
	if _, err := f.Read(magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("dataset: reading %s: %v", path, err)
	}
	switch magic[0] {
	case magicCDF:
		defer f.Close()
		return openClassic(f, path)
	case magicHDF:
		f.Close()
		return openHDF5(path)
	}
	f.Close()
	return nil, fmt.Errorf("dataset: %s is not a NetCDF or HDF5 file", path)
}

func openClassic(f *os.File, path string) (*Dataset, error) {
	cf, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %v", path, err)
	}
	d := New()
	h := cf.Header
	for _, a := range h.Attributes("") {
		d.Attrs.Set(a, h.GetAttribute("", a))
	}

	vars := h.Variables()
	// Coordinates first: data-variable shapes are validated against them.
	for _, name := range vars {
		dims := h.Dimensions(name)
		if len(dims) != 1 || dims[0] != name {
			continue
		}
		values, dtype, err := readFullVar(cf, name)
		if err != nil {
			return nil, fmt.Errorf("dataset: reading coordinate %s of %s: %v", name, path, err)
		}
		v := &Variable{
			Name:  name,
			Dims:  []string{name},
			Shape: []int{len(values)},
			DType: dtype,
			Attrs: varAttrs(h, name),
		}
		fillCoord(v, values)
		if err := d.SetCoord(v); err != nil {
			return nil, err
		}
	}
	for _, name := range vars {
		if d.Coord(name) != nil {
			continue
		}
		r := cf.Reader(name, nil, nil)
		v := &Variable{
			Name:  name,
			Dims:  h.Dimensions(name),
			Shape: h.Lengths(name),
			DType: elemType(r.Zero(1)),
			Attrs: varAttrs(h, name),
		}
		if err := d.AddVar(v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func varAttrs(h *cdf.Header, name string) *Attributes {
	attrs := NewAttributes()
	for _, a := range h.Attributes(name) {
		attrs.Set(a, h.GetAttribute(name, a))
	}
	return attrs
}

// fillCoord stores the coordinate values on v, decoding them to calendar
// dates when the variable is a CF time axis.
func fillCoord(v *Variable, values []float64) {
	arr := sparse.ZerosDense(len(values))
	copy(arr.Elements, values)
	v.Data = arr
	units, uok := v.Attrs.Get("units")
	if v.Name != "time" || !uok {
		return
	}
	calendar := "standard"
	if c, ok := v.Attrs.Get("calendar"); ok {
		calendar = fmt.Sprintf("%v", c)
	}
	if times, err := DecodeTime(values, fmt.Sprintf("%v", units), calendar); err == nil {
		v.Times = times
	}
}

func readFullVar(cf *cdf.File, name string) ([]float64, string, error) {
	r := cf.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, "", err
	}
	return toFloats(buf), elemType(buf), nil
}

func toFloats(buf interface{}) []float64 {
	switch b := buf.(type) {
	case []float64:
		return b
	case []float32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	case []int64:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	case []int32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	case []int16:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	case []int8:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	case []uint8:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	}
	return nil
}

func elemType(buf interface{}) string {
	switch buf.(type) {
	case []float64:
		return "float64"
	case []float32:
		return "float32"
	case []int64:
		return "int64"
	case []int32:
		return "int32"
	case []int16:
		return "int16"
	case []int8:
		return "int8"
	case []uint8:
		return "uint8"
	case []string, string:
		return "string"
	}
	return ""
}

func openHDF5(path string) (*Dataset, error) {
	g, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %v", path, err)
	}
	defer g.Close()

	d := New()
	copyAttrMap(d.Attrs, g.Attributes())

	names := g.ListVariables()
	getters := make(map[string]api.VarGetter, len(names))
	for _, name := range names {
		vg, err := g.GetVarGetter(name)
		if err != nil {
			return nil, fmt.Errorf("dataset: describing %s of %s: %v", name, path, err)
		}
		getters[name] = vg
	}

	dimLens := make(map[string]int)
	for _, name := range names {
		vg := getters[name]
		dims := vg.Dimensions()
		if len(dims) != 1 || dims[0] != name {
			continue
		}
		dimLens[name] = int(vg.Len())
		values, err := vg.Values()
		if err != nil {
			return nil, fmt.Errorf("dataset: reading coordinate %s of %s: %v", name, path, err)
		}
		v := &Variable{
			Name:  name,
			Dims:  []string{name},
			Shape: []int{int(vg.Len())},
			DType: vg.GoType(),
			Attrs: attrMap(vg.Attributes()),
		}
		fillCoord(v, toFloats(values))
		if err := d.SetCoord(v); err != nil {
			return nil, err
		}
	}
	for _, name := range names {
		if d.Coord(name) != nil {
			continue
		}
		vg := getters[name]
		dims := vg.Dimensions()
		shape, err := hdf5Shape(name, vg, dimLens)
		if err != nil {
			return nil, fmt.Errorf("dataset: %s: %v", path, err)
		}
		v := &Variable{
			Name:  name,
			Dims:  dims,
			Shape: shape,
			DType: vg.GoType(),
			Attrs: attrMap(vg.Attributes()),
		}
		if err := d.AddVar(v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// hdf5Shape reconstructs a variable's shape. Len reports the length of
// the variable's outermost slice, so it only pins the first dimension;
// inner lengths come from coordinate variables seen earlier, or from
// descending into a single-row slice of the data when a dimension has
// no coordinate.
func hdf5Shape(name string, vg api.VarGetter, dimLens map[string]int) ([]int, error) {
	dims := vg.Dimensions()
	shape := make([]int, len(dims))
	if len(dims) == 0 {
		return shape, nil
	}
	shape[0] = int(vg.Len())
	dimLens[dims[0]] = shape[0]
	probe := false
	for i := 1; i < len(dims); i++ {
		if n, ok := dimLens[dims[i]]; ok {
			shape[i] = n
			continue
		}
		probe = true
	}
	if !probe {
		return shape, nil
	}
	if shape[0] == 0 {
		return nil, fmt.Errorf("cannot determine shape of variable %s", name)
	}
	row, err := vg.GetSlice(0, 1)
	if err != nil {
		return nil, fmt.Errorf("cannot determine shape of variable %s: %v", name, err)
	}
	rv := reflect.ValueOf(row)
	for i := 1; i < len(dims); i++ {
		if rv.Kind() != reflect.Slice || rv.Len() == 0 {
			return nil, fmt.Errorf("cannot determine shape of variable %s", name)
		}
		rv = rv.Index(0)
		if rv.Kind() != reflect.Slice {
			return nil, fmt.Errorf("cannot determine shape of variable %s", name)
		}
		shape[i] = rv.Len()
		dimLens[dims[i]] = shape[i]
	}
	return shape, nil
}

func copyAttrMap(dst *Attributes, src api.AttributeMap) {
	for _, k := range src.Keys() {
		if v, ok := src.Get(k); ok {
			dst.Set(k, v)
		}
	}
}

func attrMap(src api.AttributeMap) *Attributes {
	out := NewAttributes()
	copyAttrMap(out, src)
	return out
}

// Open describes a single file, choosing the backend from its suffix.
func Open(ctx context.Context, path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".grb", ".grib", ".grb2", ".grib2":
		return OpenGRIB(path)
	case ".zarr":
		return OpenZarr(ctx, path)
	}
	return OpenNetCDF(path)
}
