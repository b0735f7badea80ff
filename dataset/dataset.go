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

// Package dataset holds an in-memory description of a multidimensional
// labeled dataset: named dimensions, coordinate variables with real values,
// data variables that may be described lazily (shape and type but no
// values), and attribute metadata, along with plain-text and HTML
// renderers for that description.
package dataset

import (
	"fmt"
	"time"

	"github.com/ctessum/sparse"
)

// Attributes is an insertion-ordered mapping of attribute names to values.
type Attributes struct {
	keys []string
	m    map[string]interface{}
}

// NewAttributes creates an empty attribute mapping.
func NewAttributes() *Attributes {
	return &Attributes{m: make(map[string]interface{})}
}

// Set adds or replaces the value for key, keeping the insertion order of
// first appearance.
func (a *Attributes) Set(key string, val interface{}) {
	if _, ok := a.m[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.m[key] = val
}

// Get returns the value for key.
func (a *Attributes) Get(key string) (interface{}, bool) {
	v, ok := a.m[key]
	return v, ok
}

// Pop removes key and returns its previous value.
func (a *Attributes) Pop(key string) (interface{}, bool) {
	v, ok := a.m[key]
	if !ok {
		return nil, false
	}
	delete(a.m, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the attribute names in insertion order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Equal reports whether a and b hold the same keys and values, ignoring
// order.
func (a *Attributes) Equal(b *Attributes) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.Keys() {
		av, _ := a.Get(k)
		bv, ok := b.Get(k)
		if !ok || fmt.Sprintf("%v", av) != fmt.Sprintf("%v", bv) {
			return false
		}
	}
	return true
}

// Variable is one array in a dataset: either a coordinate variable with
// materialized values or a data variable that may be described lazily.
type Variable struct {
	Name string
	// Dims are the names of the dimensions the variable ranges over,
	// in axis order.
	Dims []string
	// Shape holds the length of each axis.
	Shape []int
	// Data holds materialized values. It is nil for lazily described
	// variables, whose contents are never read.
	Data *sparse.DenseArray
	// Times holds calendar labels for a decoded time coordinate.
	Times []time.Time
	// DType names the element type ("float64", "int32", ...). It is
	// empty when the element type is unknown, as for placeholder
	// variables reconstructed from archive metadata.
	DType string
	Attrs *Attributes
}

// Size returns the total number of elements.
func (v *Variable) Size() int {
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	return n
}

// NBytes returns the number of bytes the variable's full contents would
// occupy. Variables with an unknown element type report zero.
func (v *Variable) NBytes() int64 {
	is := itemSize(v.DType)
	if is == 0 {
		return 0
	}
	return int64(v.Size()) * int64(is)
}

func itemSize(dtype string) int {
	switch dtype {
	case "int8", "uint8", "byte", "bool":
		return 1
	case "int16", "uint16":
		return 2
	case "int32", "uint32", "float32":
		return 4
	case "int64", "uint64", "float64":
		return 8
	case "string":
		return 0
	}
	return 0
}

func (v *Variable) equal(o *Variable) bool {
	if v.Name != o.Name || v.DType != o.DType {
		return false
	}
	if len(v.Dims) != len(o.Dims) || len(v.Shape) != len(o.Shape) {
		return false
	}
	for i, d := range v.Dims {
		if o.Dims[i] != d {
			return false
		}
	}
	for i, s := range v.Shape {
		if o.Shape[i] != s {
			return false
		}
	}
	if (v.Data == nil) != (o.Data == nil) {
		return false
	}
	if v.Data != nil {
		if len(v.Data.Elements) != len(o.Data.Elements) {
			return false
		}
		for i, e := range v.Data.Elements {
			if o.Data.Elements[i] != e {
				return false
			}
		}
	}
	if len(v.Times) != len(o.Times) {
		return false
	}
	for i, t := range v.Times {
		if !o.Times[i].Equal(t) {
			return false
		}
	}
	if v.Attrs.Len() > 0 || o.Attrs.Len() > 0 {
		if v.Attrs == nil || o.Attrs == nil || !v.Attrs.Equal(o.Attrs) {
			return false
		}
	}
	return true
}

// Dataset is a collection of coordinate and data variables sharing
// dimensions, plus global attributes.
type Dataset struct {
	Attrs *Attributes

	coordNames []string
	varNames   []string
	coords     map[string]*Variable
	vars       map[string]*Variable
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{
		Attrs:  NewAttributes(),
		coords: make(map[string]*Variable),
		vars:   make(map[string]*Variable),
	}
}

// SetCoord registers v as the coordinate variable for the dimension of the
// same name. Coordinate variables must be one-dimensional over themselves.
func (d *Dataset) SetCoord(v *Variable) error {
	if len(v.Dims) != 1 || v.Dims[0] != v.Name {
		return fmt.Errorf("dataset: %s is not a dimension coordinate", v.Name)
	}
	if len(v.Shape) != 1 {
		return fmt.Errorf("dataset: coordinate %s must have a one-dimensional shape", v.Name)
	}
	if _, ok := d.coords[v.Name]; !ok {
		d.coordNames = append(d.coordNames, v.Name)
	}
	d.coords[v.Name] = v
	return nil
}

// AddVar registers a data variable. If the variable arrives without a
// shape, axis lengths are looked up from the coordinates already
// registered for its dimensions, so coordinates must be set first.
func (d *Dataset) AddVar(v *Variable) error {
	if v.Shape == nil {
		v.Shape = make([]int, len(v.Dims))
		for i, dim := range v.Dims {
			c, ok := d.coords[dim]
			if !ok {
				return fmt.Errorf("dataset: variable %s ranges over unknown dimension %s", v.Name, dim)
			}
			v.Shape[i] = c.Shape[0]
		}
	}
	if len(v.Shape) != len(v.Dims) {
		return fmt.Errorf("dataset: variable %s has %d dimensions but a rank-%d shape", v.Name, len(v.Dims), len(v.Shape))
	}
	if _, ok := d.vars[v.Name]; !ok {
		d.varNames = append(d.varNames, v.Name)
	}
	d.vars[v.Name] = v
	return nil
}

// Coord returns the coordinate variable for the named dimension, or nil.
func (d *Dataset) Coord(name string) *Variable { return d.coords[name] }

// Var returns the named data variable, or nil.
func (d *Dataset) Var(name string) *Variable { return d.vars[name] }

// Coords returns the coordinate names in registration order.
func (d *Dataset) Coords() []string {
	out := make([]string, len(d.coordNames))
	copy(out, d.coordNames)
	return out
}

// Vars returns the data variable names in registration order.
func (d *Dataset) Vars() []string {
	out := make([]string, len(d.varNames))
	copy(out, d.varNames)
	return out
}

// Dims returns the dimension names and lengths: coordinate dimensions
// first in registration order, then coordinate-less dimensions in order
// of first appearance in data variables.
func (d *Dataset) Dims() ([]string, []int) {
	var names []string
	var lengths []int
	seen := make(map[string]bool)
	for _, c := range d.coordNames {
		names = append(names, c)
		lengths = append(lengths, d.coords[c].Shape[0])
		seen[c] = true
	}
	for _, vn := range d.varNames {
		v := d.vars[vn]
		for i, dim := range v.Dims {
			if !seen[dim] {
				names = append(names, dim)
				lengths = append(lengths, v.Shape[i])
				seen[dim] = true
			}
		}
	}
	return names, lengths
}

// NBytes returns the total number of bytes the data variables describe.
// Lazily described variables count their full virtual extent; variables
// whose element type is unknown count zero, so a dataset reconstructed
// purely from archive metadata reports zero bytes.
func (d *Dataset) NBytes() int64 {
	var n int64
	for _, vn := range d.varNames {
		n += d.vars[vn].NBytes()
	}
	return n
}
