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
	"sort"
	"time"

	"github.com/ctessum/sparse"
)

// OpenMulti describes a collection of files as one dataset. Files are
// aligned by coordinate label values, not by the order they arrive in:
// datasets that differ along exactly one coordinate are concatenated
// along it in ascending coordinate order, and everything else must match
// across files.
func OpenMulti(ctx context.Context, paths []string) (*Dataset, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("dataset: no input files")
	}
	dsets := make([]*Dataset, len(paths))
	for i, p := range paths {
		d, err := Open(ctx, p)
		if err != nil {
			return nil, err
		}
		dsets[i] = d
	}
	return combineByCoords(dsets)
}

func combineByCoords(dsets []*Dataset) (*Dataset, error) {
	if len(dsets) == 1 {
		return dsets[0], nil
	}
	concatDim, err := findConcatDim(dsets)
	if err != nil {
		return nil, err
	}
	if concatDim == "" {
		return Merge(dsets)
	}

	// Ascending order of the first label along the concatenation axis.
	sort.SliceStable(dsets, func(i, j int) bool {
		a, b := dsets[i].Coord(concatDim), dsets[j].Coord(concatDim)
		if len(a.Times) > 0 && len(b.Times) > 0 {
			return a.Times[0].Before(b.Times[0])
		}
		return a.Data.Elements[0] < b.Data.Elements[0]
	})

	out := New()
	if err := out.SetCoord(concatCoord(concatDim, dsets)); err != nil {
		return nil, err
	}
	for _, name := range dsets[0].Coords() {
		if name == concatDim {
			continue
		}
		c := dsets[0].Coord(name)
		for _, d := range dsets[1:] {
			o := d.Coord(name)
			if o == nil || !o.equal(c) {
				return nil, fmt.Errorf("dataset: coordinate %s differs between files along more than one dimension", name)
			}
		}
		if err := out.SetCoord(c); err != nil {
			return nil, err
		}
	}
	for _, name := range dsets[0].Vars() {
		v, err := concatVar(name, concatDim, dsets)
		if err != nil {
			return nil, err
		}
		if err := out.AddVar(v); err != nil {
			return nil, err
		}
	}
	for _, d := range dsets {
		for _, k := range d.Attrs.Keys() {
			if _, ok := out.Attrs.Get(k); !ok {
				v, _ := d.Attrs.Get(k)
				out.Attrs.Set(k, v)
			}
		}
	}
	return out, nil
}

// findConcatDim returns the single coordinate whose values differ across
// the datasets. No differing coordinate means the datasets are merged
// as-is; more than one cannot be aligned.
func findConcatDim(dsets []*Dataset) (string, error) {
	first := dsets[0]
	var concat string
	for _, name := range first.Coords() {
		c := first.Coord(name)
		for _, d := range dsets[1:] {
			o := d.Coord(name)
			if o == nil {
				return "", fmt.Errorf("dataset: coordinate %s is missing from some files", name)
			}
			if !o.equal(c) {
				if concat != "" && concat != name {
					return "", fmt.Errorf("dataset: files differ along both %s and %s and cannot be aligned", concat, name)
				}
				concat = name
				break
			}
		}
	}
	return concat, nil
}

func concatCoord(name string, dsets []*Dataset) *Variable {
	first := dsets[0].Coord(name)
	var values []float64
	var times []time.Time
	for _, d := range dsets {
		c := d.Coord(name)
		values = append(values, c.Data.Elements...)
		times = append(times, c.Times...)
	}
	arr := sparse.ZerosDense(len(values))
	copy(arr.Elements, values)
	return &Variable{
		Name:  name,
		Dims:  []string{name},
		Shape: []int{len(values)},
		Data:  arr,
		Times: times,
		DType: first.DType,
		Attrs: first.Attrs,
	}
}

// concatVar combines one data variable across files. Variables ranging
// over the concatenation dimension keep their descriptions lazy with the
// combined extent; all other variables must be identical everywhere.
func concatVar(name, concatDim string, dsets []*Dataset) (*Variable, error) {
	first := dsets[0].Var(name)
	axis := -1
	for i, dim := range first.Dims {
		if dim == concatDim {
			axis = i
		}
	}
	if axis < 0 {
		for _, d := range dsets[1:] {
			o := d.Var(name)
			if o == nil || !o.equal(first) {
				return nil, fmt.Errorf("dataset: variable %s differs between files but does not range over %s", name, concatDim)
			}
		}
		return first, nil
	}
	shape := make([]int, len(first.Shape))
	copy(shape, first.Shape)
	shape[axis] = 0
	for _, d := range dsets {
		o := d.Var(name)
		if o == nil {
			return nil, fmt.Errorf("dataset: variable %s is missing from some files", name)
		}
		shape[axis] += o.Shape[axis]
	}
	return &Variable{
		Name:  name,
		Dims:  first.Dims,
		Shape: shape,
		DType: first.DType,
		Attrs: first.Attrs,
	}, nil
}
