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
	"reflect"
	"strings"
	"testing"
)

// timeChunk builds a dataset covering the given time axis values, with a
// shared x axis and a precip variable over (time, x).
func timeChunk(t *testing.T, times ...float64) *Dataset {
	t.Helper()
	d := New()
	tc := testCoord("time", times...)
	tc.Attrs.Set("units", "days since 2020-01-01")
	var err error
	if tc.Times, err = DecodeTime(times, "days since 2020-01-01", ""); err != nil {
		t.Fatal(err)
	}
	if err := d.SetCoord(tc); err != nil {
		t.Fatal(err)
	}
	if err := d.SetCoord(testCoord("x", 0, 1, 2)); err != nil {
		t.Fatal(err)
	}
	precip := &Variable{
		Name:  "precip",
		Dims:  []string{"time", "x"},
		DType: "float64",
		Attrs: NewAttributes(),
	}
	if err := d.AddVar(precip); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCombineByCoords(t *testing.T) {
	// The chunks arrive out of time order.
	late := timeChunk(t, 2, 3)
	early := timeChunk(t, 0, 1)
	combined, err := combineByCoords([]*Dataset{late, early})
	if err != nil {
		t.Fatal(err)
	}

	tc := combined.Coord("time")
	if tc == nil {
		t.Fatal("combined dataset has no time coordinate")
	}
	if !reflect.DeepEqual(tc.Data.Elements, []float64{0, 1, 2, 3}) {
		t.Errorf("have time values %v, want [0 1 2 3]", tc.Data.Elements)
	}
	if len(tc.Times) != 4 || !tc.Times[0].Before(tc.Times[3]) {
		t.Errorf("time labels not combined in order: %v", tc.Times)
	}

	precip := combined.Var("precip")
	if precip == nil {
		t.Fatal("combined dataset has no precip variable")
	}
	if !reflect.DeepEqual(precip.Shape, []int{4, 3}) {
		t.Errorf("have shape %v, want [4 3]", precip.Shape)
	}
	if precip.Data != nil {
		t.Error("combined variable should stay lazy")
	}

	x := combined.Coord("x")
	if x == nil || !reflect.DeepEqual(x.Data.Elements, []float64{0, 1, 2}) {
		t.Errorf("shared coordinate changed: %v", x)
	}
}

func TestCombineByCoordsIdentical(t *testing.T) {
	// Identical chunks have no concatenation axis and merge as-is.
	a := timeChunk(t, 0, 1)
	b := timeChunk(t, 0, 1)
	combined, err := combineByCoords([]*Dataset{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(combined.Coord("time").Data.Elements, []float64{0, 1}) {
		t.Errorf("have time values %v, want [0 1]", combined.Coord("time").Data.Elements)
	}
}

func TestCombineByCoordsMisaligned(t *testing.T) {
	a := timeChunk(t, 0, 1)
	b := timeChunk(t, 2, 3)
	// b additionally differs along x.
	b.Coord("x").Data.Elements[0] = 99
	_, err := combineByCoords([]*Dataset{a, b})
	if err == nil || !strings.Contains(err.Error(), "cannot be aligned") {
		t.Errorf("have error %v, want an alignment error", err)
	}
}

func TestFindConcatDim(t *testing.T) {
	a := timeChunk(t, 0, 1)
	b := timeChunk(t, 2, 3)
	dim, err := findConcatDim([]*Dataset{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if dim != "time" {
		t.Errorf("have %q, want time", dim)
	}
}
