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

package inspector

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/spatialmodel/inspector/archive"
	"github.com/spatialmodel/inspector/dataset"
)

// regionalKeywords describes a regional climate model output grid the
// way the archive search index stores it: sizes and axis ranges as
// strings, variables listing the dimensions they range over.
const regionalKeywords = `{
	"global": {
		"Conventions": "CF-1.4",
		"CORDEX_domain": "EUR-11",
		"experiment_id": "evaluation"
	},
	"dims": ["rlat", "rlon"],
	"data_vars": ["rotated_pole", "orog"],
	"rlat": {
		"standard_name": "grid_latitude",
		"units": "degrees",
		"axis": "Y",
		"size": "412",
		"start": "-23.375",
		"end": "21.834999084472656"
	},
	"rlon": {
		"standard_name": "grid_longitude",
		"units": "degrees",
		"axis": "X",
		"size": "424",
		"start": "-28.375",
		"end": "18.155000686645508"
	},
	"rotated_pole": {
		"grid_mapping_name": "rotated_latitude_longitude",
		"dims": []
	},
	"orog": {
		"standard_name": "surface_altitude",
		"units": "m",
		"grid_mapping": "rotated_pole",
		"dims": ["rlat", "rlon"]
	}
}`

func regionalMetadata() archive.Metadata {
	return archive.Metadata{
		"document": {
			"Keywords": regionalKeywords,
			"Version":  "ae7677769b0a757248659ddbbb83f224",
		},
	}
}

func TestVirtualDataset(t *testing.T) {
	d, err := VirtualDataset(regionalMetadata())
	if err != nil {
		t.Fatal(err)
	}

	if v, _ := d.Attrs.Get("CORDEX_domain"); v != "EUR-11" {
		t.Errorf("have CORDEX_domain %v, want EUR-11", v)
	}

	rlat := d.Coord("rlat")
	if rlat == nil {
		t.Fatal("missing coordinate rlat")
	}
	if !reflect.DeepEqual(rlat.Shape, []int{412}) {
		t.Errorf("have rlat shape %v, want [412]", rlat.Shape)
	}
	if have := rlat.Data.Elements[0]; have != -23.375 {
		t.Errorf("have rlat start %v, want -23.375", have)
	}
	end := rlat.Data.Elements[len(rlat.Data.Elements)-1]
	if math.Abs(end-21.834999084472656) > 1e-9 {
		t.Errorf("have rlat end %v, want 21.834999084472656", end)
	}
	if v, _ := rlat.Attrs.Get("axis"); v != "Y" {
		t.Errorf("have rlat axis %v, want Y", v)
	}
	if _, ok := rlat.Attrs.Get("size"); ok {
		t.Error("shape bookkeeping should not surface as an attribute")
	}

	orog := d.Var("orog")
	if orog == nil {
		t.Fatal("missing variable orog")
	}
	if !reflect.DeepEqual(orog.Dims, []string{"rlat", "rlon"}) {
		t.Errorf("have orog dims %v, want [rlat rlon]", orog.Dims)
	}
	if !reflect.DeepEqual(orog.Shape, []int{412, 424}) {
		t.Errorf("have orog shape %v, want [412 424]", orog.Shape)
	}
	if v, _ := orog.Attrs.Get("standard_name"); v != "surface_altitude" {
		t.Errorf("have standard_name %v, want surface_altitude", v)
	}
	if orog.Data != nil {
		t.Error("virtual variables must not materialize data")
	}

	// A scalar variable has no dimensions and an empty shape.
	pole := d.Var("rotated_pole")
	if pole == nil {
		t.Fatal("missing variable rotated_pole")
	}
	if len(pole.Dims) != 0 || len(pole.Shape) != 0 {
		t.Errorf("have dims %v shape %v, want a scalar", pole.Dims, pole.Shape)
	}

	// Nothing is materialized, so the dataset has no definite size.
	if n := d.NBytes(); n != 0 {
		t.Errorf("have %d bytes, want 0", n)
	}
}

func TestVirtualDatasetTimeAxis(t *testing.T) {
	meta := archive.Metadata{
		"document": {
			"Keywords": `{
				"dims": ["time"],
				"data_vars": ["precip"],
				"time": {
					"units": "days since 1949-12-01",
					"calendar": "noleap",
					"size": "3",
					"start": "0",
					"end": "2"
				},
				"precip": {"dims": ["time"]}
			}`,
		},
	}
	d, err := VirtualDataset(meta)
	if err != nil {
		t.Fatal(err)
	}
	tc := d.Coord("time")
	if tc == nil {
		t.Fatal("missing time coordinate")
	}
	if len(tc.Times) != 3 {
		t.Fatalf("have %d time labels, want 3", len(tc.Times))
	}
	if have := tc.Times[0].Format("2006-01-02"); have != "1949-12-01" {
		t.Errorf("have first label %s, want 1949-12-01", have)
	}
	if have := tc.Times[2].Format("2006-01-02"); have != "1949-12-03" {
		t.Errorf("have last label %s, want 1949-12-03", have)
	}
}

func TestVirtualDatasetRawHeader(t *testing.T) {
	// Without a structured description the raw header attributes carry
	// the dataset.
	meta := archive.Metadata{
		"netcdf":        {"Title": "ACCESS-CM2 output prepared for CMIP6"},
		"netcdf_header": {"Frequency": "mon"},
	}
	d, err := VirtualDataset(meta)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Attrs.Get("Title"); v != "ACCESS-CM2 output prepared for CMIP6" {
		t.Errorf("have Title %v", v)
	}
	if v, _ := d.Attrs.Get("Frequency"); v != "mon" {
		t.Errorf("have Frequency %v, want mon", v)
	}
	if len(d.Coords()) != 0 || len(d.Vars()) != 0 {
		t.Errorf("have %v / %v, want no variables", d.Coords(), d.Vars())
	}
}

func TestVirtualDatasetErrors(t *testing.T) {
	tests := []struct {
		name     string
		keywords string
		want     string
	}{
		{name: "bad json", keywords: "{not json", want: "undecodable"},
		{
			name:     "missing dimension entry",
			keywords: `{"dims": ["rlat"]}`,
			want:     "no entry",
		},
		{
			name:     "zero size",
			keywords: `{"dims": ["x"], "x": {"size": "0", "start": "0", "end": "1"}}`,
			want:     "size",
		},
		{
			name:     "variable without dims",
			keywords: `{"dims": [], "data_vars": ["orog"], "orog": {"units": "m"}}`,
			want:     "dimensions",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			meta := archive.Metadata{"document": {"Keywords": test.keywords}}
			_, err := VirtualDataset(meta)
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("have error %v, want one mentioning %q", err, test.want)
			}
		})
	}
}

func TestVirtualDatasetFormat(t *testing.T) {
	d, err := VirtualDataset(regionalMetadata())
	if err != nil {
		t.Fatal(err)
	}
	out := dataset.Format(d, dataset.DefaultOptions())

	for _, want := range []string{
		"rotated_pole",
		"grid_mapping_name: rotated_latitude_longitude",
		"orog",
		"standard_name: surface_altitude",
		"units: m",
		"grid_mapping: rotated_pole",
		"CORDEX_domain: EUR-11",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered dataset missing %q:\n%s", want, out)
		}
	}
}
