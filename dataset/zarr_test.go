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
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

const consolidatedMetadata = `{
	"zarr_consolidated_format": 1,
	"metadata": {
		".zattrs": {"title": "precipitation analysis"},
		"x/.zarray": {"chunks": [3], "dtype": "<f8", "shape": [3], "zarr_format": 2},
		"x/.zattrs": {"_ARRAY_DIMENSIONS": ["x"], "units": "degrees_east"},
		"precip/.zarray": {"chunks": [1, 3], "dtype": "<f4", "shape": [2, 3], "zarr_format": 2},
		"precip/.zattrs": {"_ARRAY_DIMENSIONS": ["time", "x"], "units": "mm"}
	}
}`

func checkZarrDataset(t *testing.T, d *Dataset) {
	t.Helper()
	if v, _ := d.Attrs.Get("title"); v != "precipitation analysis" {
		t.Errorf("have title %v, want precipitation analysis", v)
	}
	if !reflect.DeepEqual(d.Coords(), []string{"x"}) {
		t.Errorf("have coordinates %v, want [x]", d.Coords())
	}
	x := d.Coord("x")
	if x.DType != "float64" {
		t.Errorf("have x dtype %q, want float64", x.DType)
	}
	if _, ok := x.Attrs.Get("_ARRAY_DIMENSIONS"); ok {
		t.Error("dimension labels should not surface as an attribute")
	}

	precip := d.Var("precip")
	if precip == nil {
		t.Fatal("missing variable precip")
	}
	if !reflect.DeepEqual(precip.Dims, []string{"time", "x"}) {
		t.Errorf("have dims %v, want [time x]", precip.Dims)
	}
	if !reflect.DeepEqual(precip.Shape, []int{2, 3}) {
		t.Errorf("have shape %v, want [2 3]", precip.Shape)
	}
	if precip.DType != "float32" {
		t.Errorf("have dtype %q, want float32", precip.DType)
	}
	if v, _ := precip.Attrs.Get("units"); v != "mm" {
		t.Errorf("have units %v, want mm", v)
	}
	// precip only: coordinates do not count.
	if n := d.NBytes(); n != 2*3*4 {
		t.Errorf("have %d bytes, want 24", n)
	}
}

func TestOpenZarrConsolidated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "precip.zarr")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, ".zmetadata"), []byte(consolidatedMetadata), 0644); err != nil {
		t.Fatal(err)
	}
	d, err := OpenZarr(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	checkZarrDataset(t, d)
}

func TestOpenZarrWalk(t *testing.T) {
	// No consolidated metadata: the store directory is walked instead.
	dir := filepath.Join(t.TempDir(), "precip.zarr")
	files := map[string]string{
		".zattrs":        `{"title": "precipitation analysis"}`,
		"x/.zarray":      `{"chunks": [3], "dtype": "<f8", "shape": [3], "zarr_format": 2}`,
		"x/.zattrs":      `{"_ARRAY_DIMENSIONS": ["x"], "units": "degrees_east"}`,
		"precip/.zarray": `{"chunks": [1, 3], "dtype": "<f4", "shape": [2, 3], "zarr_format": 2}`,
		"precip/.zattrs": `{"_ARRAY_DIMENSIONS": ["time", "x"], "units": "mm"}`,
		"precip/0.0":     "chunkdata",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	d, err := OpenZarr(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	checkZarrDataset(t, d)
}

func TestOpenZarrHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/precip.zarr/.zmetadata" {
			w.Write([]byte(consolidatedMetadata))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d, err := OpenZarr(context.Background(), srv.URL+"/precip.zarr")
	if err != nil {
		t.Fatal(err)
	}
	checkZarrDataset(t, d)
}

func TestOpenZarrNotAStore(t *testing.T) {
	dir := t.TempDir()
	if _, err := OpenZarr(context.Background(), dir); err == nil {
		t.Error("an empty directory is not a zarr store")
	}
}

func TestZarrPositionalDims(t *testing.T) {
	// Arrays without dimension labels get positional names.
	nodes := map[string]zarrNode{
		"":     {},
		"data": {array: zarrArray{Shape: []int{4, 5}, DType: "<i4"}},
	}
	d, err := zarrDataset(nodes)
	if err != nil {
		t.Fatal(err)
	}
	v := d.Var("data")
	if !reflect.DeepEqual(v.Dims, []string{"data_dim_0", "data_dim_1"}) {
		t.Errorf("have dims %v, want positional names", v.Dims)
	}
	if v.DType != "int32" {
		t.Errorf("have dtype %q, want int32", v.DType)
	}
}

func TestZarrDType(t *testing.T) {
	tests := []struct{ in, want string }{
		{"<f8", "float64"},
		{"<f4", "float32"},
		{">i8", "int64"},
		{"|i1", "int8"},
		{"|b1", "bool"},
		{"<M8[ns]", "int64"},
		{"<U32", "string"},
		{"bogus", ""},
	}
	for _, test := range tests {
		if have := zarrDType(test.in); have != test.want {
			t.Errorf("zarrDType(%q) = %q, want %q", test.in, have, test.want)
		}
	}
}

func TestOpenZarrFileURL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file URLs do not round-trip windows paths")
	}
	dir := filepath.Join(t.TempDir(), "precip.zarr")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, ".zmetadata"), []byte(consolidatedMetadata), 0644); err != nil {
		t.Fatal(err)
	}
	d, err := OpenZarr(context.Background(), "file://"+filepath.ToSlash(dir))
	if err != nil {
		t.Fatal(err)
	}
	checkZarrDataset(t, d)
}
