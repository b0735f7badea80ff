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
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spatialmodel/inspector/archive"
)

type stubProvider struct {
	meta archive.Metadata
	size int64
}

func (p *stubProvider) Metadata(path string) (archive.Metadata, error) { return p.meta, nil }
func (p *stubProvider) Size(path string) (int64, error)                { return p.size, nil }

// validAuth writes an unexpired session so OpenDatasets never reaches
// the interactive login.
func validAuth(t *testing.T) *archive.Authenticator {
	t.Helper()
	os.Unsetenv(archive.PasswordEnv)
	path := filepath.Join(t.TempDir(), "config.json")
	s := archive.Session{
		User:       "jdoe",
		SessionKey: "secret",
		ExpireDate: time.Now().Add(48 * time.Hour).Format("Mon Jan 02 15:04:05 MST 2006"),
	}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(path, raw, 0600); err != nil {
		t.Fatal(err)
	}
	return &archive.Authenticator{SessionPath: path}
}

func TestOpenDatasetsArchive(t *testing.T) {
	p := &stubProvider{meta: regionalMetadata(), size: 1535041}
	d, err := OpenDatasets(context.Background(), nil, []string{"/arch/project/data.nc"}, p, validAuth(t))
	if err != nil {
		t.Fatal(err)
	}
	if d.Var("orog") == nil {
		t.Error("missing variable orog")
	}
	// The structured description supplies the global attributes; the
	// raw netcdf section, file_size included, stays out.
	if v, _ := d.Attrs.Get("CORDEX_domain"); v != "EUR-11" {
		t.Errorf("have CORDEX_domain %v, want EUR-11", v)
	}
	if _, ok := d.Attrs.Get("file_size"); ok {
		t.Error("file_size should not override structured global attributes")
	}
}

func TestOpenDatasetsArchiveRawHeader(t *testing.T) {
	// Without a structured description the raw header attributes carry
	// the dataset, and the provider size rides along for display.
	p := &stubProvider{
		meta: archive.Metadata{"netcdf": {"Title": "ACCESS-CM2 output prepared for CMIP6"}},
		size: 1535041,
	}
	d, err := OpenDatasets(context.Background(), nil, []string{"/arch/project/data.nc"}, p, validAuth(t))
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Attrs.Get("file_size"); v != "1.5 MB" {
		t.Errorf("have file_size %v, want 1.5 MB", v)
	}
}

func TestOpenDatasetsZarr(t *testing.T) {
	store := filepath.Join(t.TempDir(), "precip.zarr")
	if err := os.Mkdir(store, 0755); err != nil {
		t.Fatal(err)
	}
	meta := `{
		"metadata": {
			".zattrs": {"title": "precipitation analysis"},
			"x/.zarray": {"chunks": [3], "dtype": "<f8", "shape": [3], "zarr_format": 2},
			"x/.zattrs": {"_ARRAY_DIMENSIONS": ["x"]},
			"precip/.zarray": {"chunks": [1, 3], "dtype": "<f4", "shape": [2, 3], "zarr_format": 2},
			"precip/.zattrs": {"_ARRAY_DIMENSIONS": ["time", "x"]}
		}
	}`
	if err := ioutil.WriteFile(filepath.Join(store, ".zmetadata"), []byte(meta), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := OpenDatasets(context.Background(), []string{store}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.Var("precip") == nil {
		t.Error("missing variable precip")
	}
	if v, _ := d.Attrs.Get("title"); v != "precipitation analysis" {
		t.Errorf("have title %v, want precipitation analysis", v)
	}
}

func TestOpenDatasetsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.nc")
	if err := ioutil.WriteFile(path, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDatasets(context.Background(), []string{path}, nil, nil, nil); err == nil {
		t.Error("opening a corrupt file should fail")
	}
}
