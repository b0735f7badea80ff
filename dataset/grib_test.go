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
	"testing"
	"time"
)

const testInventory = `1:0:d=2020010100:PRMSL:mean sea level:anl:
2:100:d=2020010100:TMP:2 m above ground:anl:
3:200:d=2020010100:TMP:surface:anl:
4:300:d=2020010106:TMP:2 m above ground:6 hour fcst:
`

func TestParseGRIBInventory(t *testing.T) {
	recs, err := parseGRIBInventory(testInventory)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 4 {
		t.Fatalf("have %d records, want 4", len(recs))
	}
	want := gribRecord{
		date:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		name:     "PRMSL",
		level:    "mean sea level",
		timeDesc: "anl",
	}
	if !reflect.DeepEqual(recs[0], want) {
		t.Errorf("have %+v, want %+v", recs[0], want)
	}
	if !recs[3].date.Equal(time.Date(2020, 1, 1, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("have date %v, want 2020-01-01T06", recs[3].date)
	}
}

func TestParseGRIBInventoryErrors(t *testing.T) {
	tests := []struct{ name, inv string }{
		{name: "too few fields", inv: "1:0:d=2020010100\n"},
		{name: "bad date stamp", inv: "1:0:d=20xx010100:TMP:surface:anl:\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := parseGRIBInventory(test.inv); err == nil {
				t.Errorf("parsing %q should fail", test.inv)
			}
		})
	}
}

func TestGRIBDataset(t *testing.T) {
	recs, err := parseGRIBInventory(testInventory)
	if err != nil {
		t.Fatal(err)
	}
	d, err := gribDataset(recs)
	if err != nil {
		t.Fatal(err)
	}

	tc := d.Coord("time")
	if tc == nil {
		t.Fatal("missing time coordinate")
	}
	if len(tc.Times) != 2 {
		t.Fatalf("have %d time steps, want 2", len(tc.Times))
	}
	if !tc.Times[0].Before(tc.Times[1]) {
		t.Errorf("time steps out of order: %v", tc.Times)
	}

	// TMP appears on two levels and is split per level; PRMSL keeps its
	// plain name.
	want := []string{"PRMSL", "TMP_2_m_above_ground", "TMP_surface"}
	have := d.Vars()
	if !reflect.DeepEqual(have, want) {
		t.Errorf("have variables %v, want %v", have, want)
	}

	v := d.Var("TMP_2_m_above_ground")
	if level, _ := v.Attrs.Get("level"); level != "2 m above ground" {
		t.Errorf("have level %v, want 2 m above ground", level)
	}
	if short, _ := v.Attrs.Get("short_name"); short != "TMP" {
		t.Errorf("have short_name %v, want TMP", short)
	}
	if !reflect.DeepEqual(v.Shape, []int{2}) {
		t.Errorf("have shape %v, want [2]", v.Shape)
	}
}
