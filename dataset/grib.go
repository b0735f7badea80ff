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
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/sparse"
)

// gribRecord is one line of a wgrib2 short inventory:
// "1:0:d=2020010100:PRMSL:mean sea level:anl:".
type gribRecord struct {
	date     time.Time
	name     string
	level    string
	timeDesc string
}

// OpenGRIB describes a GRIB file from its wgrib2 inventory. The message
// data itself is never read.
func OpenGRIB(path string) (*Dataset, error) {
	out, err := exec.Command("wgrib2", "-s", path).Output()
	if err != nil {
		return nil, fmt.Errorf("dataset: reading GRIB inventory of %s: %v", path, err)
	}
	recs, err := parseGRIBInventory(string(out))
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %v", path, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("dataset: %s contains no GRIB records", path)
	}
	return gribDataset(recs)
}

func parseGRIBInventory(inv string) ([]gribRecord, error) {
	var recs []gribRecord
	for _, line := range strings.Split(inv, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 6 {
			return nil, fmt.Errorf("malformed inventory record %q", line)
		}
		stamp := strings.TrimPrefix(fields[2], "d=")
		var date time.Time
		var err error
		switch len(stamp) {
		case 10:
			date, err = time.Parse("2006010215", stamp)
		case 8:
			date, err = time.Parse("20060102", stamp)
		default:
			err = fmt.Errorf("unrecognized date stamp %q", stamp)
		}
		if err != nil {
			return nil, fmt.Errorf("malformed inventory record %q: %v", line, err)
		}
		recs = append(recs, gribRecord{
			date:     date,
			name:     fields[3],
			level:    fields[4],
			timeDesc: fields[5],
		})
	}
	return recs, nil
}

func gribDataset(recs []gribRecord) (*Dataset, error) {
	timeSet := make(map[time.Time]bool)
	levels := make(map[string]map[string]bool) // variable name -> levels
	byKey := make(map[string]gribRecord)
	var order []string
	for _, r := range recs {
		timeSet[r.date] = true
		if levels[r.name] == nil {
			levels[r.name] = make(map[string]bool)
		}
		levels[r.name][r.level] = true
		key := r.name + "\x00" + r.level
		if _, ok := byKey[key]; !ok {
			byKey[key] = r
			order = append(order, key)
		}
	}

	times := make([]time.Time, 0, len(timeSet))
	for t := range timeSet {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	d := New()
	tc := &Variable{
		Name:  "time",
		Dims:  []string{"time"},
		Shape: []int{len(times)},
		Times: times,
		DType: "int64",
		Attrs: NewAttributes(),
	}
	tc.Data = sparse.ZerosDense(len(times))
	for i, t := range times {
		tc.Data.Elements[i] = float64(t.Unix())
	}
	if err := d.SetCoord(tc); err != nil {
		return nil, err
	}

	sort.Strings(order)
	for _, key := range order {
		r := byKey[key]
		name := r.name
		if len(levels[r.name]) > 1 {
			name = r.name + "_" + sanitizeLevel(r.level)
		}
		attrs := NewAttributes()
		attrs.Set("short_name", r.name)
		attrs.Set("level", r.level)
		attrs.Set("forecast", r.timeDesc)
		v := &Variable{
			Name:  name,
			Dims:  []string{"time"},
			Shape: []int{len(times)},
			Attrs: attrs,
		}
		if err := d.AddVar(v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func sanitizeLevel(level string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, level)
}
