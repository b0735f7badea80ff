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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ctessum/sparse"
	"github.com/gonum/floats"
	"github.com/spf13/cast"

	"github.com/spatialmodel/inspector/archive"
	"github.com/spatialmodel/inspector/dataset"
)

// VirtualDataset reconstructs a dataset description purely from archive
// metadata: coordinate values are computed from each dimension's linear
// start/end range, and data variables become placeholder arrays of the
// right shape that are never materialized. The structured description
// lives as JSON under the document section's Keywords attribute; when it
// is absent the result carries only the raw netcdf header attributes.
func VirtualDataset(meta archive.Metadata) (*dataset.Dataset, error) {
	payload := "{}"
	if kw, ok := meta["document"]["Keywords"]; ok {
		payload = kw
	}
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &attrs); err != nil {
		return nil, fmt.Errorf("inspector: undecodable Keywords metadata: %v", err)
	}

	d := dataset.New()
	if err := setGlobalAttrs(d, attrs, meta); err != nil {
		return nil, err
	}

	var dims []string
	if raw, ok := attrs["dims"]; ok {
		if err := json.Unmarshal(raw, &dims); err != nil {
			return nil, fmt.Errorf("inspector: undecodable dimension list: %v", err)
		}
	}
	// Dimensions first, in listed order: data-variable shapes are looked
	// up from the coordinate lengths registered here.
	for _, dim := range dims {
		v, err := buildCoord(dim, attrs)
		if err != nil {
			return nil, err
		}
		if err := d.SetCoord(v); err != nil {
			return nil, err
		}
	}

	var dataVars []string
	if raw, ok := attrs["data_vars"]; ok {
		if err := json.Unmarshal(raw, &dataVars); err != nil {
			return nil, fmt.Errorf("inspector: undecodable data variable list: %v", err)
		}
	}
	for _, name := range dataVars {
		v, err := buildDataVar(name, attrs)
		if err != nil {
			return nil, err
		}
		if err := d.AddVar(v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// setGlobalAttrs installs the dataset's global attributes: the parsed
// "global" mapping when present, otherwise the merged raw attributes of
// the netcdf and netcdf_header sections.
func setGlobalAttrs(d *dataset.Dataset, attrs map[string]json.RawMessage, meta archive.Metadata) error {
	var global map[string]interface{}
	if raw, ok := attrs["global"]; ok {
		if err := json.Unmarshal(raw, &global); err != nil {
			return fmt.Errorf("inspector: undecodable global attributes: %v", err)
		}
	}
	if len(global) > 0 {
		for _, k := range sortedKeys(global) {
			d.Attrs.Set(k, global[k])
		}
		return nil
	}
	merged := make(map[string]interface{})
	for _, section := range []string{"netcdf", "netcdf_header"} {
		for k, v := range meta[section] {
			merged[k] = v
		}
	}
	for _, k := range sortedKeys(merged) {
		d.Attrs.Set(k, merged[k])
	}
	return nil
}

// buildCoord turns one dimension entry (size plus a linear start/end
// range) into a coordinate variable with real, evenly spaced values. The
// dimension named "time" additionally gets calendar labels decoded from
// its units and calendar attributes.
func buildCoord(dim string, attrs map[string]json.RawMessage) (*dataset.Variable, error) {
	entry, err := dimensionEntry(dim, attrs)
	if err != nil {
		return nil, err
	}
	size, err := cast.ToIntE(entry["size"])
	if err != nil || size <= 0 {
		return nil, fmt.Errorf("inspector: dimension %s has no usable size", dim)
	}
	start, err := cast.ToFloat64E(entry["start"])
	if err != nil {
		return nil, fmt.Errorf("inspector: dimension %s has no usable start: %v", dim, err)
	}
	end, err := cast.ToFloat64E(entry["end"])
	if err != nil {
		return nil, fmt.Errorf("inspector: dimension %s has no usable end: %v", dim, err)
	}

	values := make([]float64, size)
	if size == 1 {
		values[0] = start
	} else {
		floats.Span(values, start, end)
	}
	arr := sparse.ZerosDense(size)
	copy(arr.Elements, values)

	v := &dataset.Variable{
		Name:  dim,
		Dims:  []string{dim},
		Shape: []int{size},
		Data:  arr,
		DType: "float64",
		Attrs: dataset.NewAttributes(),
	}
	for _, k := range sortedKeys(entry) {
		if k == "size" || k == "start" || k == "end" {
			continue
		}
		v.Attrs.Set(k, entry[k])
	}
	if dim == "time" {
		times, err := dataset.DecodeTime(values,
			cast.ToString(entry["units"]), cast.ToString(entry["calendar"]))
		if err != nil {
			return nil, fmt.Errorf("inspector: decoding time axis: %v", err)
		}
		v.Times = times
	}
	return v, nil
}

// buildDataVar turns one data-variable entry into a placeholder array.
// The shape is left for the dataset to resolve from the coordinates the
// variable ranges over.
func buildDataVar(name string, attrs map[string]json.RawMessage) (*dataset.Variable, error) {
	entry, err := dimensionEntry(name, attrs)
	if err != nil {
		return nil, err
	}
	var dims []string
	if rawDims, ok := entry["dims"]; ok {
		for _, d := range cast.ToSlice(rawDims) {
			dims = append(dims, cast.ToString(d))
		}
	} else {
		return nil, fmt.Errorf("inspector: data variable %s lists no dimensions", name)
	}
	v := &dataset.Variable{
		Name:  name,
		Dims:  dims,
		Attrs: dataset.NewAttributes(),
	}
	for _, k := range sortedKeys(entry) {
		if k == "dims" {
			continue
		}
		v.Attrs.Set(k, entry[k])
	}
	return v, nil
}

func dimensionEntry(name string, attrs map[string]json.RawMessage) (map[string]interface{}, error) {
	raw, ok := attrs[name]
	if !ok {
		return nil, fmt.Errorf("inspector: metadata describes no entry for %s", name)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("inspector: undecodable entry for %s: %v", name, err)
	}
	return entry, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
