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

import "fmt"

// Merge combines datasets into one. The merge is strict: a coordinate,
// data variable, or global attribute appearing in more than one input
// must be identical everywhere it appears, otherwise an error is
// returned.
func Merge(dsets []*Dataset) (*Dataset, error) {
	if len(dsets) == 0 {
		return nil, fmt.Errorf("dataset: nothing to merge")
	}
	out := New()
	for _, d := range dsets {
		for _, name := range d.Coords() {
			c := d.Coord(name)
			if prev := out.Coord(name); prev != nil {
				if !prev.equal(c) {
					return nil, fmt.Errorf("dataset: conflicting values for coordinate %s", name)
				}
				continue
			}
			if err := out.SetCoord(c); err != nil {
				return nil, err
			}
		}
		for _, name := range d.Vars() {
			v := d.Var(name)
			if prev := out.Var(name); prev != nil {
				if !prev.equal(v) {
					return nil, fmt.Errorf("dataset: conflicting values for variable %s", name)
				}
				continue
			}
			if err := out.AddVar(v); err != nil {
				return nil, err
			}
		}
		for _, k := range d.Attrs.Keys() {
			v, _ := d.Attrs.Get(k)
			if prev, ok := out.Attrs.Get(k); ok {
				if fmt.Sprintf("%v", prev) != fmt.Sprintf("%v", v) {
					return nil, fmt.Errorf("dataset: conflicting values for attribute %s", k)
				}
				continue
			}
			out.Attrs.Set(k, v)
		}
	}
	return out, nil
}
