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
	"strconv"
	"strings"
)

// EmptyRepr is printed in place of a section that has nothing to show.
const EmptyRepr = "    *not enough information for display*"

// FormatOptions configures the plain-text renderer. Options are passed
// explicitly with every render call; nothing is shared between renders.
type FormatOptions struct {
	// ExpandAttrs and ExpandData control whether the attribute and
	// data-variable sections are written out in full.
	ExpandAttrs bool
	ExpandData  bool
	// MaxRows caps the number of lines per section when the section is
	// not expanded. Zero means no cap.
	MaxRows int
	// Summarizer renders the entry for one data variable. When nil,
	// CompactSummary is used.
	Summarizer func(v *Variable, colWidth int) string
}

// DefaultOptions returns the renderer configuration used by the
// inspector: all sections expanded, attribute blocks reprinted beneath
// each data variable.
func DefaultOptions() FormatOptions {
	return FormatOptions{
		ExpandAttrs: true,
		ExpandData:  true,
		MaxRows:     100,
		Summarizer:  ExpandedSummary,
	}
}

// Format renders the dataset description as plain text.
func Format(d *Dataset, opts FormatOptions) string {
	if opts.Summarizer == nil {
		opts.Summarizer = CompactSummary
	}
	colWidth := columnWidth(d)
	var b strings.Builder
	b.WriteString("<dataset.Dataset>\n")

	names, lengths := d.Dims()
	dims := make([]string, len(names))
	for i, n := range names {
		dims[i] = fmt.Sprintf("%s: %d", n, lengths[i])
	}
	fmt.Fprintf(&b, "Dimensions:  (%s)\n", strings.Join(dims, ", "))

	b.WriteString("Coordinates:\n")
	writeSection(&b, d.Coords(), opts.ExpandData, opts.MaxRows, func(name string) string {
		return CompactSummary(d.Coord(name), colWidth)
	})

	b.WriteString("Data variables:\n")
	writeSection(&b, d.Vars(), opts.ExpandData, opts.MaxRows, func(name string) string {
		return opts.Summarizer(d.Var(name), colWidth)
	})

	b.WriteString("Attributes:\n")
	writeSection(&b, d.Attrs.Keys(), opts.ExpandAttrs, opts.MaxRows, func(name string) string {
		v, _ := d.Attrs.Get(name)
		return fmt.Sprintf("    %s: %v", name, v)
	})
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, names []string, expand bool, maxRows int, entry func(string) string) {
	if len(names) == 0 {
		b.WriteString(EmptyRepr + "\n")
		return
	}
	for i, name := range names {
		if !expand && maxRows > 0 && i >= maxRows {
			fmt.Fprintf(b, "    ... (%d more)\n", len(names)-i)
			return
		}
		b.WriteString(entry(name) + "\n")
	}
}

func columnWidth(d *Dataset) int {
	w := 0
	for _, n := range d.Coords() {
		if len(n) > w {
			w = len(n)
		}
	}
	for _, n := range d.Vars() {
		if len(n) > w {
			w = len(n)
		}
	}
	return w + 6
}

// CompactSummary renders a variable as a single line: name, dimensions,
// element type and a short preview of its values.
func CompactSummary(v *Variable, colWidth int) string {
	marker := "    "
	if len(v.Dims) == 1 && v.Dims[0] == v.Name {
		marker = "  * "
	}
	lhs := marker + v.Name
	for len(lhs) < colWidth {
		lhs += " "
	}
	dtype := v.DType
	if dtype == "" {
		dtype = "unknown"
	}
	if len(v.Times) > 0 {
		dtype = "datetime"
	}
	return fmt.Sprintf("%s (%s) %s %s", lhs, strings.Join(v.Dims, ", "), dtype, previewValues(v))
}

// ExpandedSummary renders a variable as its compact one-line summary
// followed by the variable's attributes, indented to line up beneath it.
func ExpandedSummary(v *Variable, colWidth int) string {
	out := []string{CompactSummary(v, colWidth)}
	if v.Attrs.Len() > 0 {
		nSpaces := 0
		for _, r := range out[0] {
			if r != ' ' {
				break
			}
			nSpaces++
		}
		indent := strings.Repeat(" ", nSpaces)
		for _, line := range strings.Split(attrsRepr(v.Attrs), "\n") {
			out = append(out, indent+line)
		}
	}
	return strings.Join(out, "\n")
}

func attrsRepr(attrs *Attributes) string {
	lines := []string{"Attributes:"}
	for _, k := range attrs.Keys() {
		v, _ := attrs.Get(k)
		lines = append(lines, fmt.Sprintf("    %s: %v", k, v))
	}
	return strings.Join(lines, "\n")
}

func previewValues(v *Variable) string {
	const layout = "2006-01-02T15:04:05"
	if len(v.Times) > 0 {
		if len(v.Times) <= 4 {
			parts := make([]string, len(v.Times))
			for i, t := range v.Times {
				parts[i] = t.Format(layout)
			}
			return strings.Join(parts, " ")
		}
		return fmt.Sprintf("%s %s ... %s",
			v.Times[0].Format(layout), v.Times[1].Format(layout),
			v.Times[len(v.Times)-1].Format(layout))
	}
	if v.Data != nil {
		e := v.Data.Elements
		if len(e) <= 4 {
			parts := make([]string, len(e))
			for i, f := range e {
				parts[i] = formatFloat(f)
			}
			return strings.Join(parts, " ")
		}
		return fmt.Sprintf("%s %s ... %s %s",
			formatFloat(e[0]), formatFloat(e[1]),
			formatFloat(e[len(e)-2]), formatFloat(e[len(e)-1]))
	}
	return "..."
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 5, 64)
}
