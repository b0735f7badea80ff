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
	"html"
	"strings"
)

const (
	iconFileText = "<svg class='icon xr-icon-file-text2'><use xlink:href='#icon-file-text2'></use></svg>"
	iconDatabase = "<svg class='icon xr-icon-database'><use xlink:href='#icon-database'></use></svg>"
)

// FormatHTML renders the dataset description as an HTML fragment. The
// fragment uses the same section structure and icon markup as the
// plain-text renderer's upstream counterpart, so the caller's
// substitution table applies to both modes. It never fails, including on
// datasets with no variables and no attributes.
func FormatHTML(d *Dataset) string {
	var b strings.Builder
	b.WriteString("<div class='xr-wrap'>\n")
	b.WriteString("<div class='xr-header'><div class='xr-obj-type'>dataset.Dataset</div></div>\n")

	names, lengths := d.Dims()
	dims := make([]string, len(names))
	for i, n := range names {
		dims[i] = fmt.Sprintf("%s: %d", html.EscapeString(n), lengths[i])
	}
	fmt.Fprintf(&b, "<div class='xr-sections'><div class='xr-section-summary'>Dimensions: (%s)</div>\n",
		strings.Join(dims, ", "))

	writeHTMLSection(&b, "Coordinates", d.Coords(), func(name string) string {
		return htmlVariable(d.Coord(name))
	})
	writeHTMLSection(&b, "Data variables", d.Vars(), func(name string) string {
		return htmlVariable(d.Var(name))
	})
	writeHTMLSection(&b, "Attributes", d.Attrs.Keys(), func(name string) string {
		v, _ := d.Attrs.Get(name)
		return fmt.Sprintf("<dt>%s</dt><dd>%s</dd>",
			html.EscapeString(name), html.EscapeString(fmt.Sprintf("%v", v)))
	})
	b.WriteString("</div>\n</div>")
	return b.String()
}

func writeHTMLSection(b *strings.Builder, title string, names []string, entry func(string) string) {
	fmt.Fprintf(b, "<div class='xr-section'><div class='xr-section-summary'>%s: (%d)</div>\n<ul class='xr-var-list'>\n",
		title, len(names))
	for _, name := range names {
		fmt.Fprintf(b, "<li class='xr-var-item'>%s</li>\n", entry(name))
	}
	b.WriteString("</ul></div>\n")
}

func htmlVariable(v *Variable) string {
	dtype := v.DType
	if dtype == "" {
		dtype = "unknown"
	}
	if len(v.Times) > 0 {
		dtype = "datetime"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<span class='xr-var-name'>%s</span><span class='xr-var-dims'>(%s)</span><span class='xr-var-dtype'>%s</span>",
		html.EscapeString(v.Name),
		html.EscapeString(strings.Join(v.Dims, ", ")), html.EscapeString(dtype))
	b.WriteString(iconFileText)
	if v.Attrs.Len() > 0 {
		b.WriteString("<dl class='xr-var-attrs'>")
		for _, k := range v.Attrs.Keys() {
			av, _ := v.Attrs.Get(k)
			fmt.Fprintf(&b, "<dt>%s</dt><dd>%s</dd>",
				html.EscapeString(k), html.EscapeString(fmt.Sprintf("%v", av)))
		}
		b.WriteString("</dl>")
	}
	b.WriteString(iconDatabase)
	fmt.Fprintf(&b, "<pre class='xr-var-preview'>%s</pre>", html.EscapeString(previewValues(v)))
	return b.String()
}
