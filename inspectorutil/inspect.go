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

package inspectorutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/spatialmodel/inspector"
	"github.com/spatialmodel/inspector/archive"
	"github.com/spatialmodel/inspector/dataset"
)

// errorHeader prefaces open failures in plain-text mode.
const errorHeader = "No data found, file(s) might be corrupted. See err. message below:"

// htmlErrorBlock masks open failures in HTML mode, where a raw error
// message would break the embedding page.
const htmlErrorBlock = "<p><b>Error:</b>Could not open dataset for more details do not use the --html flag.</p>"

// Inspect classifies the inputs, assembles the merged dataset and
// renders its description. The returned flag says whether the message is
// a diagnostic that belongs on standard error.
func Inspect(ctx context.Context, inputs []string, html bool) (string, bool) {
	filesFS, filesArchive := inspector.FindFiles(inputs, Cfg.GetStringSlice("archive-mounts"))
	if len(filesFS) == 0 && len(filesArchive) == 0 {
		return "No files found", true
	}

	provider := &archive.SLK{
		Command:    Cfg.GetString("slk-command"),
		SearchPath: Cfg.GetStringSlice("slk-search-path"),
	}
	auth := &archive.Authenticator{
		URL:         Cfg.GetString("auth-url"),
		SessionPath: Cfg.GetString("session-path"),
		SearchPath:  Cfg.GetStringSlice("slk-search-path"),
	}
	dset, err := inspector.OpenDatasets(ctx, filesFS, filesArchive, provider, auth)
	if err != nil {
		if html {
			return htmlErrorBlock, false
		}
		return errorHeader + "\n" + err.Error(), true
	}
	return Render(dset, html), false
}

// Render produces the final representation of a dataset: the library
// rendering, rebranded with the computed size label and cleaned of
// library-internal markup and type-name prefixes.
func Render(dset *dataset.Dataset, html bool) string {
	var fsize string
	if dset.NBytes() == 0 {
		fsize = "unknown"
		if v, ok := dset.Attrs.Pop("file_size"); ok {
			fsize = fmt.Sprintf("%v", v)
		}
	} else {
		fsize = humanize.Bytes(uint64(dset.NBytes()))
	}

	var out string
	if html {
		out = dataset.FormatHTML(dset)
	} else {
		out = dataset.Format(dset, dataset.DefaultOptions())
	}
	replacer := strings.NewReplacer(
		"dataset.Dataset", fmt.Sprintf("Dataset (dataset-size: %s)", fsize),
		"<svg class='icon xr-icon-file-text2'>", "<i class='fa fa-file-text-o'>",
		"<svg class='icon xr-icon-database'>", "<i class='fa fa-database'>",
		"</use></svg>", "</use></i>",
		"sparse.", "",
		"cdf.", "",
		"hdf5.", "",
	)
	return replacer.Replace(out)
}
