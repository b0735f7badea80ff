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
	"strings"

	"github.com/spatialmodel/inspector/archive"
	"github.com/spatialmodel/inspector/dataset"
)

// OpenDatasets assembles one logical dataset from the classified inputs.
// Filesystem inputs are opened for real (a single Zarr store or remote
// URL, or a by-coordinate combination of conventional files); archive
// inputs trigger a single login and become virtual datasets built from
// metadata. Open failures are not retried: a file that cannot be opened
// is a correctness signal surfaced to the caller verbatim.
func OpenDatasets(ctx context.Context, fsPaths, archivePaths []string, p archive.Provider, auth *archive.Authenticator) (*dataset.Dataset, error) {
	var dsets []*dataset.Dataset
	if len(fsPaths) > 0 {
		var d *dataset.Dataset
		var err error
		if strings.HasSuffix(fsPaths[0], ".zarr") || isRemote(fsPaths[0]) {
			d, err = dataset.OpenZarr(ctx, fsPaths[0])
		} else {
			d, err = dataset.OpenMulti(ctx, fsPaths)
		}
		if err != nil {
			return nil, err
		}
		dsets = append(dsets, d)
	}
	if len(archivePaths) > 0 {
		if auth == nil {
			auth = &archive.Authenticator{}
		}
		if err := auth.Login(ctx); err != nil {
			return nil, err
		}
		for _, path := range archivePaths {
			d, err := VirtualDataset(archive.Fetch(p, path))
			if err != nil {
				return nil, err
			}
			dsets = append(dsets, d)
		}
	}
	return dataset.Merge(dsets)
}
