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
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// knownExtensions are the dataset file suffixes picked up when scanning
// directories and expanding globs.
var knownExtensions = map[string]bool{
	".nc":    true,
	".nc4":   true,
	".grb":   true,
	".grib":  true,
	".grib2": true,
	".grb2":  true,
	".h5":    true,
	".hdf5":  true,
}

// DefaultArchiveMounts are the leading path components that mark a path
// as archive-resident when no explicit scheme says so.
var DefaultArchiveMounts = []string{"arch", "hsm"}

var remoteSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"s3":    true,
	"gs":    true,
	"gcs":   true,
}

// FindFiles partitions the inputs into filesystem-resident entries
// (openable directly) and archive-resident entries (describable only
// through archive metadata). Each input lands in exactly one category;
// the rules are tried in order:
//
//	1. remote URL schemes stay in the filesystem set untouched;
//	2. an hsm:/slk: scheme, or a leading path component naming one of
//	   the archive mounts, marks the path archive-resident;
//	3. an existing .zarr store is filesystem-resident;
//	4. an existing directory contributes every descendant file with a
//	   known dataset suffix;
//	5. any other existing regular file is taken as-is, it was named
//	   explicitly;
//	6. otherwise, if the parent directory exists, the final path
//	   component is treated as a glob over the parent's descendants.
//
// Both results are deduplicated and sorted.
func FindFiles(inputs []string, mounts []string) (filesystem, archive []string) {
	if mounts == nil {
		mounts = DefaultArchiveMounts
	}
	for _, input := range inputs {
		scheme, p := splitScheme(input)
		abs := absPath(p)
		switch {
		case isRemote(input):
			filesystem = append(filesystem, input)
		case scheme == "hsm" || scheme == "slk" || onArchiveMount(abs, mounts):
			archive = append(archive, abs)
		case exists(abs) && strings.EqualFold(filepath.Ext(abs), ".zarr"):
			filesystem = append(filesystem, abs)
		case isDir(abs):
			filesystem = append(filesystem, scanDir(abs, matchExtension)...)
		case isFile(abs):
			filesystem = append(filesystem, abs)
		case isDir(filepath.Dir(abs)):
			pattern := filepath.Base(abs)
			filesystem = append(filesystem, scanDir(filepath.Dir(abs), func(name string) bool {
				ok, err := filepath.Match(pattern, name)
				return err == nil && ok && matchExtension(name)
			})...)
		}
	}
	return dedupeSorted(filesystem), dedupeSorted(archive)
}

// isRemote reports whether the input is a URL opened remotely rather
// than resolved against the local filesystem.
func isRemote(input string) bool {
	u, err := url.Parse(input)
	return err == nil && remoteSchemes[u.Scheme]
}

// splitScheme separates an optional scheme prefix from the path it
// qualifies. Inputs without a colon are all path.
func splitScheme(input string) (scheme, path string) {
	i := strings.Index(input, ":")
	if i < 0 {
		return "", input
	}
	if input[i+1:] == "" {
		return "", input[:i]
	}
	return input[:i], input[i+1:]
}

func absPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func onArchiveMount(abs string, mounts []string) bool {
	parts := strings.Split(strings.TrimPrefix(abs, string(filepath.Separator)), string(filepath.Separator))
	if len(parts) == 0 {
		return false
	}
	for _, m := range mounts {
		if parts[0] == m {
			return true
		}
	}
	return false
}

func matchExtension(name string) bool {
	return knownExtensions[strings.ToLower(filepath.Ext(name))]
}

func scanDir(dir string, match func(name string) bool) []string {
	var out []string
	filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if match(filepath.Base(p)) {
			out = append(out, p)
		}
		return nil
	})
	return out
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func dedupeSorted(paths []string) []string {
	sort.Strings(paths)
	var out []string
	for i, p := range paths {
		if i == 0 || paths[i-1] != p {
			out = append(out, p)
		}
	}
	return out
}
