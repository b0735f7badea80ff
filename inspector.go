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

// Package inspector inspects the structure of weather and climate
// dataset files: dimensions, coordinates, data variables and global
// attributes. Inputs may live on the local filesystem, behind remote
// URLs, or on the HSM tape archive, where a description is reconstructed
// from textual metadata without reading any data.
package inspector

// Version is the semantic version of the tool.
const Version = "0.4.2"
