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

// Package archive retrieves descriptions of objects that live on the HSM
// tape archive. Until the archive exposes a usable REST API the only
// metadata channel is the slk command line tool family, so the package
// wraps those commands behind a Provider interface and parses their
// near-YAML output.
package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.Out = os.Stderr
}

// Metadata maps section names ("netcdf", "netcdf_header", "document") to
// raw attribute key/value pairs.
type Metadata map[string]map[string]string

// Provider returns archive metadata for a path. Implementations may
// shell out to command line tools or talk to a network service; callers
// never see the difference.
type Provider interface {
	Metadata(path string) (Metadata, error)
	Size(path string) (int64, error)
}

// SLK is a Provider backed by the slk_helpers command line tool.
type SLK struct {
	// Command is the helper executable. Empty means "slk_helpers".
	Command string
	// SearchPath holds directories prepended to PATH when running the
	// helpers, for installs that are not on the default search path.
	SearchPath []string
}

func (s *SLK) command() string {
	if s.Command == "" {
		return "slk_helpers"
	}
	return s.Command
}

// Metadata runs `slk_helpers metadata <path>` and parses its output.
func (s *SLK) Metadata(path string) (Metadata, error) {
	out, err := s.run("metadata", path)
	if err != nil {
		return nil, err
	}
	return ParseMetadata(strings.NewReader(out)), nil
}

// Size runs `slk_helpers size <path>` and returns the byte count.
func (s *SLK) Size(path string) (int64, error) {
	out, err := s.run("size", path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("archive: unexpected size output %q: %v", strings.TrimSpace(out), err)
	}
	return n, nil
}

func (s *SLK) run(args ...string) (string, error) {
	cmd := exec.Command(s.executable(), args...)
	cmd.Env = s.environ()
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("archive: %s %s: %v", s.command(), strings.Join(args, " "), err)
	}
	return string(out), nil
}

// executable resolves the helper command, preferring the configured
// install directories over the process search path.
func (s *SLK) executable() string {
	cmd := s.command()
	if strings.ContainsRune(cmd, os.PathSeparator) {
		return cmd
	}
	for _, dir := range s.SearchPath {
		p := filepath.Join(dir, cmd)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return cmd
}

var moduleEnvLine = regexp.MustCompile(`\['([^']*)`)

// environ builds the child environment: the configured install
// directories are prepended to PATH, and only when the helper resolves
// neither there nor on the process search path is the environment module
// command consulted for the variables an `slk` module load would set.
func (s *SLK) environ() []string {
	env := os.Environ()
	if len(s.SearchPath) > 0 {
		prefix := strings.Join(s.SearchPath, string(os.PathListSeparator))
		found := false
		for i, kv := range env {
			if strings.HasPrefix(kv, "PATH=") {
				env[i] = "PATH=" + prefix + string(os.PathListSeparator) + strings.TrimPrefix(kv, "PATH=")
				found = true
			}
		}
		if !found {
			env = append(env, "PATH="+prefix)
		}
	}
	resolved := s.executable()
	if strings.ContainsRune(resolved, os.PathSeparator) {
		if info, err := os.Stat(resolved); err == nil && info.Mode().IsRegular() {
			return env
		}
	} else if _, err := exec.LookPath(resolved); err == nil {
		return env
	}
	moduleCmd := os.Getenv("MODULES_CMD")
	if moduleCmd == "" {
		moduleCmd = "/usr/share/Modules/libexec/modulecmd.tcl"
	}
	out, err := exec.Command(moduleCmd, "python", "load", "slk").Output()
	if err != nil {
		log.Warnf("Could not load slk: %v", err)
		return env
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "=") {
			continue
		}
		key := line[:strings.Index(line, "=")]
		value := line[strings.Index(line, "=")+1:]
		m := moduleEnvLine.FindStringSubmatch(strings.TrimSpace(key))
		if m == nil || strings.TrimSpace(m[1]) == "" {
			continue
		}
		env = append(env, strings.TrimSpace(m[1])+"="+strings.ReplaceAll(strings.TrimSpace(value), "'", ""))
	}
	return env
}

// Fetch retrieves and parses the metadata for an archive path, attaching
// the humanized object size as a derived file_size attribute of the
// netcdf section. A failing provider is downgraded to a warning and an
// empty mapping so the caller can proceed with partial information.
func Fetch(p Provider, path string) Metadata {
	meta, err := p.Metadata(path)
	if err != nil {
		log.Warnf("Error: could not get meta-data: %v", err)
		return Metadata{}
	}
	if meta == nil {
		meta = Metadata{}
	}
	fileSize := "unknown"
	if n, err := p.Size(path); err == nil {
		fileSize = humanize.Bytes(uint64(n))
	} else {
		log.Warnf("Error: could not get object size: %v", err)
	}
	if meta["netcdf"] == nil {
		meta["netcdf"] = make(map[string]string)
	}
	meta["netcdf"]["file_size"] = fileSize
	return meta
}

// Parser states.
type parseState int

const (
	noSection parseState = iota
	inSection
)

// ParseMetadata reads the near-YAML text emitted by `slk_helpers
// metadata`. The format is not valid YAML: section headers lack their
// trailing colon, and long values wrap onto bare continuation lines. The
// parser is a line-oriented state machine:
//
//	- an unindented known section name opens a new section;
//	- an indented "key: value" line sets the current key;
//	- any other non-blank line continues the current key's value;
//	- blank lines are skipped.
func ParseMetadata(r io.Reader) Metadata {
	data := Metadata{}
	state := noSection
	var section, key string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if name, ok := sectionStart(line); ok {
			section = name
			key = ""
			state = inSection
			data[section] = make(map[string]string)
			continue
		}
		if state == noSection {
			// Content before any section header has nowhere to go.
			continue
		}
		indented := line[0] == ' ' || line[0] == '\t'
		if indented && strings.Contains(line, ":") {
			k, v := splitKeyValue(line)
			key = k
			data[section][key] = v
			continue
		}
		if key == "" {
			continue
		}
		data[section][key] += strings.TrimSpace(line)
	}
	return data
}

var sectionNames = map[string]bool{
	"netcdf":          true,
	"netcdf_header":   true,
	"document":        true,
	"document_header": true,
}

func sectionStart(line string) (string, bool) {
	if line[0] == ' ' || line[0] == '\t' {
		return "", false
	}
	name := strings.TrimSpace(line)
	return name, sectionNames[name]
}

func splitKeyValue(line string) (string, string) {
	i := strings.Index(line, ":")
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
}
