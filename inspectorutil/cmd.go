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

// Package inspectorutil holds the command line interface of the
// metadata-inspector tool.
package inspectorutil

import (
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spatialmodel/inspector"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the inspector.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "html",
			usage: `
              html creates an html representation of the dataset instead
              of plain text.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "version",
			usage: `
              version prints the program version and exits.`,
			shorthand:  "V",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "archive-mounts",
			usage: `
              archive-mounts lists the leading path components that mark
              an input as residing on the tape archive.`,
			defaultVal: inspector.DefaultArchiveMounts,
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "slk-command",
			usage: `
              slk-command is the name of the slk_helpers executable used
              to retrieve archive metadata.`,
			defaultVal: "slk_helpers",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "slk-search-path",
			usage: `
              slk-search-path lists directories prepended to PATH when
              running the archive command line tools.`,
			defaultVal: []string{"/sw/spack-levante/slk-3.3.21-5xnsgp/bin"},
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "session-path",
			usage: `
              session-path overrides the location of the archive session
              file. The default is ~/.slk/config.json.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
		{
			name: "auth-url",
			usage: `
              auth-url is the archive authentication endpoint used to
              mint session keys.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("INSPECTOR")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "metadata-inspector <input>...",
	Short: "Inspect metadata of weather and climate datasets.",
	Long: `metadata-inspector prints a summary of the structure of weather and
climate dataset files: their dimensions, coordinates, data variables and
global attributes. Inputs may be file paths, directories, glob patterns,
remote URLs, or hsm:/slk: references to objects on the tape archive,
which are described from their archived metadata without reading data.

Configuration can be changed by using command-line arguments or by
setting environment variables in the format 'INSPECTOR_var' where 'var'
is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Cfg.GetBool("version") {
			fmt.Fprintf(cmd.OutOrStdout(), "metadata-inspector %s\n", inspector.Version)
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("at least one input must be given")
		}
		msg, toStderr := Inspect(context.Background(), args, Cfg.GetBool("html"))
		out := cmd.OutOrStdout()
		if toStderr {
			out = cmd.OutOrStderr()
		}
		fmt.Fprintln(out, msg)
		return nil
	},
}

// Execute runs the command line interface. Failures are printed, not
// raised: the exit status is zero regardless of what the inspection
// found.
func Execute() {
	if err := Root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
