/*
Copyright © 2026 Tekian

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package config loads the cargo-deltabuild TOML configuration.
//
// Every field is optional: absent keys keep their defaults, and per-crate
// parser overrides under [parser.crates.<name>] default field-by-field
// rather than replacing the global parser settings wholesale.
package config

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/tekian/cargo-deltabuild/fs"
)

// Parser controls which constructs the source analyzer follows.
type Parser struct {
	// FileRefs enables collecting arguments of file-reference calls, and
	// FileMethods names the callees that qualify.
	FileRefs    bool     `mapstructure:"file_refs"`
	FileMethods []string `mapstructure:"file_methods"`

	// Includes enables collecting literal-inclusion macro arguments, and
	// IncludeMacros names the macros that qualify.
	Includes      bool     `mapstructure:"includes"`
	IncludeMacros []string `mapstructure:"include_macros"`

	// Mods enables following module declarations; ModMacros additionally
	// names macros whose first argument declares a module.
	Mods      bool     `mapstructure:"mods"`
	ModMacros []string `mapstructure:"mod_macros"`

	// Assume attaches files matched by AssumePatterns globs to the crate
	// even though no source construct references them.
	Assume         bool     `mapstructure:"assume"`
	AssumePatterns []string `mapstructure:"assume_patterns"`
}

// Git holds version-control options.
type Git struct {
	// RemoteBranch is the branch diffed against. Empty means detect one.
	RemoteBranch string `mapstructure:"remote_branch"`
}

// Main is the root configuration.
type Main struct {
	FileExcludePatterns []string `mapstructure:"file_exclude_patterns"`
	TripWirePatterns    []string `mapstructure:"trip_wire_patterns"`
	Git                 Git      `mapstructure:"git"`
	Parser              Parser   `mapstructure:"parser"`

	crates map[string]Parser
}

// DefaultParser returns the parser settings used when the configuration
// does not override them.
func DefaultParser() Parser {
	return Parser{
		FileRefs:      true,
		FileMethods:   []string{"file", "from_file", "load", "open", "read", "load_from"},
		Includes:      true,
		IncludeMacros: []string{"include_str", "include_bytes"},
		Mods:          true,
	}
}

// Default returns the configuration used when no config file is given.
func Default() *Main {
	return &Main{
		FileExcludePatterns: []string{".*", "target"},
		Parser:              DefaultParser(),
	}
}

// Load reads a TOML configuration file. An empty path yields the defaults.
func Load(fsys fs.FileSystem, path string) (*Main, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}

	for name := range v.GetStringMap("parser.crates") {
		override := DefaultParser()
		if err := v.UnmarshalKey("parser.crates."+name, &override); err != nil {
			return nil, fmt.Errorf("decoding parser overrides for crate %q: %w", name, err)
		}
		if cfg.crates == nil {
			cfg.crates = make(map[string]Parser)
		}
		cfg.crates[name] = override
	}

	for _, pattern := range slices.Concat(cfg.FileExcludePatterns, cfg.TripWirePatterns) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q in config file", pattern)
		}
	}

	return cfg, nil
}

// CrateConfig returns the parser settings for the named crate: its
// override when one is configured, otherwise the global settings.
func (m *Main) CrateConfig(name string) Parser {
	if override, ok := m.crates[name]; ok {
		return override
	}
	return m.Parser
}

// IsFileMethod reports whether calls to name qualify as file references.
func (p *Parser) IsFileMethod(name string) bool {
	return slices.Contains(p.FileMethods, name)
}

// IsIncludeMacro reports whether name is a literal-inclusion macro.
func (p *Parser) IsIncludeMacro(name string) bool {
	return slices.Contains(p.IncludeMacros, name)
}

// IsModMacro reports whether name is a module-declaring macro.
func (p *Parser) IsModMacro(name string) bool {
	return slices.Contains(p.ModMacros, name)
}
