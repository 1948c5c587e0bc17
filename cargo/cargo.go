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

// Package cargo queries `cargo metadata` for the workspace layout.
package cargo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tekian/cargo-deltabuild/cmdrun"
)

// Dependency is one declared dependency of a package.
type Dependency struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Target is one build target of a package.
type Target struct {
	Name    string   `json:"name"`
	Kind    []string `json:"kind"`
	SrcPath string   `json:"src_path"`
}

// Package is one package known to cargo.
type Package struct {
	Name         string       `json:"name"`
	Source       string       `json:"source"`
	Targets      []Target     `json:"targets"`
	ManifestPath string       `json:"manifest_path"`
	Dependencies []Dependency `json:"dependencies"`
}

// Metadata is the decoded `cargo metadata` document.
type Metadata struct {
	Packages        []Package `json:"packages"`
	WorkspaceRoot   string    `json:"workspace_root"`
	TargetDirectory string    `json:"target_directory"`
}

// Load runs `cargo metadata` in the current directory and decodes it.
func Load(runner cmdrun.Runner) (*Metadata, error) {
	result, err := runner.Run("cargo", []string{"metadata", "--format-version", "1", "--no-deps"}, "")
	if err != nil {
		return nil, fmt.Errorf("running cargo metadata: %w", err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("cargo metadata failed: %s", bytes.TrimSpace(result.Stderr))
	}

	var meta Metadata
	if err := json.Unmarshal(result.Stdout, &meta); err != nil {
		return nil, fmt.Errorf("decoding cargo metadata: %w", err)
	}
	return &meta, nil
}

// IsWorkspaceMember reports whether the package lives in the workspace.
// Registry and other external packages carry a source marker; workspace
// members do not.
func (p *Package) IsWorkspaceMember() bool {
	return p.Source == ""
}

// IsWorkspaceMember reports whether the dependency resolves inside the
// workspace rather than to a registry.
func (d *Dependency) IsWorkspaceMember() bool {
	return d.Source == ""
}

// WorkspaceCrates returns the workspace-local packages.
func (m *Metadata) WorkspaceCrates() []*Package {
	var members []*Package
	for i := range m.Packages {
		if m.Packages[i].IsWorkspaceMember() {
			members = append(members, &m.Packages[i])
		}
	}
	return members
}
