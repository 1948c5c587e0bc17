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

// Package crates models the dependency graph between workspace crates.
package crates

import (
	"encoding/json"
	"slices"
	"sort"

	"github.com/tekian/cargo-deltabuild/cargo"
)

// Graph maps each workspace crate to its in-workspace dependencies.
// External dependencies are not represented; impact only propagates
// between crates the workspace builds itself.
//
// A crate absent from the graph is unknown, which every query reports
// distinctly from a crate that is present with no dependencies.
type Graph struct {
	crates map[string][]string
}

// New creates a graph from an adjacency map.
func New(crates map[string][]string) *Graph {
	return &Graph{crates: crates}
}

// Parse builds the graph from cargo metadata: workspace members only,
// each with the workspace-local subset of its declared dependencies.
// Duplicate declarations keep their first occurrence.
func Parse(meta *cargo.Metadata) *Graph {
	members := make(map[string]struct{})
	for _, pkg := range meta.WorkspaceCrates() {
		members[pkg.Name] = struct{}{}
	}

	g := &Graph{crates: make(map[string][]string)}
	for _, pkg := range meta.WorkspaceCrates() {
		deps := []string{}
		for _, dep := range pkg.Dependencies {
			if !dep.IsWorkspaceMember() {
				continue
			}
			if _, ok := members[dep.Name]; !ok {
				continue
			}
			if !slices.Contains(deps, dep.Name) {
				deps = append(deps, dep.Name)
			}
		}
		g.crates[pkg.Name] = deps
	}
	return g
}

// Len returns the number of crates in the graph.
func (g *Graph) Len() int {
	return len(g.crates)
}

// Names returns every crate name, sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.crates))
	for name := range g.crates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the direct workspace dependencies of name in
// declaration order. The second result is false for unknown crates.
func (g *Graph) Dependencies(name string) ([]string, bool) {
	deps, ok := g.crates[name]
	return deps, ok
}

// Dependents returns the crates that depend directly on name, sorted.
// The second result is false for unknown crates; a known crate nothing
// depends on yields an empty list.
func (g *Graph) Dependents(name string) ([]string, bool) {
	if _, ok := g.crates[name]; !ok {
		return nil, false
	}
	var dependents []string
	for crate, deps := range g.crates {
		if slices.Contains(deps, name) {
			dependents = append(dependents, crate)
		}
	}
	sort.Strings(dependents)
	return dependents, true
}

// TransitiveDependencies returns every crate reachable from name
// through the dependency relation, sorted. The start crate is excluded
// unless a cycle leads back to it.
func (g *Graph) TransitiveDependencies(name string) ([]string, bool) {
	return g.closure(name, func(crate string) []string {
		return g.crates[crate]
	})
}

// TransitiveDependents returns every crate that directly or indirectly
// depends on name, under the same rules as TransitiveDependencies.
func (g *Graph) TransitiveDependents(name string) ([]string, bool) {
	return g.closure(name, func(crate string) []string {
		dependents, _ := g.Dependents(crate)
		return dependents
	})
}

// closure runs a worklist traversal over the relation given by next.
func (g *Graph) closure(name string, next func(string) []string) ([]string, bool) {
	if _, ok := g.crates[name]; !ok {
		return nil, false
	}

	all := make(map[string]struct{})
	visited := make(map[string]struct{})
	stack := []string{name}
	for len(stack) > 0 {
		crate := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[crate]; seen {
			continue
		}
		visited[crate] = struct{}{}
		for _, n := range next(crate) {
			if _, ok := all[n]; !ok {
				all[n] = struct{}{}
				stack = append(stack, n)
			}
		}
	}

	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, true
}

// MarshalJSON encodes the graph as a plain name-to-dependencies object.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.crates)
}

// UnmarshalJSON decodes the plain object form.
func (g *Graph) UnmarshalJSON(data []byte) error {
	g.crates = make(map[string][]string)
	return json.Unmarshal(data, &g.crates)
}
