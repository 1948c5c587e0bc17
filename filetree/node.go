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

// Package filetree builds and queries the per-crate file dependency
// tree: every file a crate's compilation actually consumes, discovered
// by static analysis of its sources.
package filetree

import (
	"path/filepath"
	"slices"
	"strings"
)

// Kind tags what a node in the file tree represents.
type Kind string

const (
	KindWorkspace          Kind = "Workspace"
	KindCrate              Kind = "Crate"
	KindTarget             Kind = "Target"
	KindModule             Kind = "Module"
	KindModulePathOverride Kind = "ModulePathOverride"
	KindLiteralInclusion   Kind = "LiteralInclusion"
	KindFileReference      Kind = "FileReference"
	KindAssumePattern      Kind = "AssumePattern"
	KindUnset              Kind = "Unset"
)

// Node is one file in the dependency tree.
type Node struct {
	Path     string  `json:"path"`
	Kind     Kind    `json:"kind"`
	Children []*Node `json:"children,omitempty"`
}

// NewNode creates a childless node.
func NewNode(path string, kind Kind) *Node {
	return &Node{Path: path, Kind: kind}
}

// AddChild appends child unless a sibling with the same path already
// exists. The first insertion wins, regardless of kind.
func (n *Node) AddChild(child *Node) {
	for _, existing := range n.Children {
		if existing.Path == child.Path {
			return
		}
	}
	n.Children = append(n.Children, child)
}

// Len counts the nodes in the tree, including the receiver.
func (n *Node) Len() int {
	total := 1
	for _, child := range n.Children {
		total += child.Len()
	}
	return total
}

// MakeRelative rewrites every path in the tree to be relative to root.
// Paths outside root keep their absolute form, so the pass is
// idempotent.
func (n *Node) MakeRelative(root string) {
	n.Path = makeRelative(n.Path, root)
	for _, child := range n.Children {
		child.MakeRelative(root)
	}
}

func makeRelative(path, root string) string {
	prefix := strings.TrimSuffix(root, "/") + "/"
	if rest, ok := strings.CutPrefix(path, prefix); ok {
		return rest
	}
	return path
}

// Distinct returns the set of every path in the tree.
func (n *Node) Distinct() map[string]struct{} {
	paths := make(map[string]struct{})
	n.collect(paths)
	return paths
}

func (n *Node) collect(paths map[string]struct{}) {
	paths[n.Path] = struct{}{}
	for _, child := range n.Children {
		child.collect(paths)
	}
}

// CratesContaining returns the name of every crate whose subtree
// contains path. A crate's name is the base name of its manifest's
// parent directory. Shared files legitimately report several crates.
func (n *Node) CratesContaining(path string) []string {
	var found []string
	n.findCrates(path, "", &found)
	return found
}

func (n *Node) findCrates(path, crate string, found *[]string) {
	if n.Kind == KindCrate {
		crate = filepath.Base(filepath.Dir(n.Path))
	}
	if n.Path == path && crate != "" && !slices.Contains(*found, crate) {
		*found = append(*found, crate)
	}
	for _, child := range n.Children {
		child.findCrates(path, crate, found)
	}
}
