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

package filetree

import (
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tekian/cargo-deltabuild/cargo"
	"github.com/tekian/cargo-deltabuild/config"
	"github.com/tekian/cargo-deltabuild/fs"
	"github.com/tekian/cargo-deltabuild/rustsrc"
)

// Builder expands build targets into file dependency trees. It carries
// the traversal state for one snapshot build: the visited set spans all
// crates and targets, so a file is expanded at most once per snapshot.
type Builder struct {
	fsys          fs.FileSystem
	cfg           *config.Main
	workspaceRoot string
	visited       map[string]struct{}
	unresolved    []Unresolved
}

// NewBuilder creates a builder for one snapshot.
func NewBuilder(fsys fs.FileSystem, cfg *config.Main, workspaceRoot string) *Builder {
	return &Builder{
		fsys:          fsys,
		cfg:           cfg,
		workspaceRoot: workspaceRoot,
		visited:       make(map[string]struct{}),
	}
}

// BuildWorkspace assembles the full tree: the workspace node owns one
// crate node per workspace member, each crate owns one node per build
// target, and each target owns its recursively resolved sources.
func (b *Builder) BuildWorkspace(meta *cargo.Metadata) *Node {
	root := NewNode(filepath.Join(meta.WorkspaceRoot, "Cargo.toml"), KindWorkspace)
	for _, crate := range meta.WorkspaceCrates() {
		root.AddChild(b.buildCrate(crate))
	}
	return root
}

// Unresolved returns the references that matched no file on disk.
// Unresolved references are not errors; static analysis is best-effort
// and over-approximates, but the list is useful for tooling.
func (b *Builder) Unresolved() []Unresolved {
	return b.unresolved
}

func (b *Builder) buildCrate(crate *cargo.Package) *Node {
	node := NewNode(crate.ManifestPath, KindCrate)
	parserCfg := b.cfg.CrateConfig(crate.Name)

	for _, target := range crate.Targets {
		targetNode := NewNode(target.SrcPath, KindTarget)
		for _, child := range b.buildFile(target.SrcPath, &parserCfg).Children {
			targetNode.AddChild(child)
		}
		node.AddChild(targetNode)
	}

	if parserCfg.Assume && len(parserCfg.AssumePatterns) > 0 {
		for _, path := range b.assumeFiles(filepath.Dir(crate.ManifestPath), parserCfg.AssumePatterns) {
			node.AddChild(NewNode(path, KindAssumePattern))
		}
	}
	return node
}

// buildFile expands one source file. A file already visited yields a
// childless node immediately, which bounds recursion on module cycles
// and keeps files shared between targets from being expanded twice. A
// file that cannot be read or parsed contributes no children.
func (b *Builder) buildFile(path string, cfg *config.Parser) *Node {
	node := NewNode(path, KindUnset)
	if _, seen := b.visited[path]; seen {
		return node
	}
	b.visited[path] = struct{}{}

	content, err := b.fsys.ReadFile(path)
	if err != nil {
		return node
	}
	facts, err := rustsrc.Parse(content, cfg)
	if err != nil {
		return node
	}

	base := b.moduleBase(path)

	for _, file := range b.resolveModules(base, path, facts.Mods) {
		child := b.buildFile(file, cfg)
		child.Kind = KindModule
		node.AddChild(child)
	}
	for _, nested := range facts.NestedMods {
		nestedBase := filepath.Join(append([]string{base}, nested.Path...)...)
		for _, file := range b.resolveModules(nestedBase, path, []string{nested.Name}) {
			child := b.buildFile(file, cfg)
			child.Kind = KindModule
			node.AddChild(child)
		}
	}
	for _, override := range facts.PathOverrides {
		target := filepath.Join(filepath.Dir(path), override.Path)
		if !b.fsys.Exists(target) {
			b.unresolved = append(b.unresolved, Unresolved{Kind: RefPathOverride, Name: override.Path, From: path})
			continue
		}
		child := b.buildFile(target, cfg)
		child.Kind = KindModulePathOverride
		node.AddChild(child)
	}
	for _, include := range facts.Includes {
		if target, ok := b.resolveReference(path, include); ok {
			node.AddChild(NewNode(target, KindLiteralInclusion))
		} else {
			b.unresolved = append(b.unresolved, Unresolved{Kind: RefInclude, Name: include, From: path})
		}
	}
	for _, ref := range facts.FileRefs {
		if target, ok := b.resolveReference(path, ref); ok {
			node.AddChild(NewNode(target, KindFileReference))
		} else {
			b.unresolved = append(b.unresolved, Unresolved{Kind: RefFileReference, Name: ref, From: path})
		}
	}
	return node
}

// moduleBase picks the directory child modules resolve against. A
// directory named after the file's stem takes precedence over the
// file's own directory (directory-style module layout).
func (b *Builder) moduleBase(path string) string {
	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stemDir := filepath.Join(dir, stem)
	if info, err := b.fsys.Stat(stemDir); err == nil && info.IsDir() {
		return stemDir
	}
	return dir
}

// resolveReference resolves an included or referenced path relative to
// the declaring file's directory, falling back to the workspace root.
func (b *Builder) resolveReference(from, target string) (string, bool) {
	relative := filepath.Join(filepath.Dir(from), target)
	if b.fsys.Exists(relative) {
		return relative, true
	}
	fromRoot := filepath.Join(b.workspaceRoot, target)
	if b.fsys.Exists(fromRoot) {
		return fromRoot, true
	}
	return "", false
}

// assumeFiles glob-expands the assume patterns beneath the crate
// directory. Patterns match anywhere under the crate, so each is
// prefixed with a recursive wildcard.
func (b *Builder) assumeFiles(crateRoot string, patterns []string) []string {
	var found []string
	var walk func(dir string)
	walk = func(dir string) {
		entries, err := b.fsys.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				walk(full)
				continue
			}
			rel, err := filepath.Rel(crateRoot, full)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			for _, pattern := range patterns {
				if ok, err := doublestar.Match("**/"+pattern, rel); err == nil && ok {
					found = append(found, full)
					break
				}
			}
		}
	}
	walk(crateRoot)

	sort.Strings(found)
	return slices.Compact(found)
}
