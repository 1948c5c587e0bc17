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
)

// RefKind classifies an unresolved reference.
type RefKind int

const (
	// RefModule is a module declaration with no matching file.
	RefModule RefKind = iota
	// RefPathOverride is a #[path] target that does not exist.
	RefPathOverride
	// RefInclude is an inclusion macro argument that does not exist.
	RefInclude
	// RefFileReference is a file-reference argument that does not exist.
	RefFileReference
)

// String returns a human-readable description of the reference kind.
func (k RefKind) String() string {
	switch k {
	case RefModule:
		return "module"
	case RefPathOverride:
		return "path override"
	case RefInclude:
		return "include"
	case RefFileReference:
		return "file reference"
	default:
		return "unknown"
	}
}

// Unresolved records a reference that matched nothing on disk.
type Unresolved struct {
	Kind RefKind
	Name string // module name or referenced path
	From string // file that declared the reference
}

// resolveModules maps module names to source files following rustc's
// conventions: `<name>/mod.rs`, then `<name>.rs`, then every .rs file
// directly inside a directory named `<name>`. Names matching nothing
// are dropped and recorded as unresolved.
func (b *Builder) resolveModules(base, from string, mods []string) []string {
	var files []string
	for _, mod := range mods {
		found, ok := b.resolveModule(base, mod)
		if !ok {
			b.unresolved = append(b.unresolved, Unresolved{Kind: RefModule, Name: mod, From: from})
			continue
		}
		files = append(files, found...)
	}
	return files
}

func (b *Builder) resolveModule(base, mod string) ([]string, bool) {
	modFile := filepath.Join(base, mod, "mod.rs")
	if b.fsys.Exists(modFile) {
		return []string{modFile}, true
	}
	plainFile := filepath.Join(base, mod+".rs")
	if b.fsys.Exists(plainFile) {
		return []string{plainFile}, true
	}

	dir := filepath.Join(base, mod)
	entries, err := b.fsys.ReadDir(dir)
	if err != nil {
		return nil, false
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".rs" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, len(files) > 0
}
