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

package impact

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tekian/cargo-deltabuild/config"
	"github.com/tekian/cargo-deltabuild/fs"
)

// UnrelatedFiles classifies the files under the repository root that
// the current file tree does not account for. It is diagnostic output:
// a large Unaccounted bucket suggests the analysis misses inputs.
type UnrelatedFiles struct {
	// Unaccounted files match no rule at all.
	Unaccounted []string
	// TripWire files match a trip-wire pattern. They are reported
	// separately even when no trip wire fired this run.
	TripWire []string
	// Filtered files match a file-exclude pattern.
	Filtered []string
}

// FindUnrelated walks the repository from root and places every file
// missing from known into exactly one bucket. Directories whose name
// matches an exclude pattern are not descended into. Exclude patterns
// match the base name; trip-wire patterns match the root-relative path.
func FindUnrelated(fsys fs.FileSystem, root string, known map[string]struct{}, cfg *config.Main) *UnrelatedFiles {
	result := &UnrelatedFiles{}

	var walk func(dir string)
	walk = func(dir string) {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			name := entry.Name()
			excluded := matchAny(cfg.FileExcludePatterns, name)

			full := filepath.Join(dir, name)
			if entry.IsDir() {
				if !excluded {
					walk(full)
				}
				continue
			}

			rel, err := filepath.Rel(root, full)
			if err != nil {
				continue
			}
			if _, ok := known[rel]; ok {
				continue
			}

			switch {
			case excluded:
				result.Filtered = append(result.Filtered, rel)
			case matchAny(cfg.TripWirePatterns, filepath.ToSlash(rel)):
				result.TripWire = append(result.TripWire, rel)
			default:
				result.Unaccounted = append(result.Unaccounted, rel)
			}
		}
	}
	walk(root)
	return result
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
