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

// Package impact classifies workspace crates by how a set of
// version-control changes touches them.
package impact

import (
	"path/filepath"
	"slices"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tekian/cargo-deltabuild/config"
	"github.com/tekian/cargo-deltabuild/git"
	"github.com/tekian/cargo-deltabuild/snapshot"
)

// Impact holds the three crate tiers, each a sorted name list.
// Modified crates own a touched file directly. Affected adds every
// transitive dependent, which must rebuild. Required adds every
// transitive dependency of the affected set, which must be present for
// those builds. Each tier contains the previous one.
type Impact struct {
	Modified []string `json:"Modified"`
	Affected []string `json:"Affected"`
	Required []string `json:"Required"`
}

// Result is the outcome of one impact computation.
type Result struct {
	Impact *Impact
	// Tripped lists the diff paths that matched a trip-wire pattern.
	// Non-empty exactly when the trip wire forced full impact.
	Tripped []string
}

// Compute derives the impact of diff from two snapshots. Deleted files
// are looked up in the baseline tree, where they still existed; changed
// files in the current tree; files present only in the current tree are
// treated as newly added. A trip-wire match short-circuits everything
// to the full crate set of the current graph.
func Compute(baseline, current *snapshot.Snapshot, diff *git.Diff, cfg *config.Main) *Result {
	if tripped := matchTripWire(diff, cfg.TripWirePatterns); len(tripped) > 0 {
		names := current.Crates.Names()
		return &Result{
			Impact: &Impact{
				Modified: names,
				Affected: slices.Clone(names),
				Required: slices.Clone(names),
			},
			Tripped: tripped,
		}
	}

	modified := make(map[string]struct{})
	for _, path := range diff.Deleted {
		for _, crate := range baseline.Files.CratesContaining(path) {
			modified[crate] = struct{}{}
		}
	}
	for _, path := range diff.Changed {
		for _, crate := range current.Files.CratesContaining(path) {
			modified[crate] = struct{}{}
		}
	}
	baselinePaths := baseline.Files.Distinct()
	for path := range current.Files.Distinct() {
		if _, ok := baselinePaths[path]; ok {
			continue
		}
		for _, crate := range current.Files.CratesContaining(path) {
			modified[crate] = struct{}{}
		}
	}

	affected := make(map[string]struct{})
	for crate := range modified {
		affected[crate] = struct{}{}
		dependents, _ := current.Crates.TransitiveDependents(crate)
		for _, name := range dependents {
			affected[name] = struct{}{}
		}
	}

	required := make(map[string]struct{})
	for crate := range affected {
		required[crate] = struct{}{}
		dependencies, _ := current.Crates.TransitiveDependencies(crate)
		for _, name := range dependencies {
			required[name] = struct{}{}
		}
	}

	return &Result{Impact: &Impact{
		Modified: sorted(modified),
		Affected: sorted(affected),
		Required: sorted(required),
	}}
}

// matchTripWire returns the diff paths matching any trip-wire pattern.
func matchTripWire(diff *git.Diff, patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	var tripped []string
	for _, path := range slices.Concat(diff.Changed, diff.Deleted) {
		for _, pattern := range patterns {
			if ok, err := doublestar.Match(pattern, filepath.ToSlash(path)); err == nil && ok {
				tripped = append(tripped, path)
				break
			}
		}
	}
	return tripped
}

func sorted(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
