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

// Package snapshot persists one analyzed workspace state: the file
// dependency tree and the crate graph. An analyze run writes one; an
// impact run reads two (baseline and current) back.
package snapshot

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/tekian/cargo-deltabuild/crates"
	"github.com/tekian/cargo-deltabuild/filetree"
	"github.com/tekian/cargo-deltabuild/fs"
)

// Version is the snapshot schema version this build writes and accepts.
const Version = 1

// Snapshot is the serialized pair for one analyzed workspace state.
type Snapshot struct {
	Version int            `json:"version"`
	Files   *filetree.Node `json:"files"`
	Crates  *crates.Graph  `json:"crates"`
}

// New creates a snapshot at the current schema version.
func New(files *filetree.Node, graph *crates.Graph) *Snapshot {
	return &Snapshot{Version: Version, Files: files, Crates: graph}
}

// Load reads and decodes a snapshot file. Files carrying a UTF-8 or
// UTF-16 byte-order mark are tolerated, and input that is not clean
// UTF-8 is re-encoded best-effort before parsing — snapshots may pass
// through CI artifact stores and shells that rewrite encodings.
func Load(fsys fs.FileSystem, path string) (*Snapshot, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(decoded, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("snapshot %s has schema version %d, want %d", path, snap.Version, Version)
	}
	return &snap, nil
}
