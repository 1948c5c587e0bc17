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

// Package git wraps the git commands the tool needs: locating the
// repository root and diffing the head commit against a remote branch.
package git

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tekian/cargo-deltabuild/cmdrun"
	"github.com/tekian/cargo-deltabuild/fs"
)

// Diff lists the files touched between the merge base and HEAD. Changed
// paths still exist on disk; Deleted paths do not. Both are relative to
// the repository root.
type Diff struct {
	Changed []string
	Deleted []string
}

// IsEmpty reports whether the diff touches no files at all.
func (d *Diff) IsEmpty() bool {
	return len(d.Changed) == 0 && len(d.Deleted) == 0
}

// TopLevel returns the absolute path of the repository root for the
// current directory.
func TopLevel(runner cmdrun.Runner) (string, error) {
	out, err := run(runner, "", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("detecting git root: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ChangedFiles diffs HEAD against its merge base with remoteBranch and
// classifies each touched path by on-disk existence. An empty
// remoteBranch triggers best-effort detection of the default branch.
func ChangedFiles(runner cmdrun.Runner, fsys fs.FileSystem, root, remoteBranch string) (*Diff, error) {
	branch := remoteBranch
	if branch == "" {
		detected, err := defaultRemoteBranch(runner, root)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "No remote branch specified, using %s as base remote branch.\n", detected)
		branch = detected
	}

	out, err := run(runner, root, "merge-base", "HEAD", branch)
	if err != nil {
		return nil, fmt.Errorf("finding merge base with %s: %w", branch, err)
	}
	mergeBase := strings.TrimSpace(out)

	out, err = run(runner, root, "diff", "--name-only", mergeBase+"..HEAD")
	if err != nil {
		return nil, fmt.Errorf("diffing against %s: %w", mergeBase, err)
	}

	diff := &Diff{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if fsys.Exists(filepath.Join(root, line)) {
			diff.Changed = append(diff.Changed, line)
		} else {
			diff.Deleted = append(diff.Deleted, line)
		}
	}
	return diff, nil
}

// defaultRemoteBranch probes origin for the usual default branch names
// and returns the first that exists.
func defaultRemoteBranch(runner cmdrun.Runner, root string) (string, error) {
	for _, name := range []string{"master", "main", "trunk"} {
		out, err := run(runner, root, "ls-remote", "--heads", "origin", name)
		if err != nil {
			continue
		}
		if strings.TrimSpace(out) != "" {
			return "origin/" + name, nil
		}
	}
	return "", fmt.Errorf("cannot determine the default remote branch; set git.remote_branch in the config file")
}

func run(runner cmdrun.Runner, dir string, args ...string) (string, error) {
	result, err := runner.Run("git", args, dir)
	if err != nil {
		return "", fmt.Errorf("running git %s: %w", args[0], err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("git %s failed: %s", args[0], bytes.TrimSpace(result.Stderr))
	}
	return string(result.Stdout), nil
}
