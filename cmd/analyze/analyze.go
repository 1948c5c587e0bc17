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

// Package analyze provides the analyze command for cargo-deltabuild.
package analyze

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tekian/cargo-deltabuild/cargo"
	"github.com/tekian/cargo-deltabuild/cmdrun"
	"github.com/tekian/cargo-deltabuild/config"
	"github.com/tekian/cargo-deltabuild/crates"
	"github.com/tekian/cargo-deltabuild/filetree"
	"github.com/tekian/cargo-deltabuild/fs"
	"github.com/tekian/cargo-deltabuild/git"
	"github.com/tekian/cargo-deltabuild/impact"
	"github.com/tekian/cargo-deltabuild/internal/output"
	"github.com/tekian/cargo-deltabuild/snapshot"
)

// Cmd is the analyze cobra command that snapshots the workspace.
var Cmd = &cobra.Command{
	Use:   "analyze",
	Short: "Snapshot the workspace file tree and crate graph",
	Long: `Analyze the Cargo workspace in the current directory and write a
snapshot of its file dependency tree and crate graph as JSON.

Run it twice — once on the merge base, once on the head commit — and
feed both snapshots to "run" to compute the impacted crates.`,
	Example: `  # Snapshot the current workspace state
  cargo-deltabuild analyze -o current.json

  # Snapshot with a config file
  cargo-deltabuild analyze -c deltabuild.toml -o baseline.json`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	started := time.Now()
	osfs := fs.NewOSFileSystem()
	runner := cmdrun.NewOSRunner()

	fmt.Fprintln(os.Stderr, "Analyzing workspace..")

	cfgPath := viper.GetString("config")
	if cfgPath != "" {
		fmt.Fprintf(os.Stderr, "Using config file        : %s\n", cfgPath)
	}
	cfg, err := config.Load(osfs, cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	meta, err := cargo.Load(runner)
	if err != nil {
		return fmt.Errorf("loading workspace metadata: %w", err)
	}
	gitRoot, err := git.TopLevel(runner)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Detected Git root        : %s\n", gitRoot)

	builder := filetree.NewBuilder(osfs, cfg, meta.WorkspaceRoot)
	files := builder.BuildWorkspace(meta)
	graph := crates.Parse(meta)
	fmt.Fprintf(os.Stderr, "Found %d crate(s) in the workspace.\n", graph.Len())

	files.MakeRelative(gitRoot)

	if err := output.JSON(osfs, snapshot.New(files, graph)); err != nil {
		return err
	}

	reportUnresolved(builder.Unresolved())
	reportUnrelated(impact.FindUnrelated(osfs, gitRoot, files.Distinct(), cfg))

	fmt.Fprintf(os.Stderr, "Analyzed %d file(s) in %s.\n", files.Len(), time.Since(started).Round(time.Millisecond))
	return nil
}

// reportUnresolved lists references the analysis saw but could not map
// to a file. These are not errors; the list exists to explain surprises.
func reportUnresolved(refs []filetree.Unresolved) {
	if len(refs) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "WARNING: %d reference(s) could not be resolved:\n", len(refs))
	for _, ref := range refs {
		fmt.Fprintf(os.Stderr, "  %s %q in %s\n", ref.Kind, ref.Name, ref.From)
	}
}

// reportUnrelated summarizes the files the snapshot does not cover.
// Unaccounted files are listed in full: each one is a build input the
// analysis would miss.
func reportUnrelated(unrelated *impact.UnrelatedFiles) {
	fmt.Fprintf(os.Stderr, "Unaccounted file(s)      : %d\n", len(unrelated.Unaccounted))
	for _, path := range unrelated.Unaccounted {
		fmt.Fprintf(os.Stderr, "  %s\n", path)
	}
	fmt.Fprintf(os.Stderr, "Trip-wire file(s)        : %d\n", len(unrelated.TripWire))
	fmt.Fprintf(os.Stderr, "Filtered file(s)         : %d\n", len(unrelated.Filtered))
}
