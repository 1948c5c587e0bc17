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

// Package run provides the run command for cargo-deltabuild.
package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tekian/cargo-deltabuild/cmdrun"
	"github.com/tekian/cargo-deltabuild/config"
	"github.com/tekian/cargo-deltabuild/fs"
	"github.com/tekian/cargo-deltabuild/git"
	"github.com/tekian/cargo-deltabuild/impact"
	"github.com/tekian/cargo-deltabuild/internal/output"
	"github.com/tekian/cargo-deltabuild/snapshot"
)

// Cmd is the run cobra command that computes the impacted crates.
var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Compute impacted crates from two snapshots and the Git diff",
	Long: `Diff HEAD against the merge base with the remote branch, then combine
the changed and deleted files with a baseline and a current snapshot to
compute three crate sets: Modified, Affected and Required.`,
	Example: `  # Compute impact between two analyze runs
  cargo-deltabuild run --baseline baseline.json --current current.json

  # Write the impact JSON to a file
  cargo-deltabuild run --baseline base.json --current cur.json -o impact.json`,
	RunE: runImpact,
}

func init() {
	Cmd.Flags().String("baseline", "", "Snapshot of the merge-base workspace state")
	Cmd.Flags().String("current", "", "Snapshot of the head workspace state")
	_ = Cmd.MarkFlagRequired("baseline")
	_ = Cmd.MarkFlagRequired("current")

	_ = viper.BindPFlag("baseline", Cmd.Flags().Lookup("baseline"))
	_ = viper.BindPFlag("current", Cmd.Flags().Lookup("current"))
}

func runImpact(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	runner := cmdrun.NewOSRunner()

	cfgPath := viper.GetString("config")
	if cfgPath != "" {
		fmt.Fprintf(os.Stderr, "Using config file        : %s\n", cfgPath)
	}
	cfg, err := config.Load(osfs, cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	gitRoot, err := git.TopLevel(runner)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Detected Git root        : %s\n", gitRoot)

	diff, err := git.ChangedFiles(runner, osfs, gitRoot, cfg.Git.RemoteBranch)
	if err != nil {
		return err
	}
	if diff.IsEmpty() {
		fmt.Fprintln(os.Stderr, "No file has been changed or deleted, quitting.")
		return output.JSON(osfs, &impact.Impact{
			Modified: []string{},
			Affected: []string{},
			Required: []string{},
		})
	}
	fmt.Fprintf(os.Stderr, "Found %d changed and %d deleted file(s).\n", len(diff.Changed), len(diff.Deleted))

	baseline, err := snapshot.Load(osfs, viper.GetString("baseline"))
	if err != nil {
		return fmt.Errorf("loading baseline snapshot: %w", err)
	}
	current, err := snapshot.Load(osfs, viper.GetString("current"))
	if err != nil {
		return fmt.Errorf("loading current snapshot: %w", err)
	}

	result := impact.Compute(baseline, current, diff, cfg)
	reportTripWire(cfg, result)

	if err := output.JSON(osfs, result.Impact); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Modified    %3d (Crates directly modified by Git changes.)\n", len(result.Impact.Modified))
	fmt.Fprintf(os.Stderr, "Affected    %3d (Crates affected by the changes, to re-build and re-test.)\n", len(result.Impact.Affected))
	fmt.Fprintf(os.Stderr, "Required    %3d (Crates required to build and test the affected ones.)\n", len(result.Impact.Required))
	return nil
}

func reportTripWire(cfg *config.Main, result *impact.Result) {
	if len(result.Tripped) > 0 {
		fmt.Fprintln(os.Stderr, "WARNING: Trip wire activated due to changes in the following file(s):")
		for _, path := range result.Tripped {
			fmt.Fprintf(os.Stderr, "  %s\n", path)
		}
		return
	}
	if len(cfg.TripWirePatterns) > 0 {
		fmt.Fprintln(os.Stderr, "Trip wire is enabled, but no matching files were found, good.")
	}
}
