package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const updateRepo = "stratus-eo/stratus"

var checkOnly bool

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update stratus to the latest release",
	Long:  `Check GitHub for a newer release and replace the current binary with it.`,
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "only check for a newer release")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	current, err := semver.ParseTolerant(version)
	if err != nil {
		return fmt.Errorf("development build (%s) cannot self-update, install a release build", version)
	}

	ctx := context.Background()
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(updateRepo))
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found || latest.LessOrEqual(current.String()) {
		fmt.Printf("✓ stratus %s is up to date\n", version)
		return nil
	}

	fmt.Printf("New release available: %s (current: %s)\n", latest.Version(), version)
	if checkOnly {
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not locate executable: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Printf("✓ Updated to %s\n", latest.Version())
	return nil
}
