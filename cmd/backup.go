package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the student roster and attendance ledger",
	Long: `Copies the current student store and attendance ledger into the
backup directory. Old snapshots beyond the retention count are
pruned, oldest first.`,
	RunE: runBackup,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List existing snapshots",
	RunE:  runBackupList,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupListCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	targets := map[string]string{
		"students":   a.registry.StorePath(),
		"attendance": a.ledger.Path(),
	}
	for store, path := range targets {
		if path == "" {
			fmt.Printf("%s: not file backed, skipped\n", store)
			continue
		}
		if err := a.backups.Snapshot(store, path); err != nil {
			return fmt.Errorf("snapshotting %s: %w", store, err)
		}
		fmt.Printf("%s: snapshot created\n", store)
	}
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	for _, store := range []string{"students", "attendance"} {
		snapshots, err := a.backups.List(store)
		if err != nil {
			return fmt.Errorf("listing %s snapshots: %w", store, err)
		}
		fmt.Printf("%s (%d):\n", store, len(snapshots))
		for _, name := range snapshots {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}
