package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [roll-no]",
	Short: "Remove a student from the roster",
	Long: `Removes a student record and its face samples. Past attendance
rows in the ledger are kept; the ledger is append-only history.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	rollNo := strings.ToUpper(args[0])

	a, err := newApp()
	if err != nil {
		return err
	}

	removed, err := a.registry.Remove(context.Background(), rollNo)
	if err != nil {
		return fmt.Errorf("removing %s: %w", rollNo, err)
	}
	if !removed {
		return fmt.Errorf("no student enrolled with roll number %s", rollNo)
	}

	fmt.Printf("Removed %s\n", rollNo)
	fmt.Println("Run 'classmark train' to drop the student from the model coverage")
	return nil
}
