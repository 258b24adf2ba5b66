package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance records as CSV",
	Long: `Writes attendance ledger rows as CSV, optionally filtered by class
and date range. Dates use the YYYY-MM-DD format; --to is inclusive.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("branch", "", "Filter by branch code")
	exportCmd.Flags().String("section", "", "Filter by section")
	exportCmd.Flags().String("from", "", "Earliest date to include (YYYY-MM-DD)")
	exportCmd.Flags().String("to", "", "Latest date to include (YYYY-MM-DD)")
	exportCmd.Flags().String("out", "", "Output file (defaults to stdout)")
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	val := mustGetString(cmd, name)
	if val == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", val, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q, expected YYYY-MM-DD", name, val)
	}
	return &t, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	class, err := classFilter(cmd)
	if err != nil {
		return err
	}
	from, err := parseDateFlag(cmd, "from")
	if err != nil {
		return err
	}
	to, err := parseDateFlag(cmd, "to")
	if err != nil {
		return err
	}
	if to != nil {
		// Inclusive upper bound, cover the whole day.
		end := to.Add(24*time.Hour - time.Second)
		to = &end
	}

	out := os.Stdout
	if path := mustGetString(cmd, "out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := a.ledger.Export(context.Background(), out, class, from, to); err != nil {
		return fmt.Errorf("exporting attendance: %w", err)
	}
	return nil
}
