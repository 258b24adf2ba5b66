package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/classmark/classmark/internal/csvio"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Bulk import and export the student roster",
}

var rosterImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import students from a roster CSV",
	Long: `Imports students from a CSV with Name, RollNo, Branch and Section
columns. Imported students have no face samples yet; add them with
'classmark enroll' or the API before training.`,
	Args: cobra.ExactArgs(1),
	RunE: runRosterImport,
}

var rosterExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the roster as CSV",
	RunE:  runRosterExport,
}

var rosterTemplateCmd = &cobra.Command{
	Use:   "template [file]",
	Short: "Write an example roster CSV to start from",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterTemplate,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterImportCmd)
	rosterCmd.AddCommand(rosterExportCmd)
	rosterCmd.AddCommand(rosterTemplateCmd)

	rosterExportCmd.Flags().String("branch", "", "Filter by branch code")
	rosterExportCmd.Flags().String("section", "", "Filter by section")
	rosterExportCmd.Flags().String("out", "", "Output file (defaults to stdout)")
}

func runRosterImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening roster file: %w", err)
	}
	defer f.Close()

	result, err := csvio.ImportRoster(context.Background(), a.registry, f)
	if err != nil {
		return fmt.Errorf("importing roster: %w", err)
	}

	fmt.Printf("Imported %d students, skipped %d rows\n", result.Imported, result.Skipped)
	for _, rowErr := range result.Errors {
		fmt.Printf("  row %d (%s): %v\n", rowErr.Row, rowErr.RollNo, rowErr.Err)
	}
	return nil
}

func runRosterExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	class, err := classFilter(cmd)
	if err != nil {
		return err
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

	if err := csvio.ExportRoster(context.Background(), a.registry, out, class); err != nil {
		return fmt.Errorf("exporting roster: %w", err)
	}
	return nil
}

func runRosterTemplate(cmd *cobra.Command, args []string) error {
	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("creating template file: %w", err)
	}
	defer f.Close()

	if err := csvio.WriteTemplate(f); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	fmt.Printf("Template written to %s\n", args[0])
	return nil
}
