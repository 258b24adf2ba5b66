package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/classmark/classmark/internal/registry"
	"github.com/spf13/cobra"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List enrolled students",
	Long: `Lists enrolled students with their sample counts, optionally
filtered to one class (both --branch and --section).`,
	RunE: runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)

	studentsCmd.Flags().String("branch", "", "Filter by branch code")
	studentsCmd.Flags().String("section", "", "Filter by section")
}

// classFilter builds an optional class filter from branch/section flags.
// Both must be given together.
func classFilter(cmd *cobra.Command) (*registry.ClassKey, error) {
	branch := strings.ToUpper(mustGetString(cmd, "branch"))
	section := strings.ToUpper(mustGetString(cmd, "section"))

	if branch == "" && section == "" {
		return nil, nil
	}
	if branch == "" || section == "" {
		return nil, fmt.Errorf("--branch and --section must be used together")
	}
	return &registry.ClassKey{Branch: branch, Section: section}, nil
}

func runStudents(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	class, err := classFilter(cmd)
	if err != nil {
		return err
	}

	students, err := a.registry.List(context.Background(), class)
	if err != nil {
		return fmt.Errorf("listing students: %w", err)
	}

	if len(students) == 0 {
		fmt.Println("No students enrolled")
		return nil
	}

	for _, s := range students {
		fmt.Printf("%-10s %-30s %-8s %d samples\n", s.RollNo, s.Name, s.Class(), s.SampleCount)
	}
	fmt.Printf("Total: %d\n", len(students))
	return nil
}
