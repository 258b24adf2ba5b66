package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/classmark/classmark/internal/registry"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a student with face samples",
	Long: `Enroll a new student into the roster. Face samples are read from
a directory of image files (jpg, png, bmp) and stored with the record.
The recognition model must be retrained before the new student can be
recognized in a session.`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Student full name (required)")
	enrollCmd.Flags().String("roll", "", "Roll number, e.g. AIML001 (required)")
	enrollCmd.Flags().String("branch", "", "Branch code, e.g. AIML (required)")
	enrollCmd.Flags().String("section", "", "Section, e.g. A (required)")
	enrollCmd.Flags().String("samples-dir", "", "Directory of face sample images (required)")
	enrollCmd.Flags().Bool("confirm-duplicate-name", false, "Enroll even if the name already exists in the class")

	_ = enrollCmd.MarkFlagRequired("name")
	_ = enrollCmd.MarkFlagRequired("roll")
	_ = enrollCmd.MarkFlagRequired("branch")
	_ = enrollCmd.MarkFlagRequired("section")
	_ = enrollCmd.MarkFlagRequired("samples-dir")
}

// readSampleDir loads every image file from dir, sorted by name.
func readSampleDir(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading samples directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	samples := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading sample %s: %w", name, err)
		}
		samples = append(samples, data)
	}
	return samples, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	samples, err := readSampleDir(mustGetString(cmd, "samples-dir"))
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no image files found in samples directory")
	}

	student := registry.Student{
		Name:    mustGetString(cmd, "name"),
		RollNo:  strings.ToUpper(mustGetString(cmd, "roll")),
		Branch:  strings.ToUpper(mustGetString(cmd, "branch")),
		Section: strings.ToUpper(mustGetString(cmd, "section")),
	}

	enrolled, err := a.registry.Enroll(context.Background(), student, samples, mustGetBool(cmd, "confirm-duplicate-name"))
	if err != nil {
		return fmt.Errorf("enrolling %s: %w", student.RollNo, err)
	}

	fmt.Printf("Enrolled %s (%s) in %s with %d samples\n",
		enrolled.Name, enrolled.RollNo, enrolled.Class(), enrolled.SampleCount)
	if enrolled.SampleCount < a.cfg.Recognition.RequiredSamples {
		fmt.Printf("Note: %d samples recommended per student for reliable recognition\n",
			a.cfg.Recognition.RequiredSamples)
	}
	fmt.Println("Run 'classmark train' to include the new student in the model")
	return nil
}
