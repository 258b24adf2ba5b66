// Package cmd implements the classmark command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "classmark",
	Short: "Face-recognition attendance for classrooms",
	Long: `Classmark enrolls students with face samples, trains a recognition
model, and runs live attendance sessions that write an append-only
CSV ledger. One mark per student per day, enforced at the gate.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
