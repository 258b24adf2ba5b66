package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/classmark/classmark/internal/registry"
	"github.com/classmark/classmark/internal/session"
	"github.com/spf13/cobra"
)

var attendCmd = &cobra.Command{
	Use:   "attend",
	Short: "Run a live attendance session in the terminal",
	Long: `Starts a recognition session for one class and prints every gate
decision as it happens. The session runs until the frame source is
drained or the process is interrupted; accepted marks are flushed to
the ledger on stop.`,
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)

	attendCmd.Flags().String("branch", "", "Branch code of the class (required)")
	attendCmd.Flags().String("section", "", "Section of the class (required)")

	_ = attendCmd.MarkFlagRequired("branch")
	_ = attendCmd.MarkFlagRequired("section")
}

func printDecision(d session.Decision) {
	stamp := time.Now().Format("15:04:05")
	switch d.Verdict {
	case session.VerdictAccepted:
		fmt.Printf("[%s] %s marked present\n", stamp, d.RollNo)
	case session.VerdictWrongClass:
		fmt.Printf("[%s] %s belongs to another class, ignored\n", stamp, d.RollNo)
	case session.VerdictAlreadyMarked:
		fmt.Printf("[%s] %s already marked today\n", stamp, d.RollNo)
	case session.VerdictCooldown:
		// Cooldown repeats are noise at frame rate, keep quiet.
	}
}

func runAttend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	class := registry.ClassKey{
		Branch:  strings.ToUpper(mustGetString(cmd, "branch")),
		Section: strings.ToUpper(mustGetString(cmd, "section")),
	}

	sessions := a.sessionManager(a.frameSource)
	sessions.SetDecisionHook(printDecision)

	sess, err := sessions.Start(context.Background(), class)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	fmt.Printf("Session %s started for %s\n", sess.ID, class)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sess.Wait()
		close(done)
	}()

	select {
	case <-sigChan:
		fmt.Println("\nStopping session...")
	case <-done:
		fmt.Println("Frame source drained, stopping session...")
	}

	present, total, err := sessions.LiveCount(context.Background(), sess.ID)
	if err == nil {
		fmt.Printf("Session ended: %d of %d students marked present\n", present, total)
	}

	if err := sessions.Stop(sess.ID); err != nil {
		return fmt.Errorf("stopping session: %w", err)
	}
	return nil
}
