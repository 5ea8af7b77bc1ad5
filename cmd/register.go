package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
)

var registerCmd = &cobra.Command{
	Use:   "register [full name]",
	Short: "Register a new subject",
	Long: `Register a new subject (student, teacher or admin) in the attendance
store. With --capture the command immediately collects face samples
for the new subject and retrains the classifier.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("email", "", "Contact email, unique per subject (required)")
	registerCmd.Flags().String("role", "student", "Role: student, teacher or admin")
	registerCmd.Flags().Bool("capture", false, "Capture face samples right after registration")
	_ = registerCmd.MarkFlagRequired("email")
}

func runRegister(cmd *cobra.Command, args []string) error {
	fullName := args[0]
	cfg := config.Load()

	email := mustGetString(cmd, "email")
	role := database.Role(mustGetString(cmd, "role"))
	withCapture := mustGetBool(cmd, "capture")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.AddUser(cmd.Context(), fullName, email, role)
	switch {
	case errors.Is(err, database.ErrEmailExists):
		return fmt.Errorf("email already exists: %s", email)
	case errors.Is(err, database.ErrInvalidRole):
		return fmt.Errorf("unknown role %q, expected student, teacher or admin", role)
	case err != nil:
		return fmt.Errorf("failed to register subject: %w", err)
	}

	fmt.Printf("Registered %s as subject %d (%s)\n", fullName, id, role)

	if !withCapture {
		return nil
	}
	return captureSamples(cmd.Context(), cfg, store, id)
}
