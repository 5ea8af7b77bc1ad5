package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Manage classes and enrollment",
}

var classesAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a class owned by a teacher",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassesAdd,
}

var classesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all classes",
	RunE:  runClassesList,
}

var classesEnrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a student into a class",
	RunE:  runClassesEnroll,
}

func init() {
	rootCmd.AddCommand(classesCmd)
	classesCmd.AddCommand(classesAddCmd)
	classesCmd.AddCommand(classesListCmd)
	classesCmd.AddCommand(classesEnrollCmd)

	classesAddCmd.Flags().Int64("teacher", 0, "Owning teacher's subject id (required)")
	classesAddCmd.Flags().String("semester", "", "Semester label, e.g. 2026/1")
	_ = classesAddCmd.MarkFlagRequired("teacher")

	classesEnrollCmd.Flags().Int64("class", 0, "Class id (required)")
	classesEnrollCmd.Flags().Int64("student", 0, "Student's subject id (required)")
	_ = classesEnrollCmd.MarkFlagRequired("class")
	_ = classesEnrollCmd.MarkFlagRequired("student")
}

func runClassesAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	name := args[0]
	teacherID := mustGetInt64(cmd, "teacher")
	semester := mustGetString(cmd, "semester")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.AddClass(cmd.Context(), name, teacherID, semester)
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		return fmt.Errorf("teacher %d does not exist", teacherID)
	case errors.Is(err, database.ErrInvalidRole):
		return fmt.Errorf("subject %d does not have the teacher role", teacherID)
	case err != nil:
		return fmt.Errorf("failed to create class: %w", err)
	}

	fmt.Printf("Created class %d: %s\n", id, name)
	return nil
}

func runClassesList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	classes, err := store.ListClasses(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list classes: %w", err)
	}
	if len(classes) == 0 {
		fmt.Println("No classes yet")
		return nil
	}

	for _, c := range classes {
		teacher := fmt.Sprintf("teacher %d", c.TeacherID)
		if u, err := store.GetUser(cmd.Context(), c.TeacherID); err == nil {
			teacher = u.FullName
		}
		fmt.Printf("%4d  %-30s %-12s %s\n", c.ID, c.Name, c.Semester, teacher)
	}
	return nil
}

func runClassesEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	classID := mustGetInt64(cmd, "class")
	studentID := mustGetInt64(cmd, "student")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.Enroll(cmd.Context(), classID, studentID)
	switch {
	case errors.Is(err, database.ErrAlreadyEnrolled):
		return fmt.Errorf("student %d is already enrolled in class %d", studentID, classID)
	case errors.Is(err, database.ErrClassNotFound):
		return fmt.Errorf("class %d does not exist", classID)
	case errors.Is(err, database.ErrUserNotFound):
		return fmt.Errorf("student %d does not exist", studentID)
	case err != nil:
		return fmt.Errorf("failed to enroll student: %w", err)
	}

	fmt.Printf("Enrolled student %d into class %d\n", studentID, classID)
	return nil
}
