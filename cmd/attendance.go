package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show recorded attendance for a class and date",
	RunE:  runAttendance,
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Show the full roster for a class and date, absentees included",
	RunE:  runRoster,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	rootCmd.AddCommand(rosterCmd)

	for _, cmd := range []*cobra.Command{attendanceCmd, rosterCmd} {
		cmd.Flags().Int64("class", 0, "Class id (required)")
		cmd.Flags().String("date", "", "Date in YYYY-MM-DD format (default today)")
		_ = cmd.MarkFlagRequired("class")
	}
}

func parseDateFlag(cmd *cobra.Command) (time.Time, error) {
	raw := mustGetString(cmd, "date")
	if raw == "" {
		return time.Now(), nil
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	classID := mustGetInt64(cmd, "class")

	date, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := attendance.NewRecorder(store, cfg.Engine.ConfidenceThreshold)
	entries, err := recorder.Day(cmd.Context(), classID, date)
	if err != nil {
		return fmt.Errorf("failed to load attendance: %w", err)
	}

	fmt.Printf("Attendance for class %d on %s\n", classID, date.Format(time.DateOnly))
	if len(entries) == 0 {
		fmt.Println("No attendance recorded")
		return nil
	}
	for _, e := range entries {
		note := ""
		if e.Note != "" {
			note = "  (" + e.Note + ")"
		}
		fmt.Printf("%4d  %-30s %-8s %s%s\n",
			e.StudentID, e.FullName, e.Status, e.CheckIn.Format("15:04:05"), note)
	}
	return nil
}

func runRoster(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	classID := mustGetInt64(cmd, "class")

	date, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := attendance.NewRecorder(store, cfg.Engine.ConfidenceThreshold)
	roster, err := recorder.Roster(cmd.Context(), classID, date)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	fmt.Printf("Roster for class %d on %s\n", classID, date.Format(time.DateOnly))
	present := 0
	for _, e := range roster {
		checkIn := "-"
		if e.CheckIn != nil {
			checkIn = e.CheckIn.Format("15:04:05")
		}
		if e.Status == database.StatusPresent || e.Status == database.StatusLate {
			present++
		}
		fmt.Printf("%4d  %-30s %-8s %s\n", e.StudentID, e.FullName, e.Status, checkIn)
	}
	fmt.Printf("%d of %d present\n", present, len(roster))
	return nil
}
