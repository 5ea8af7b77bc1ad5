// Package attendance converts recognition events and manual edits into
// durable attendance facts under the dedup and enrollment rules.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

// Outcome is the non-error result of one automatic recording attempt.
// Dropped events are normal operation, not failures.
type Outcome string

const (
	// Recorded means a new fact was written.
	Recorded Outcome = "recorded"
	// AlreadyRecorded means a fact for (class, subject, date) already
	// existed; the event was dropped.
	AlreadyRecorded Outcome = "already_recorded"
	// NotEnrolled means the subject is not enrolled in the class; the
	// event was dropped.
	NotEnrolled Outcome = "not_enrolled"
	// BelowThreshold means the confidence did not clear the presence
	// threshold; no fact is written for such events.
	BelowThreshold Outcome = "below_threshold"
)

// Recorder applies the recording policy on top of the attendance store.
type Recorder struct {
	store     recorderStore
	threshold float64
	now       func() time.Time
}

// recorderStore is the slice of the store the recorder needs.
type recorderStore interface {
	database.ClassStore
	database.AttendanceStore
}

func NewRecorder(store recorderStore, threshold float64) *Recorder {
	return &Recorder{
		store:     store,
		threshold: threshold,
		now:       time.Now,
	}
}

// Record handles one recognition event. The first qualifying event per
// (class, subject, day) writes exactly one fact; everything else is dropped
// with an explanatory outcome. Only store failures are errors.
func (r *Recorder) Record(ctx context.Context, classID, subjectID int64, confidence float64) (Outcome, error) {
	// the threshold check runs before enrollment so a low-confidence event
	// never costs a store round-trip; an unenrolled subject below the
	// threshold reports BelowThreshold, not NotEnrolled
	if confidence <= r.threshold {
		return BelowThreshold, nil
	}

	enrolled, err := r.store.IsEnrolled(ctx, classID, subjectID)
	if err != nil {
		return "", fmt.Errorf("could not check enrollment: %w", err)
	}
	if !enrolled {
		return NotEnrolled, nil
	}

	now := r.now()
	inserted, err := r.store.RecordIfAbsent(ctx, database.AttendanceRecord{
		ClassID:    classID,
		StudentID:  subjectID,
		Date:       database.DateOnly(now),
		CheckIn:    now,
		Status:     database.StatusPresent,
		Confidence: confidence,
	})
	if err != nil {
		return "", fmt.Errorf("could not record attendance: %w", err)
	}
	if !inserted {
		return AlreadyRecorded, nil
	}

	return Recorded, nil
}

// ReplaceDay atomically replaces every fact for (class, date) with the
// given rows. Last writer for the day wins; a failure anywhere leaves the
// prior facts intact.
func (r *Recorder) ReplaceDay(ctx context.Context, classID int64, date time.Time, rows []database.ManualEntry) error {
	for _, row := range rows {
		if !row.Status.Valid() {
			return fmt.Errorf("%w: %q", database.ErrInvalidStatus, row.Status)
		}
	}

	if err := r.store.ReplaceDay(ctx, classID, database.DateOnly(date), rows); err != nil {
		return fmt.Errorf("could not replace day: %w", err)
	}
	return nil
}

// Day returns the facts for a class and date ordered by check-in time.
func (r *Recorder) Day(ctx context.Context, classID int64, date time.Time) ([]database.DayEntry, error) {
	return r.store.Day(ctx, classID, database.DateOnly(date))
}

// Roster returns every enrolled subject with their status for the date,
// defaulting to absent. This powers the roster view and the manual-edit
// preload.
func (r *Recorder) Roster(ctx context.Context, classID int64, date time.Time) ([]database.RosterEntry, error) {
	return r.store.Roster(ctx, classID, database.DateOnly(date))
}
