package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/database/mock"
)

const threshold = 50

func seed(t *testing.T, store *mock.Store) (classID int64, studentID int64) {
	t.Helper()
	ctx := context.Background()

	teacherID, err := store.AddUser(ctx, "Marie Curie", "marie@example.com", database.RoleTeacher)
	if err != nil {
		t.Fatal(err)
	}
	classID, err = store.AddClass(ctx, "Physics", teacherID, "2026/1")
	if err != nil {
		t.Fatal(err)
	}
	studentID, err = store.AddUser(ctx, "Tomas Novak", "tomas@example.com", database.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Enroll(ctx, classID, studentID); err != nil {
		t.Fatal(err)
	}
	return classID, studentID
}

func TestRecordFirstEventWritesOneFact(t *testing.T) {
	store := mock.NewStore()
	classID, studentID := seed(t, store)
	rec := NewRecorder(store, threshold)
	ctx := context.Background()

	outcome, err := rec.Record(ctx, classID, studentID, 80)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if outcome != Recorded {
		t.Fatalf("expected Recorded, got %q", outcome)
	}

	// same event again in the same day is a no-op
	outcome, err = rec.Record(ctx, classID, studentID, 80)
	if err != nil {
		t.Fatalf("second record failed: %v", err)
	}
	if outcome != AlreadyRecorded {
		t.Fatalf("expected AlreadyRecorded, got %q", outcome)
	}
	if store.AttendanceCount() != 1 {
		t.Fatalf("expected exactly one fact, got %d", store.AttendanceCount())
	}

	day, err := rec.Day(ctx, classID, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 1 || day[0].Status != database.StatusPresent || day[0].Confidence != 80 {
		t.Errorf("unexpected day view %+v", day)
	}
}

func TestRecordBelowThreshold(t *testing.T) {
	store := mock.NewStore()
	classID, studentID := seed(t, store)
	rec := NewRecorder(store, threshold)

	outcome, err := rec.Record(context.Background(), classID, studentID, 40)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != BelowThreshold {
		t.Errorf("expected BelowThreshold, got %q", outcome)
	}
	if store.AttendanceCount() != 0 {
		t.Errorf("low-confidence events must not write facts, got %d", store.AttendanceCount())
	}

	// the threshold itself does not qualify
	outcome, _ = rec.Record(context.Background(), classID, studentID, threshold)
	if outcome != BelowThreshold {
		t.Errorf("confidence equal to the threshold must be dropped, got %q", outcome)
	}

	// the threshold check runs first, enrollment is never consulted for a
	// low-confidence event
	outcome, err = rec.Record(context.Background(), classID, 99999, 10)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != BelowThreshold {
		t.Errorf("expected BelowThreshold for an unknown low-confidence subject, got %q", outcome)
	}
}

func TestRecordNotEnrolled(t *testing.T) {
	store := mock.NewStore()
	classID, _ := seed(t, store)
	stranger, err := store.AddUser(context.Background(), "Eva Benesova", "eva@example.com", database.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(store, threshold)
	outcome, err := rec.Record(context.Background(), classID, stranger, 95)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != NotEnrolled {
		t.Errorf("expected NotEnrolled, got %q", outcome)
	}
	if store.AttendanceCount() != 0 {
		t.Errorf("unenrolled subjects must not produce facts, got %d", store.AttendanceCount())
	}
}

func TestRecordStoreFailure(t *testing.T) {
	store := mock.NewStore()
	classID, studentID := seed(t, store)
	store.RecordError = errors.New("connection lost")

	rec := NewRecorder(store, threshold)
	if _, err := rec.Record(context.Background(), classID, studentID, 80); err == nil {
		t.Fatal("expected store failure to surface as an error")
	}
}

func TestReplaceDayLastWriterWins(t *testing.T) {
	store := mock.NewStore()
	classID, studentID := seed(t, store)
	second, err := store.AddUser(context.Background(), "Jan Dvorak", "jan@example.com", database.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Enroll(context.Background(), classID, second); err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(store, threshold)
	ctx := context.Background()
	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local)

	first := []database.ManualEntry{
		{StudentID: studentID, Status: database.StatusPresent},
		{StudentID: second, Status: database.StatusAbsent, Note: "sick"},
	}
	if err := rec.ReplaceDay(ctx, classID, date, first); err != nil {
		t.Fatalf("first replace failed: %v", err)
	}

	replacement := []database.ManualEntry{
		{StudentID: studentID, Status: database.StatusLate},
	}
	if err := rec.ReplaceDay(ctx, classID, date, replacement); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}

	day, err := rec.Day(ctx, classID, date)
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 1 {
		t.Fatalf("expected prior rows fully replaced, got %d facts", len(day))
	}
	if day[0].StudentID != studentID || day[0].Status != database.StatusLate {
		t.Errorf("unexpected surviving fact %+v", day[0])
	}
}

func TestReplaceDaySupersedesAutomaticFacts(t *testing.T) {
	store := mock.NewStore()
	classID, studentID := seed(t, store)
	rec := NewRecorder(store, threshold)
	ctx := context.Background()

	if _, err := rec.Record(ctx, classID, studentID, 90); err != nil {
		t.Fatal(err)
	}

	rows := []database.ManualEntry{{StudentID: studentID, Status: database.StatusExcused, Note: "dentist"}}
	if err := rec.ReplaceDay(ctx, classID, time.Now(), rows); err != nil {
		t.Fatal(err)
	}

	day, err := rec.Day(ctx, classID, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 1 || day[0].Status != database.StatusExcused || day[0].Note != "dentist" {
		t.Errorf("manual replace must supersede the automatic fact, got %+v", day)
	}
}

func TestReplaceDayRejectsInvalidStatus(t *testing.T) {
	store := mock.NewStore()
	classID, studentID := seed(t, store)
	rec := NewRecorder(store, threshold)

	rows := []database.ManualEntry{{StudentID: studentID, Status: "asleep"}}
	err := rec.ReplaceDay(context.Background(), classID, time.Now(), rows)
	if !errors.Is(err, database.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if store.AttendanceCount() != 0 {
		t.Errorf("rejected batch must not write anything, got %d facts", store.AttendanceCount())
	}
}

func TestRosterDefaultsToAbsent(t *testing.T) {
	store := mock.NewStore()
	classID, studentID := seed(t, store)
	second, err := store.AddUser(context.Background(), "Jan Dvorak", "jan@example.com", database.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Enroll(context.Background(), classID, second); err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(store, threshold)
	ctx := context.Background()

	if _, err := rec.Record(ctx, classID, studentID, 85); err != nil {
		t.Fatal(err)
	}

	roster, err := rec.Roster(ctx, classID, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected every enrolled subject in the roster, got %d", len(roster))
	}

	byID := map[int64]database.RosterEntry{}
	for _, e := range roster {
		byID[e.StudentID] = e
	}
	if got := byID[studentID]; got.Status != database.StatusPresent || got.CheckIn == nil {
		t.Errorf("recognized subject should be present with a check-in, got %+v", got)
	}
	if got := byID[second]; got.Status != database.StatusAbsent || got.CheckIn != nil {
		t.Errorf("subject without a fact should default to absent, got %+v", got)
	}
}
