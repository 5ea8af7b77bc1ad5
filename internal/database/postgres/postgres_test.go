//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Store, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	store, err := Open(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open store: %v", err)
	}

	cleanup := func() {
		store.Close()
		container.Terminate(ctx)
	}
	return store, cleanup
}

// seedClass creates a teacher, a class and one enrolled student.
func seedClass(t *testing.T, store *Store) (classID, studentID int64) {
	ctx := context.Background()

	teacherID, err := store.AddUser(ctx, "Marie Dvorak", "marie@example.com", database.RoleTeacher)
	if err != nil {
		t.Fatalf("add teacher: %v", err)
	}
	classID, err = store.AddClass(ctx, "Algorithms", teacherID, "2026S")
	if err != nil {
		t.Fatalf("add class: %v", err)
	}
	studentID, err = store.AddUser(ctx, "Jan Novak", "jan@example.com", database.RoleStudent)
	if err != nil {
		t.Fatalf("add student: %v", err)
	}
	if err := store.Enroll(ctx, classID, studentID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return classID, studentID
}

func TestIntegration_Users(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.AddUser(ctx, "Jan Novak", "jan@example.com", database.RoleStudent)
	if err != nil {
		t.Fatalf("add user: %v", err)
	}

	_, err = store.AddUser(ctx, "Another Jan", "jan@example.com", database.RoleStudent)
	if !errors.Is(err, database.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists for duplicate email, got %v", err)
	}

	_, err = store.AddUser(ctx, "Nobody", "nobody@example.com", database.Role("principal"))
	if !errors.Is(err, database.ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}

	u, err := store.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.FullName != "Jan Novak" || u.Role != database.RoleStudent {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestIntegration_ClassesAndEnrollment(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	classID, studentID := seedClass(t, store)

	// Class ownership requires the teacher role.
	_, err := store.AddClass(ctx, "Bad", studentID, "2026S")
	if !errors.Is(err, database.ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole for student-owned class, got %v", err)
	}

	if err := store.Enroll(ctx, classID, studentID); !errors.Is(err, database.ErrAlreadyEnrolled) {
		t.Errorf("expected ErrAlreadyEnrolled, got %v", err)
	}

	enrolled, err := store.IsEnrolled(ctx, classID, studentID)
	if err != nil || !enrolled {
		t.Errorf("expected student enrolled, got %v, %v", enrolled, err)
	}

	students, err := store.EnrolledStudents(ctx, classID)
	if err != nil {
		t.Fatalf("enrolled students: %v", err)
	}
	if len(students) != 1 || students[0].ID != studentID {
		t.Errorf("unexpected students %+v", students)
	}
}

func TestIntegration_AttendanceDedup(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	classID, studentID := seedClass(t, store)
	now := time.Now()

	rec := database.AttendanceRecord{
		ClassID: classID, StudentID: studentID, Date: now, CheckIn: now,
		Status: database.StatusPresent, Confidence: 80,
	}

	inserted, err := store.RecordIfAbsent(ctx, rec)
	if err != nil || !inserted {
		t.Fatalf("expected first record inserted, got %v, %v", inserted, err)
	}
	inserted, err = store.RecordIfAbsent(ctx, rec)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if inserted {
		t.Error("expected second record for the same day to be a no-op")
	}

	entries, err := store.Day(ctx, classID, now)
	if err != nil {
		t.Fatalf("day view: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != database.StatusPresent {
		t.Errorf("expected exactly one present fact, got %+v", entries)
	}
}

func TestIntegration_ReplaceDay(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	classID, studentID := seedClass(t, store)
	otherID, err := store.AddUser(ctx, "Petra Svoboda", "petra@example.com", database.RoleStudent)
	if err != nil {
		t.Fatalf("add student: %v", err)
	}
	if err := store.Enroll(ctx, classID, otherID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	day := time.Now()

	first := []database.ManualEntry{
		{StudentID: studentID, Status: database.StatusPresent},
		{StudentID: otherID, Status: database.StatusAbsent, Note: "sick"},
	}
	if err := store.ReplaceDay(ctx, classID, day, first); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	second := []database.ManualEntry{{StudentID: studentID, Status: database.StatusLate}}
	if err := store.ReplaceDay(ctx, classID, day, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	entries, err := store.Day(ctx, classID, day)
	if err != nil {
		t.Fatalf("day view: %v", err)
	}
	if len(entries) != 1 || entries[0].StudentID != studentID || entries[0].Status != database.StatusLate {
		t.Errorf("expected the day fully replaced by the late fact, got %+v", entries)
	}
}

func TestIntegration_Roster(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	classID, studentID := seedClass(t, store)
	now := time.Now()

	// Without any fact the roster defaults to absent.
	roster, err := store.Roster(ctx, classID, now)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 || roster[0].Status != database.StatusAbsent || roster[0].CheckIn != nil {
		t.Fatalf("expected default-absent roster, got %+v", roster)
	}

	if _, err := store.RecordIfAbsent(ctx, database.AttendanceRecord{
		ClassID: classID, StudentID: studentID, Date: now, CheckIn: now,
		Status: database.StatusPresent, Confidence: 77,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	roster, err = store.Roster(ctx, classID, now)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if roster[0].Status != database.StatusPresent || roster[0].CheckIn == nil {
		t.Errorf("expected present with check-in time, got %+v", roster[0])
	}
}

func TestIntegration_FaceSamples(t *testing.T) {
	store, cleanup := setupTestContainer(t)
	defer cleanup()
	ctx := context.Background()

	_, studentID := seedClass(t, store)

	fp := make([]float32, database.FingerprintDim)
	fp[0] = 1
	if _, err := store.SaveFaceSample(ctx, studentID, fp, "dataset/User.1.1.jpg"); err != nil {
		t.Fatalf("save sample: %v", err)
	}

	samples, err := store.ListFaceSamples(ctx)
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(samples) != 1 || samples[0].UserID != studentID {
		t.Fatalf("unexpected samples %+v", samples)
	}
	if len(samples[0].Fingerprint) != database.FingerprintDim {
		t.Errorf("expected %d-dim fingerprint, got %d", database.FingerprintDim, len(samples[0].Fingerprint))
	}

	matches, err := store.SimilarSamples(ctx, fp, 5)
	if err != nil {
		t.Fatalf("similar samples: %v", err)
	}
	if len(matches) != 1 || matches[0].Distance > 1e-6 {
		t.Errorf("expected the stored sample at distance 0, got %+v", matches)
	}
}
