// Package database defines the attendance store contract shared by the
// PostgreSQL and MariaDB backends and the in-memory mock used in tests.
package database

import (
	"context"
	"time"
)

// UserStore manages subjects.
type UserStore interface {
	// AddUser creates a subject and returns its store-assigned id.
	// Returns ErrEmailExists when the contact address is taken and
	// ErrInvalidRole for a role outside the closed set.
	AddUser(ctx context.Context, fullName, email string, role Role) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	// ListUsers returns users with the given role, or all users when role is empty.
	ListUsers(ctx context.Context, role Role) ([]User, error)
}

// ClassStore manages classes and enrollments.
type ClassStore interface {
	// AddClass creates a class. The owning teacher must exist and have the
	// teacher role; otherwise ErrInvalidRole or ErrUserNotFound is returned.
	AddClass(ctx context.Context, name string, teacherID int64, semester string) (int64, error)
	GetClass(ctx context.Context, id int64) (*Class, error)
	ListClasses(ctx context.Context) ([]Class, error)
	// Enroll registers a student into a class. Returns ErrAlreadyEnrolled on
	// a duplicate (class, student) pair.
	Enroll(ctx context.Context, classID, studentID int64) error
	IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error)
	// EnrolledStudents returns the students of a class ordered by name.
	EnrolledStudents(ctx context.Context, classID int64) ([]User, error)
}

// FaceDataStore persists face sample metadata.
type FaceDataStore interface {
	SaveFaceSample(ctx context.Context, userID int64, fingerprint []float32, imagePath string) (int64, error)
	// ListFaceSamples returns every stored sample, ordered by id.
	ListFaceSamples(ctx context.Context) ([]FaceSample, error)
	// SimilarSamples returns up to k stored samples closest to the query
	// fingerprint by cosine distance, nearest first.
	SimilarSamples(ctx context.Context, fingerprint []float32, k int) ([]SampleMatch, error)
}

// AttendanceStore persists attendance facts.
type AttendanceStore interface {
	// RecordIfAbsent inserts the record unless a fact already exists for its
	// (class, student, date). The existence check and the insert run inside
	// one transaction; concurrent events for the same subject cannot
	// double-insert. Returns false when a fact already existed.
	RecordIfAbsent(ctx context.Context, rec AttendanceRecord) (bool, error)
	// ReplaceDay atomically deletes every fact for (class, date) and inserts
	// the given rows. Any failure aborts the whole batch.
	ReplaceDay(ctx context.Context, classID int64, date time.Time, rows []ManualEntry) error
	// Day returns the facts for a class and date ordered by check-in time.
	Day(ctx context.Context, classID int64, date time.Time) ([]DayEntry, error)
	// Roster returns every enrolled student of the class paired with their
	// status for the date, defaulting to absent when no fact exists.
	Roster(ctx context.Context, classID int64, date time.Time) ([]RosterEntry, error)
}

// Store is the full attendance store capability.
type Store interface {
	UserStore
	ClassStore
	FaceDataStore
	AttendanceStore
	Close() error
}
