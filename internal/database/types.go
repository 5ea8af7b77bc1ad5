package database

import "time"

// Role is the closed set of subject roles known to the system.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher || r == RoleAdmin
}

// Status is the closed set of attendance statuses.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate || s == StatusExcused
}

// User is an enrolled identity (student, teacher or admin).
type User struct {
	ID        int64
	FullName  string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Class is a class session owned by a teacher.
type Class struct {
	ID        int64
	Name      string
	TeacherID int64
	Semester  string
}

// FaceSample is the persisted metadata of one labeled face crop.
type FaceSample struct {
	ID          int64
	UserID      int64
	Fingerprint []float32 // compact grayscale intensity vector, FingerprintDim values
	ImagePath   string
	CreatedAt   time.Time
}

// FingerprintDim is the fixed dimension of face sample fingerprint vectors.
const FingerprintDim = 64

// AttendanceRecord is one durable attendance fact.
type AttendanceRecord struct {
	ID         int64
	ClassID    int64
	StudentID  int64
	Date       time.Time // calendar date, time part ignored
	CheckIn    time.Time // time of day the fact was recorded
	Status     Status
	Confidence float64 // 0-100, meaningful only for automatic records
	Note       string
}

// DayEntry is one row of the per-day attendance view, joined with the
// student's name and ordered by check-in time.
type DayEntry struct {
	StudentID  int64
	FullName   string
	CheckIn    time.Time
	Status     Status
	Confidence float64
	Note       string
}

// RosterEntry pairs an enrolled student with their attendance status for a
// date. Students without a fact for the date appear as absent with no
// check-in time.
type RosterEntry struct {
	StudentID  int64
	FullName   string
	Email      string
	Status     Status
	CheckIn    *time.Time // nil when no fact exists for the date
	Confidence float64
	Note       string
}

// ManualEntry is one row of a manual replace-day submission.
type ManualEntry struct {
	StudentID int64
	Status    Status
	Note      string
}

// SampleMatch is a face sample paired with its fingerprint distance from a
// query vector.
type SampleMatch struct {
	Sample   FaceSample
	Distance float64
}

// DateOnly truncates a timestamp to its calendar date in local time.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
