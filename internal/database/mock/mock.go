// Package mock provides an in-memory attendance store for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

// Store is an in-memory implementation of database.Store. It mirrors the
// SQL backends' behavior including uniqueness mapping and dedup semantics.
type Store struct {
	mu          sync.Mutex
	users       map[int64]database.User
	classes     map[int64]database.Class
	enrollments map[int64]map[int64]bool // classID -> studentID set
	samples     []database.FaceSample
	attendance  []database.AttendanceRecord

	nextUserID       int64
	nextClassID      int64
	nextSampleID     int64
	nextAttendanceID int64

	// Error injection
	AddUserError        error
	EnrollError         error
	IsEnrolledError     error
	SaveSampleError     error
	ListSamplesError    error
	RecordError         error
	ReplaceDayError     error
	DayError            error
	RosterError         error
}

// NewStore creates an empty mock store.
func NewStore() *Store {
	return &Store{
		users:       make(map[int64]database.User),
		classes:     make(map[int64]database.Class),
		enrollments: make(map[int64]map[int64]bool),
	}
}

// Close implements database.Store.
func (s *Store) Close() error { return nil }

// AddUser creates a subject, enforcing role validity and email uniqueness.
func (s *Store) AddUser(ctx context.Context, fullName, email string, role database.Role) (int64, error) {
	if s.AddUserError != nil {
		return 0, s.AddUserError
	}
	if !role.Valid() {
		return 0, database.ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return 0, database.ErrEmailExists
		}
	}
	s.nextUserID++
	s.users[s.nextUserID] = database.User{
		ID: s.nextUserID, FullName: fullName, Email: email, Role: role, CreatedAt: time.Now(),
	}
	return s.nextUserID, nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return &u, nil
}

// ListUsers returns users with the given role, or all when role is empty.
func (s *Store) ListUsers(ctx context.Context, role database.Role) ([]database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []database.User
	for _, u := range s.users {
		if role == "" || u.Role == role {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
	return users, nil
}

// AddClass creates a class owned by a teacher.
func (s *Store) AddClass(ctx context.Context, name string, teacherID int64, semester string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teacher, ok := s.users[teacherID]
	if !ok {
		return 0, database.ErrUserNotFound
	}
	if teacher.Role != database.RoleTeacher {
		return 0, database.ErrInvalidRole
	}
	s.nextClassID++
	s.classes[s.nextClassID] = database.Class{
		ID: s.nextClassID, Name: name, TeacherID: teacherID, Semester: semester,
	}
	return s.nextClassID, nil
}

// GetClass retrieves a class by id.
func (s *Store) GetClass(ctx context.Context, id int64) (*database.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[id]
	if !ok {
		return nil, database.ErrClassNotFound
	}
	return &c, nil
}

// ListClasses returns all classes ordered by name.
func (s *Store) ListClasses(ctx context.Context) ([]database.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var classes []database.Class
	for _, c := range s.classes {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

// Enroll registers a student into a class.
func (s *Store) Enroll(ctx context.Context, classID, studentID int64) error {
	if s.EnrollError != nil {
		return s.EnrollError
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[classID]; !ok {
		return database.ErrClassNotFound
	}
	if _, ok := s.users[studentID]; !ok {
		return database.ErrUserNotFound
	}
	if s.enrollments[classID] == nil {
		s.enrollments[classID] = make(map[int64]bool)
	}
	if s.enrollments[classID][studentID] {
		return database.ErrAlreadyEnrolled
	}
	s.enrollments[classID][studentID] = true
	return nil
}

// IsEnrolled reports whether the student is enrolled in the class.
func (s *Store) IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error) {
	if s.IsEnrolledError != nil {
		return false, s.IsEnrolledError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrollments[classID][studentID], nil
}

// EnrolledStudents returns the students of a class ordered by name.
func (s *Store) EnrolledStudents(ctx context.Context, classID int64) ([]database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var students []database.User
	for id := range s.enrollments[classID] {
		if u, ok := s.users[id]; ok {
			students = append(students, u)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].FullName < students[j].FullName })
	return students, nil
}

// SaveFaceSample persists one labeled face crop's metadata.
func (s *Store) SaveFaceSample(ctx context.Context, userID int64, fingerprint []float32, imagePath string) (int64, error) {
	if s.SaveSampleError != nil {
		return 0, s.SaveSampleError
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return 0, database.ErrUserNotFound
	}
	s.nextSampleID++
	s.samples = append(s.samples, database.FaceSample{
		ID: s.nextSampleID, UserID: userID, Fingerprint: fingerprint,
		ImagePath: imagePath, CreatedAt: time.Now(),
	})
	return s.nextSampleID, nil
}

// ListFaceSamples returns every stored sample, ordered by id.
func (s *Store) ListFaceSamples(ctx context.Context) ([]database.FaceSample, error) {
	if s.ListSamplesError != nil {
		return nil, s.ListSamplesError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]database.FaceSample, len(s.samples))
	copy(out, s.samples)
	return out, nil
}

// SimilarSamples ranks stored samples by cosine distance from the query.
func (s *Store) SimilarSamples(ctx context.Context, fingerprint []float32, k int) ([]database.SampleMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []database.SampleMatch
	for _, fs := range s.samples {
		if len(fs.Fingerprint) == 0 {
			continue
		}
		matches = append(matches, database.SampleMatch{
			Sample:   fs,
			Distance: database.CosineDistance(fingerprint, fs.Fingerprint),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// RecordIfAbsent inserts the record unless a fact exists for its
// (class, student, date). The store mutex is the serialization point.
func (s *Store) RecordIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	if s.RecordError != nil {
		return false, s.RecordError
	}
	if !rec.Status.Valid() {
		return false, database.ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	day := database.DateOnly(rec.Date)
	for _, a := range s.attendance {
		if a.ClassID == rec.ClassID && a.StudentID == rec.StudentID && a.Date.Equal(day) {
			return false, nil
		}
	}
	s.nextAttendanceID++
	rec.ID = s.nextAttendanceID
	rec.Date = day
	s.attendance = append(s.attendance, rec)
	return true, nil
}

// ReplaceDay atomically replaces every fact for (class, date).
func (s *Store) ReplaceDay(ctx context.Context, classID int64, date time.Time, rows []database.ManualEntry) error {
	if s.ReplaceDayError != nil {
		return s.ReplaceDayError
	}
	for _, r := range rows {
		if !r.Status.Valid() {
			return database.ErrInvalidStatus
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	day := database.DateOnly(date)
	kept := s.attendance[:0]
	for _, a := range s.attendance {
		if !(a.ClassID == classID && a.Date.Equal(day)) {
			kept = append(kept, a)
		}
	}
	s.attendance = kept

	now := time.Now()
	for _, r := range rows {
		s.nextAttendanceID++
		s.attendance = append(s.attendance, database.AttendanceRecord{
			ID: s.nextAttendanceID, ClassID: classID, StudentID: r.StudentID,
			Date: day, CheckIn: now, Status: r.Status, Note: r.Note,
		})
	}
	return nil
}

// Day returns the facts for a class and date ordered by check-in time.
func (s *Store) Day(ctx context.Context, classID int64, date time.Time) ([]database.DayEntry, error) {
	if s.DayError != nil {
		return nil, s.DayError
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	day := database.DateOnly(date)
	var entries []database.DayEntry
	for _, a := range s.attendance {
		if a.ClassID != classID || !a.Date.Equal(day) {
			continue
		}
		name := ""
		if u, ok := s.users[a.StudentID]; ok {
			name = u.FullName
		}
		entries = append(entries, database.DayEntry{
			StudentID: a.StudentID, FullName: name, CheckIn: a.CheckIn,
			Status: a.Status, Confidence: a.Confidence, Note: a.Note,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CheckIn.Before(entries[j].CheckIn) })
	return entries, nil
}

// Roster returns every enrolled student with their status for the date,
// defaulting to absent.
func (s *Store) Roster(ctx context.Context, classID int64, date time.Time) ([]database.RosterEntry, error) {
	if s.RosterError != nil {
		return nil, s.RosterError
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	day := database.DateOnly(date)
	var entries []database.RosterEntry
	for id := range s.enrollments[classID] {
		u, ok := s.users[id]
		if !ok {
			continue
		}
		e := database.RosterEntry{
			StudentID: u.ID, FullName: u.FullName, Email: u.Email, Status: database.StatusAbsent,
		}
		for _, a := range s.attendance {
			if a.ClassID == classID && a.StudentID == id && a.Date.Equal(day) {
				checkIn := a.CheckIn
				e.Status = a.Status
				e.CheckIn = &checkIn
				e.Confidence = a.Confidence
				e.Note = a.Note
				break
			}
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].FullName < entries[j].FullName })
	return entries, nil
}

// AttendanceCount returns the number of stored facts, for test assertions.
func (s *Store) AttendanceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attendance)
}
