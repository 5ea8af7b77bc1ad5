package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

const dateLayout = "2006-01-02"
const timeOfDayLayout = "15:04:05"

// parseTimeOfDay parses a TIME column value, ignoring fractional seconds.
// The mysql driver returns TIME columns as strings even with parseTime on.
func parseTimeOfDay(s string) (time.Time, error) {
	s, _, _ = strings.Cut(s, ".")
	t, err := time.Parse(timeOfDayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse check-in time %q: %w", s, err)
	}
	return t, nil
}

// SaveFaceSample persists one labeled face crop's metadata. The fingerprint
// is stored JSON-encoded since MariaDB has no vector type.
func (s *Store) SaveFaceSample(ctx context.Context, userID int64, fingerprint []float32, imagePath string) (int64, error) {
	encoded, err := json.Marshal(fingerprint)
	if err != nil {
		return 0, fmt.Errorf("encode fingerprint: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO face_data (user_id, face_encoding, image_path) VALUES (?, ?, ?)",
		userID, string(encoded), imagePath)
	if err != nil {
		if isMySQLError(err, errNoReferencedRow) {
			return 0, database.ErrUserNotFound
		}
		return 0, fmt.Errorf("insert face sample: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("face sample insert id: %w", err)
	}
	return id, nil
}

// ListFaceSamples returns every stored sample, ordered by id.
func (s *Store) ListFaceSamples(ctx context.Context) ([]database.FaceSample, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT face_id, user_id, face_encoding, image_path, created_at FROM face_data ORDER BY face_id")
	if err != nil {
		return nil, fmt.Errorf("query face samples: %w", err)
	}
	defer rows.Close()

	var samples []database.FaceSample
	for rows.Next() {
		var fs database.FaceSample
		var encoded sql.NullString
		if err := rows.Scan(&fs.ID, &fs.UserID, &encoded, &fs.ImagePath, &fs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face sample: %w", err)
		}
		if encoded.Valid && encoded.String != "" {
			if err := json.Unmarshal([]byte(encoded.String), &fs.Fingerprint); err != nil {
				return nil, fmt.Errorf("decode fingerprint for sample %d: %w", fs.ID, err)
			}
		}
		samples = append(samples, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face samples: %w", err)
	}
	return samples, nil
}

// SimilarSamples scans all stored samples and ranks them by cosine distance
// in Go. Sample counts are small (a few dozen per subject) so this is fine.
func (s *Store) SimilarSamples(ctx context.Context, fingerprint []float32, k int) ([]database.SampleMatch, error) {
	samples, err := s.ListFaceSamples(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]database.SampleMatch, 0, len(samples))
	for _, fs := range samples {
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

// RecordIfAbsent inserts the record unless a fact already exists for its
// (class, student, date). INSERT IGNORE against the unique key is the
// serialization point.
func (s *Store) RecordIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	if !rec.Status.Valid() {
		return false, database.ErrInvalidStatus
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO attendance
			(class_id, student_id, attendance_date, check_in_time, status, confidence_score, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ClassID, rec.StudentID,
		database.DateOnly(rec.Date).Format(dateLayout), rec.CheckIn.Format(timeOfDayLayout),
		string(rec.Status), rec.Confidence, rec.Note,
	)
	if err != nil {
		return false, fmt.Errorf("record attendance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record attendance rows affected: %w", err)
	}
	return n > 0, nil
}

// ReplaceDay atomically replaces every fact for (class, date) with the given
// rows.
func (s *Store) ReplaceDay(ctx context.Context, classID int64, date time.Time, rows []database.ManualEntry) error {
	for _, r := range rows {
		if !r.Status.Valid() {
			return database.ErrInvalidStatus
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	day := database.DateOnly(date).Format(dateLayout)
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM attendance WHERE class_id = ? AND attendance_date = ?",
		classID, day); err != nil {
		return fmt.Errorf("clear day: %w", err)
	}

	checkIn := time.Now().Format(timeOfDayLayout)
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance
				(class_id, student_id, attendance_date, check_in_time, status, confidence_score, note)
			VALUES (?, ?, ?, ?, ?, 0, ?)
		`, classID, r.StudentID, day, checkIn, string(r.Status), r.Note); err != nil {
			return fmt.Errorf("insert manual record for student %d: %w", r.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit day replacement: %w", err)
	}
	return nil
}

// Day returns the facts for a class and date ordered by check-in time.
func (s *Store) Day(ctx context.Context, classID int64, date time.Time) ([]database.DayEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.student_id, u.full_name, a.check_in_time, a.status, a.confidence_score, a.note
		FROM attendance a
		JOIN users u ON a.student_id = u.user_id
		WHERE a.class_id = ? AND a.attendance_date = ?
		ORDER BY a.check_in_time
	`, classID, database.DateOnly(date).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var entries []database.DayEntry
	for rows.Next() {
		var e database.DayEntry
		var checkIn string
		if err := rows.Scan(&e.StudentID, &e.FullName, &checkIn, &e.Status, &e.Confidence, &e.Note); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		if e.CheckIn, err = parseTimeOfDay(checkIn); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return entries, nil
}

// Roster returns every enrolled student of the class with their status for
// the date, defaulting to absent when no fact exists.
func (s *Store) Roster(ctx context.Context, classID int64, date time.Time) ([]database.RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.full_name, u.email,
		       COALESCE(a.status, 'absent'),
		       a.check_in_time,
		       COALESCE(a.confidence_score, 0),
		       COALESCE(a.note, '')
		FROM class_students cs
		JOIN users u ON u.user_id = cs.student_id
		LEFT JOIN attendance a
		       ON a.class_id = cs.class_id
		      AND a.student_id = cs.student_id
		      AND a.attendance_date = ?
		WHERE cs.class_id = ?
		ORDER BY u.full_name
	`, database.DateOnly(date).Format(dateLayout), classID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var entries []database.RosterEntry
	for rows.Next() {
		var e database.RosterEntry
		var checkIn sql.NullString
		if err := rows.Scan(&e.StudentID, &e.FullName, &e.Email, &e.Status, &checkIn, &e.Confidence, &e.Note); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		if checkIn.Valid {
			t, err := parseTimeOfDay(checkIn.String)
			if err != nil {
				return nil, err
			}
			e.CheckIn = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return entries, nil
}
