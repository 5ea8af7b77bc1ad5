package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/database"
)

// AddClass creates a class owned by a teacher.
func (s *Store) AddClass(ctx context.Context, name string, teacherID int64, semester string) (int64, error) {
	teacher, err := s.GetUser(ctx, teacherID)
	if err != nil {
		return 0, err
	}
	if teacher.Role != database.RoleTeacher {
		return 0, database.ErrInvalidRole
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		"INSERT INTO classes (class_name, teacher_id, semester) VALUES ($1, $2, $3) RETURNING class_id",
		name, teacherID, semester,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert class: %w", err)
	}
	return id, nil
}

// GetClass retrieves a class by id.
func (s *Store) GetClass(ctx context.Context, id int64) (*database.Class, error) {
	var c database.Class
	err := s.db.QueryRowContext(ctx,
		"SELECT class_id, class_name, teacher_id, semester FROM classes WHERE class_id = $1",
		id,
	).Scan(&c.ID, &c.Name, &c.TeacherID, &c.Semester)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query class: %w", err)
	}
	return &c, nil
}

// ListClasses returns all classes ordered by name.
func (s *Store) ListClasses(ctx context.Context) ([]database.Class, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT class_id, class_name, teacher_id, semester FROM classes ORDER BY class_name")
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	var classes []database.Class
	for rows.Next() {
		var c database.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.TeacherID, &c.Semester); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	return classes, nil
}

// Enroll registers a student into a class.
func (s *Store) Enroll(ctx context.Context, classID, studentID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO class_students (class_id, student_id) VALUES ($1, $2)",
		classID, studentID)
	if err != nil {
		if isUniqueViolation(err, "class_students_pkey") {
			return database.ErrAlreadyEnrolled
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("enroll student: %w: class %d or user %d missing", database.ErrClassNotFound, classID, studentID)
		}
		return fmt.Errorf("enroll student: %w", err)
	}
	return nil
}

// IsEnrolled reports whether the student is enrolled in the class.
func (s *Store) IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM class_students WHERE class_id = $1 AND student_id = $2)",
		classID, studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// EnrolledStudents returns the students of a class ordered by name.
func (s *Store) EnrolledStudents(ctx context.Context, classID int64) ([]database.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.full_name, u.email, u.role, u.created_at
		FROM class_students cs
		JOIN users u ON u.user_id = cs.student_id
		WHERE cs.class_id = $1
		ORDER BY u.full_name
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("query enrolled students: %w", err)
	}
	defer rows.Close()

	var students []database.User
	for rows.Next() {
		var u database.User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}
