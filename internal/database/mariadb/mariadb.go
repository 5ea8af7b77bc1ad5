// Package mariadb implements the attendance store on MariaDB/MySQL for
// deployments that already run the school database there. Fingerprints are
// stored JSON-encoded; similarity queries fall back to an in-Go scan.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/roll-call/internal/config"
)

// Store is a MariaDB-backed attendance store.
type Store struct {
	db *sql.DB
}

// Open creates a connection pool, verifies it and applies the schema.
// parseTime is forced on so DATE and TIMESTAMP columns scan as time.Time.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	if cfg == nil || cfg.MySQLDSN == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	dsn := cfg.MySQLDSN
	if !strings.Contains(dsn, "parseTime") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// schema statements are executed one by one; the multiStatements DSN option
// is not required.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id    BIGINT AUTO_INCREMENT PRIMARY KEY,
		full_name  VARCHAR(255) NOT NULL,
		email      VARCHAR(255) NOT NULL,
		role       VARCHAR(16) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY users_email_key (email)
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		class_id   BIGINT AUTO_INCREMENT PRIMARY KEY,
		class_name VARCHAR(255) NOT NULL,
		teacher_id BIGINT NOT NULL,
		semester   VARCHAR(64) NOT NULL DEFAULT '',
		FOREIGN KEY (teacher_id) REFERENCES users (user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS class_students (
		class_id   BIGINT NOT NULL,
		student_id BIGINT NOT NULL,
		PRIMARY KEY (class_id, student_id),
		FOREIGN KEY (class_id) REFERENCES classes (class_id),
		FOREIGN KEY (student_id) REFERENCES users (user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS face_data (
		face_id       BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id       BIGINT NOT NULL,
		face_encoding TEXT,
		image_path    VARCHAR(512) NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY face_data_user_idx (user_id),
		FOREIGN KEY (user_id) REFERENCES users (user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		attendance_id    BIGINT AUTO_INCREMENT PRIMARY KEY,
		class_id         BIGINT NOT NULL,
		student_id       BIGINT NOT NULL,
		attendance_date  DATE NOT NULL,
		check_in_time    TIME NOT NULL,
		status           VARCHAR(16) NOT NULL,
		confidence_score DOUBLE NOT NULL DEFAULT 0,
		note             VARCHAR(1024) NOT NULL DEFAULT '',
		UNIQUE KEY attendance_class_student_date_key (class_id, student_id, attendance_date),
		KEY attendance_class_date_idx (class_id, attendance_date),
		FOREIGN KEY (class_id) REFERENCES classes (class_id),
		FOREIGN KEY (student_id) REFERENCES users (user_id)
	)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}

// MySQL error numbers for constraint violations.
const (
	errDuplicateEntry = 1062
	errNoReferencedRow = 1452
)

func isMySQLError(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}
