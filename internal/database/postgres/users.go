package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/database"
)

// AddUser creates a subject and returns its store-assigned id.
func (s *Store) AddUser(ctx context.Context, fullName, email string, role database.Role) (int64, error) {
	if !role.Valid() {
		return 0, database.ErrInvalidRole
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO users (full_name, email, role) VALUES ($1, $2, $3) RETURNING user_id",
		fullName, email, string(role),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return 0, database.ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (*database.User, error) {
	var u database.User
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, full_name, email, role, created_at FROM users WHERE user_id = $1",
		id,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// ListUsers returns users with the given role, or all users when role is empty.
func (s *Store) ListUsers(ctx context.Context, role database.Role) ([]database.User, error) {
	query := "SELECT user_id, full_name, email, role, created_at FROM users ORDER BY full_name"
	args := []any{}
	if role != "" {
		query = "SELECT user_id, full_name, email, role, created_at FROM users WHERE role = $1 ORDER BY full_name"
		args = append(args, string(role))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []database.User
	for rows.Next() {
		var u database.User
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
