package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/pgvector/pgvector-go"
)

// SaveFaceSample persists one labeled face crop's metadata.
func (s *Store) SaveFaceSample(ctx context.Context, userID int64, fingerprint []float32, imagePath string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO face_data (user_id, face_encoding, image_path) VALUES ($1, $2, $3) RETURNING face_id",
		userID, pgvector.NewVector(fingerprint), imagePath,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, database.ErrUserNotFound
		}
		return 0, fmt.Errorf("insert face sample: %w", err)
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
		var vec pgvector.Vector
		if err := rows.Scan(&fs.ID, &fs.UserID, &vec, &fs.ImagePath, &fs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face sample: %w", err)
		}
		fs.Fingerprint = vec.Slice()
		samples = append(samples, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face samples: %w", err)
	}
	return samples, nil
}

// SimilarSamples returns up to k samples nearest to the query fingerprint by
// cosine distance. This is the SQL path; callers with many samples should
// prefer the in-memory index.
func (s *Store) SimilarSamples(ctx context.Context, fingerprint []float32, k int) ([]database.SampleMatch, error) {
	query := `
		SELECT face_id, user_id, face_encoding, image_path, created_at,
		       face_encoding <=> $1 AS distance
		FROM face_data
		WHERE face_encoding IS NOT NULL
		ORDER BY face_encoding <=> $1
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(fingerprint), k)
	if err != nil {
		return nil, fmt.Errorf("query similar samples: %w", err)
	}
	defer rows.Close()

	var matches []database.SampleMatch
	for rows.Next() {
		var m database.SampleMatch
		var vec pgvector.Vector
		if err := rows.Scan(&m.Sample.ID, &m.Sample.UserID, &vec, &m.Sample.ImagePath, &m.Sample.CreatedAt, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan similar sample: %w", err)
		}
		m.Sample.Fingerprint = vec.Slice()
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar samples: %w", err)
	}
	return matches, nil
}
