package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quintalapp/geoscope/internal/tracing"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// RecordVisit persists one visit.
func (r *PostgresRepository) RecordVisit(ctx context.Context, visit *Visit) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "location_history", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO location_history (
			id, user_id, geohash, latitude, longitude,
			city, neighborhood, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		visit.ID,
		visit.UserID,
		visit.Geohash,
		visit.Latitude,
		visit.Longitude,
		visit.City,
		visit.Neighborhood,
		visit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

// QueryByUser retrieves a user's visits, sorted by time (newest first).
func (r *PostgresRepository) QueryByUser(ctx context.Context, userID string, limit int) (visits []*Visit, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "location_history", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, user_id, geohash, latitude, longitude,
		       city, neighborhood, created_at
		FROM location_history
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v := &Visit{}
		err := rows.Scan(
			&v.ID,
			&v.UserID,
			&v.Geohash,
			&v.Latitude,
			&v.Longitude,
			&v.City,
			&v.Neighborhood,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visits: %w", err)
	}

	return visits, nil
}
