package listing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
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

// Create persists a new listing and returns it.
func (r *PostgresRepository) Create(ctx context.Context, input Input) (_ *Listing, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "listings", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	l := &Listing{
		ID:           uuid.New().String(),
		OwnerID:      input.OwnerID,
		Title:        input.Title,
		Body:         input.Body,
		City:         input.City,
		Neighborhood: input.Neighborhood,
		Condo:        input.Condo,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO listings (
			id, owner_id, title, body,
			city, neighborhood, condo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		l.ID,
		l.OwnerID,
		l.Title,
		l.Body,
		l.City,
		l.Neighborhood,
		l.Condo,
		l.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	return l, nil
}

// Get retrieves a listing by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (_ *Listing, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "listings", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, owner_id, title, body,
		       city, neighborhood, condo, created_at
		FROM listings
		WHERE id = $1
	`

	l := &Listing{}
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&l.ID,
		&l.OwnerID,
		&l.Title,
		&l.Body,
		&l.City,
		&l.Neighborhood,
		&l.Condo,
		&l.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return l, nil
}

// List retrieves listings, sorted by time (newest first).
func (r *PostgresRepository) List(ctx context.Context, limit int) (listings []*Listing, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "listings", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, owner_id, title, body,
		       city, neighborhood, condo, created_at
		FROM listings
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		l := &Listing{}
		err := rows.Scan(
			&l.ID,
			&l.OwnerID,
			&l.Title,
			&l.Body,
			&l.City,
			&l.Neighborhood,
			&l.Condo,
			&l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}

	return listings, nil
}
