package repository

import (
	"context"
	"errors"
	"fmt"

	"bonappetit-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRandoNotFound is returned when a rando does not exist in the pool
var ErrRandoNotFound = errors.New("rando not found")

// RandoRepository handles database operations for the pending rando pool
type RandoRepository struct {
	db *pgxpool.Pool
}

// NewRandoRepository creates a new rando repository
func NewRandoRepository(db *pgxpool.Pool) *RandoRepository {
	return &RandoRepository{db: db}
}

// Create inserts a new pending rando
func (r *RandoRepository) Create(ctx context.Context, rando *models.Rando) error {
	query := `
		INSERT INTO randos (rando_id, email, creation, image_url, image_size_url, map_url, map_size_url, report, bon_appetit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		rando.RandoID, rando.Email, rando.Creation,
		rando.ImageURL, rando.ImageSizeURL, rando.MapURL, rando.MapSizeURL,
		rando.Report, rando.BonAppetit, rando.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rando: %w", err)
	}
	return nil
}

// GetAllPending retrieves every rando still waiting for a pairing,
// newest first
func (r *RandoRepository) GetAllPending(ctx context.Context) ([]*models.Rando, error) {
	query := `
		SELECT rando_id, email, creation, image_url, image_size_url, map_url, map_size_url, report, bon_appetit, created_at
		FROM randos
		ORDER BY creation DESC, rando_id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending randos: %w", err)
	}
	defer rows.Close()

	var randos []*models.Rando
	for rows.Next() {
		var rando models.Rando
		err := rows.Scan(
			&rando.RandoID, &rando.Email, &rando.Creation,
			&rando.ImageURL, &rando.ImageSizeURL, &rando.MapURL, &rando.MapSizeURL,
			&rando.Report, &rando.BonAppetit, &rando.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rando: %w", err)
		}
		randos = append(randos, &rando)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating randos: %w", err)
	}

	return randos, nil
}

// GetByID retrieves a rando by ID
func (r *RandoRepository) GetByID(ctx context.Context, randoID string) (*models.Rando, error) {
	query := `
		SELECT rando_id, email, creation, image_url, image_size_url, map_url, map_size_url, report, bon_appetit, created_at
		FROM randos
		WHERE rando_id = $1
	`
	var rando models.Rando
	err := r.db.QueryRow(ctx, query, randoID).Scan(
		&rando.RandoID, &rando.Email, &rando.Creation,
		&rando.ImageURL, &rando.ImageSizeURL, &rando.MapURL, &rando.MapSizeURL,
		&rando.Report, &rando.BonAppetit, &rando.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRandoNotFound
		}
		return nil, fmt.Errorf("failed to get rando: %w", err)
	}
	return &rando, nil
}

// GetByEmail retrieves the pending randos posted by one user, newest first
func (r *RandoRepository) GetByEmail(ctx context.Context, email string) ([]*models.Rando, error) {
	query := `
		SELECT rando_id, email, creation, image_url, image_size_url, map_url, map_size_url, report, bon_appetit, created_at
		FROM randos
		WHERE email = $1
		ORDER BY creation DESC
	`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get randos by email: %w", err)
	}
	defer rows.Close()

	var randos []*models.Rando
	for rows.Next() {
		var rando models.Rando
		err := rows.Scan(
			&rando.RandoID, &rando.Email, &rando.Creation,
			&rando.ImageURL, &rando.ImageSizeURL, &rando.MapURL, &rando.MapSizeURL,
			&rando.Report, &rando.BonAppetit, &rando.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rando: %w", err)
		}
		randos = append(randos, &rando)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating randos: %w", err)
	}

	return randos, nil
}

// Delete removes a consumed rando from the pool
func (r *RandoRepository) Delete(ctx context.Context, randoID string) error {
	query := `DELETE FROM randos WHERE rando_id = $1`
	result, err := r.db.Exec(ctx, query, randoID)
	if err != nil {
		return fmt.Errorf("failed to delete rando: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRandoNotFound
	}
	return nil
}

// IncrementReport bumps the report counter for a rando
func (r *RandoRepository) IncrementReport(ctx context.Context, randoID string) error {
	query := `UPDATE randos SET report = report + 1 WHERE rando_id = $1`
	result, err := r.db.Exec(ctx, query, randoID)
	if err != nil {
		return fmt.Errorf("failed to report rando: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRandoNotFound
	}
	return nil
}

// IncrementBonAppetit bumps the bon appetit counter for a rando
func (r *RandoRepository) IncrementBonAppetit(ctx context.Context, randoID string) error {
	query := `UPDATE randos SET bon_appetit = bon_appetit + 1 WHERE rando_id = $1`
	result, err := r.db.Exec(ctx, query, randoID)
	if err != nil {
		return fmt.Errorf("failed to bon appetit rando: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRandoNotFound
	}
	return nil
}
