package repository

import (
	"context"
	"errors"
	"fmt"

	"bonappetit-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when no user exists for the given email
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles database operations for users and their pairing slots
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user together with its initial pairing slots
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO users (email, password_hash, auth_token, anonymous_id, push_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, query,
		user.Email, user.PasswordHash, user.AuthToken,
		user.AnonymousID, user.PushToken, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := insertSlots(ctx, tx, user.Email, user.Slots); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user create: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user and its pairing slots by email.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT email, password_hash, auth_token, anonymous_id, push_token, created_at
		FROM users
		WHERE email = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.Email, &user.PasswordHash, &user.AuthToken,
		&user.AnonymousID, &user.PushToken, &user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	slots, err := r.getSlots(ctx, email)
	if err != nil {
		return nil, err
	}
	user.Slots = slots

	return &user, nil
}

// GetByAuthToken retrieves a user by its current auth token
func (r *UserRepository) GetByAuthToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT email FROM users WHERE auth_token = $1`
	var email string
	err := r.db.QueryRow(ctx, query, token).Scan(&email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return r.GetByEmail(ctx, email)
}

// Update persists a user record and rewrites its pairing slots in one
// transaction, so a slot fill is atomic at the store boundary
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE users
		SET password_hash = $1, auth_token = $2, anonymous_id = $3, push_token = $4
		WHERE email = $5
	`
	result, err := tx.Exec(ctx, query,
		user.PasswordHash, user.AuthToken, user.AnonymousID, user.PushToken, user.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM pairing_slots WHERE user_email = $1`, user.Email); err != nil {
		return fmt.Errorf("failed to clear pairing slots: %w", err)
	}
	if err := insertSlots(ctx, tx, user.Email, user.Slots); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user update: %w", err)
	}
	return nil
}

// UpdateAuthToken updates only the auth token for a user
func (r *UserRepository) UpdateAuthToken(ctx context.Context, email, token string) error {
	query := `UPDATE users SET auth_token = $1 WHERE email = $2`
	result, err := r.db.Exec(ctx, query, token, email)
	if err != nil {
		return fmt.Errorf("failed to update auth token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePushToken updates the APNs device token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, email string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE email = $2`
	result, err := r.db.Exec(ctx, query, pushToken, email)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) getSlots(ctx context.Context, email string) ([]models.PairingSlot, error) {
	query := `
		SELECT position, stranger_rando_id, stranger_creation, stranger_image_url, stranger_image_size_url, stranger_map_url, stranger_map_size_url
		FROM pairing_slots
		WHERE user_email = $1
		ORDER BY position
	`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get pairing slots: %w", err)
	}
	defer rows.Close()

	var slots []models.PairingSlot
	for rows.Next() {
		var slot models.PairingSlot
		var randoID *string
		var creation *int64
		var imageURL, imageSizeURL, mapURL, mapSizeURL *string
		err := rows.Scan(&slot.Position, &randoID, &creation, &imageURL, &imageSizeURL, &mapURL, &mapSizeURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pairing slot: %w", err)
		}
		if randoID != nil {
			slot.Stranger = &models.RandoSync{
				RandoID:      *randoID,
				Creation:     derefInt64(creation),
				ImageURL:     derefString(imageURL),
				ImageSizeURL: derefString(imageSizeURL),
				MapURL:       derefString(mapURL),
				MapSizeURL:   derefString(mapSizeURL),
			}
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pairing slots: %w", err)
	}

	return slots, nil
}

func insertSlots(ctx context.Context, tx pgx.Tx, email string, slots []models.PairingSlot) error {
	query := `
		INSERT INTO pairing_slots (user_email, position, stranger_rando_id, stranger_creation, stranger_image_url, stranger_image_size_url, stranger_map_url, stranger_map_size_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, slot := range slots {
		var randoID, imageURL, imageSizeURL, mapURL, mapSizeURL *string
		var creation *int64
		if slot.Stranger != nil {
			randoID = &slot.Stranger.RandoID
			creation = &slot.Stranger.Creation
			imageURL = &slot.Stranger.ImageURL
			imageSizeURL = &slot.Stranger.ImageSizeURL
			mapURL = &slot.Stranger.MapURL
			mapSizeURL = &slot.Stranger.MapSizeURL
		}
		_, err := tx.Exec(ctx, query, email, slot.Position, randoID, creation, imageURL, imageSizeURL, mapURL, mapSizeURL)
		if err != nil {
			return fmt.Errorf("failed to insert pairing slot: %w", err)
		}
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt64(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
