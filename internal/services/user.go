package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"bonappetit-backend/internal/models"
	"bonappetit-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenExpDays          = 365
	anonymousEmailPostfix = "anonymous.bonappetit"
	bcryptCost            = bcrypt.DefaultCost
)

var emailPattern = regexp.MustCompile(`.+@.+\..+`)

// ErrInvalidCredentials is returned for a bad email/password combination
var ErrInvalidCredentials = errors.New("email or password is incorrect")

// ErrInvalidToken is returned when an auth token fails validation
var ErrInvalidToken = errors.New("invalid token")

// UserStore is the persistence surface the user service needs
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateAuthToken(ctx context.Context, email, token string) error
	UpdatePushToken(ctx context.Context, email string, pushToken *string) error
}

// UserService handles user-related business logic
type UserService struct {
	users     UserStore
	jwtSecret string
}

// NewUserService creates a new user service
func NewUserService(users UserStore, jwtSecret string) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

// FindOrCreateByLoginAndPassword logs a user in, creating the account on
// first contact. A fresh auth token is issued either way.
func (s *UserService) FindOrCreateByLoginAndPassword(ctx context.Context, email, password string) (string, error) {
	if !emailPattern.MatchString(email) || password == "" {
		return "", ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if user != nil {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return "", ErrInvalidCredentials
		}
		return s.issueToken(ctx, email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := s.generateToken(email)
	if err != nil {
		return "", err
	}

	user = &models.User{
		Email:        email,
		PasswordHash: string(hash),
		AuthToken:    token,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	return token, nil
}

// FindOrCreateAnonymous logs in a device-identified anonymous user, creating
// the account on first contact
func (s *UserService) FindOrCreateAnonymous(ctx context.Context, anonymousID string) (string, error) {
	if anonymousID == "" {
		return "", fmt.Errorf("anonymous id is required")
	}

	email := anonymousID + "@" + anonymousEmailPostfix

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if user != nil {
		return s.issueToken(ctx, email)
	}

	token, err := s.generateToken(email)
	if err != nil {
		return "", err
	}

	user = &models.User{
		Email:       email,
		AuthToken:   token,
		AnonymousID: &anonymousID,
		CreatedAt:   time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	return token, nil
}

// Logout destroys the user's auth token
func (s *UserService) Logout(ctx context.Context, email string) error {
	if err := s.users.UpdateAuthToken(ctx, email, ""); err != nil {
		return fmt.Errorf("failed to destroy auth token: %w", err)
	}
	return nil
}

// RegisterPushToken stores the APNs device token for a user
func (s *UserService) RegisterPushToken(ctx context.Context, email, pushToken string) error {
	var token *string
	if pushToken != "" {
		token = &pushToken
	}
	if err := s.users.UpdatePushToken(ctx, email, token); err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// Authenticate validates a bearer token and resolves its user. A token that
// parses but no longer matches the stored one (logout) is rejected.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	email, err := s.validateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.AuthToken != token {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// BuildUserSync assembles the sync view of a user: filled slots come in as
// stranger snapshots, the user's own pending randos go out
func (s *UserService) BuildUserSync(user *models.User, out []*models.Rando) models.UserSync {
	sync := models.UserSync{
		Email: user.Email,
		In:    []models.RandoSync{},
		Out:   []models.RandoSync{},
	}
	for _, slot := range user.Slots {
		if !slot.Empty() {
			sync.In = append(sync.In, *slot.Stranger)
		}
	}
	for _, rando := range out {
		sync.Out = append(sync.Out, rando.Sync())
	}
	return sync
}

// issueToken generates a fresh token and persists it as the user's current one
func (s *UserService) issueToken(ctx context.Context, email string) (string, error) {
	token, err := s.generateToken(email)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateAuthToken(ctx, email, token); err != nil {
		return "", fmt.Errorf("failed to update auth token: %w", err)
	}
	return token, nil
}

// generateToken generates a signed JWT carrying the user's email
func (s *UserService) generateToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"exp":   time.Now().AddDate(0, 0, tokenExpDays).Unix(),
		"iat":   time.Now().Unix(),
		"jti":   uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// validateToken parses and verifies a JWT and returns the email claim
func (s *UserService) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	email, ok := claims["email"].(string)
	if !ok {
		return "", ErrInvalidToken
	}

	return email, nil
}
