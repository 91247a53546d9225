package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bonappetit-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	staticMapBase = "https://maps.googleapis.com/maps/api/staticmap"
	mapSize       = "590x590"
	mapSizeSmall  = "300x300"
)

// RandoStore is the persistence surface the rando service needs
type RandoStore interface {
	Create(ctx context.Context, rando *models.Rando) error
	GetByEmail(ctx context.Context, email string) ([]*models.Rando, error)
	IncrementReport(ctx context.Context, randoID string) error
	IncrementBonAppetit(ctx context.Context, randoID string) error
}

// RandoService handles posting and rating of food randos
type RandoService struct {
	randos   RandoStore
	users    UserStore
	s3Client *s3.Client
	s3Bucket string
	region   string
}

// NewRandoService creates a new rando service backed by S3 image storage
func NewRandoService(
	randos RandoStore,
	users UserStore,
	awsRegion, s3Bucket, accessKey, secretKey, endpoint string,
) (*RandoService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(awsRegion),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &RandoService{
		randos:   randos,
		users:    users,
		s3Client: s3Client,
		s3Bucket: s3Bucket,
		region:   awsRegion,
	}, nil
}

// PostFood stores an uploaded food image and enters it into the pairing
// pool. Each posted rando also earns its owner one empty pairing slot.
func (s *RandoService) PostFood(ctx context.Context, email string, image []byte, contentType string, latitude, longitude float64) (*models.Rando, error) {
	randoID := uuid.New().String()

	imageKey := fmt.Sprintf("images/%s.jpg", randoID)
	sizeKey := fmt.Sprintf("images/%s.size.jpg", randoID)

	if err := s.putObject(ctx, imageKey, image, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	// TODO: generate a real downscaled rendition instead of copying the original
	if err := s.putObject(ctx, sizeKey, image, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload sized image: %w", err)
	}

	rando := &models.Rando{
		RandoID:      randoID,
		Email:        email,
		Creation:     time.Now().UnixMilli(),
		ImageURL:     s.objectURL(imageKey),
		ImageSizeURL: s.objectURL(sizeKey),
		MapURL:       staticMapURL(latitude, longitude, mapSize),
		MapSizeURL:   staticMapURL(latitude, longitude, mapSizeSmall),
		CreatedAt:    time.Now(),
	}

	if err := s.randos.Create(ctx, rando); err != nil {
		return nil, fmt.Errorf("failed to create rando: %w", err)
	}

	if err := s.grantSlot(ctx, email); err != nil {
		// The rando is already in the pool; the missing slot only limits
		// how many strangers this user can receive.
		log.Warn().Err(err).Str("email", email).Msg("Failed to grant pairing slot")
	}

	log.Info().
		Str("email", email).
		Str("rando_id", randoID).
		Msg("Food posted")

	return rando, nil
}

// GetOut returns the user's own pending randos, newest first
func (s *RandoService) GetOut(ctx context.Context, email string) ([]*models.Rando, error) {
	return s.randos.GetByEmail(ctx, email)
}

// Report flags a rando as inappropriate
func (s *RandoService) Report(ctx context.Context, randoID string) error {
	return s.randos.IncrementReport(ctx, randoID)
}

// BonAppetit records a bon appetit for a rando
func (s *RandoService) BonAppetit(ctx context.Context, randoID string) error {
	return s.randos.IncrementBonAppetit(ctx, randoID)
}

// grantSlot appends one empty pairing slot to the user
func (s *RandoService) grantSlot(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	user.Slots = append(user.Slots, models.PairingSlot{Position: len(user.Slots)})
	return s.users.Update(ctx, user)
}

func (s *RandoService) putObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *RandoService) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.s3Bucket, s.region, key)
}

func staticMapURL(latitude, longitude float64, size string) string {
	return fmt.Sprintf("%s?center=%f,%f&zoom=15&size=%s&sensor=false",
		staticMapBase, latitude, longitude, size)
}
