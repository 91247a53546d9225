package services

import (
	"fmt"

	"bonappetit-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// NotifyService delivers pairing notifications over WebSocket to online
// users and over APNs to users with a registered device token. Delivery is
// best effort; failures are logged and never surfaced to the pairing engine.
type NotifyService struct {
	hub        *WSHub
	apnsClient *apns2.Client
	apnsTopic  string
}

// NewNotifyService creates a notify service. certFile may be empty, in which
// case APNs delivery is disabled and only WebSocket notifications are sent.
func NewNotifyService(hub *WSHub, certFile, certPassword, topic string, production bool) (*NotifyService, error) {
	svc := &NotifyService{
		hub:       hub,
		apnsTopic: topic,
	}

	if certFile != "" {
		cert, err := certificate.FromP12File(certFile, certPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
		}
		client := apns2.NewClient(cert)
		if production {
			client = client.Production()
		} else {
			client = client.Development()
		}
		svc.apnsClient = client
	}

	return svc, nil
}

// RandoPaired implements PairingNotifier
func (s *NotifyService) RandoPaired(user *models.User, stranger models.RandoSync) {
	if s.hub.IsOnline(user.Email) {
		if err := s.hub.NotifyRandoPaired(user.Email, stranger); err != nil {
			log.Warn().Err(err).Str("email", user.Email).Msg("Failed to send pairing over WebSocket")
		}
	}

	if s.apnsClient != nil && user.PushToken != nil {
		go s.push(*user.PushToken, user.Email)
	}
}

func (s *NotifyService) push(deviceToken, email string) {
	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.apnsTopic,
		Payload: payload.NewPayload().
			Alert("Bon appétit! A stranger's food has arrived.").
			Sound("default"),
	}

	res, err := s.apnsClient.Push(notification)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Failed to push APNs notification")
		return
	}
	if !res.Sent() {
		log.Warn().
			Str("email", email).
			Int("status", res.StatusCode).
			Str("reason", res.Reason).
			Msg("APNs notification rejected")
	}
}
