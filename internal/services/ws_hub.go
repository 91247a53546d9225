package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"bonappetit-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type     string            `json:"type"`
	Stranger *models.RandoSync `json:"stranger,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// WSHub manages WebSocket connections, keyed by user email
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*websocket.Conn),
	}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(email string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existingConn, exists := h.connections[email]; exists {
		existingConn.Close()
	}

	h.connections[email] = conn

	log.Info().Str("email", email).Msg("WebSocket connection registered")
}

// Unregister removes a WebSocket connection for a user
func (h *WSHub) Unregister(email string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[email]; exists {
		conn.Close()
		delete(h.connections, email)
		log.Info().Str("email", email).Msg("WebSocket connection unregistered")
	}
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(email string, message WSMessage) error {
	h.mu.RLock()
	conn, exists := h.connections[email]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", email)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(email)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user has a live connection
func (h *WSHub) IsOnline(email string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[email]
	return exists
}

// NotifyRandoPaired tells a connected user that a stranger's rando landed
// in one of their slots
func (h *WSHub) NotifyRandoPaired(email string, stranger models.RandoSync) error {
	return h.SendToUser(email, WSMessage{
		Type:     "rando_paired",
		Stranger: &stranger,
	})
}
