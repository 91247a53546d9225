package models

import "time"

// Rando represents a single anonymous food submission awaiting pairing
type Rando struct {
	RandoID      string    `json:"randoId"`
	Email        string    `json:"email"`
	Creation     int64     `json:"creation"` // unix milliseconds
	ImageURL     string    `json:"imageURL"`
	ImageSizeURL string    `json:"imageSizeURL"`
	MapURL       string    `json:"mapURL"`
	MapSizeURL   string    `json:"mapSizeURL"`
	Report       int       `json:"report"`
	BonAppetit   int       `json:"bonAppetit"`
	CreatedAt    time.Time `json:"created_at"`
}

// RandoSync is the view of a rando exposed to its matched counterpart.
// It never carries the owner's email.
type RandoSync struct {
	RandoID      string `json:"randoId"`
	Creation     int64  `json:"creation"`
	ImageURL     string `json:"imageURL"`
	ImageSizeURL string `json:"imageSizeURL"`
	MapURL       string `json:"mapURL"`
	MapSizeURL   string `json:"mapSizeURL"`
}

// Sync builds the counterpart-facing snapshot of a rando
func (r *Rando) Sync() RandoSync {
	return RandoSync{
		RandoID:      r.RandoID,
		Creation:     r.Creation,
		ImageURL:     r.ImageURL,
		ImageSizeURL: r.ImageSizeURL,
		MapURL:       r.MapURL,
		MapSizeURL:   r.MapSizeURL,
	}
}

// PairingSlot is one reserved position on a user. An empty slot has a nil
// Stranger; a filled slot is never overwritten.
type PairingSlot struct {
	Position int        `json:"position"`
	Stranger *RandoSync `json:"stranger,omitempty"`
}

// Empty reports whether the slot has no stranger assigned yet
func (s *PairingSlot) Empty() bool {
	return s.Stranger == nil
}

// User represents a user in the system, keyed by email
type User struct {
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	AuthToken    string        `json:"-"`
	AnonymousID  *string       `json:"anonymous_id,omitempty"`
	PushToken    *string       `json:"push_token,omitempty"`
	Slots        []PairingSlot `json:"slots"`
	CreatedAt    time.Time     `json:"created_at"`
}

// FirstEmptySlot returns the first slot without a stranger, or nil if every
// slot is taken. Slots are filled in order, first-empty-wins.
func (u *User) FirstEmptySlot() *PairingSlot {
	for i := range u.Slots {
		if u.Slots[i].Empty() {
			return &u.Slots[i]
		}
	}
	return nil
}

// UserSync is the response body for a user sync request
type UserSync struct {
	Email string      `json:"email"`
	In    []RandoSync `json:"in"`
	Out   []RandoSync `json:"out"`
}
