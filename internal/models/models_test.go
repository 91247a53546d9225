package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstEmptySlotFillsInOrder(t *testing.T) {
	user := &User{
		Email: "alice@example.com",
		Slots: []PairingSlot{
			{Position: 0, Stranger: &RandoSync{RandoID: "r0"}},
			{Position: 1},
			{Position: 2},
		},
	}

	slot := user.FirstEmptySlot()
	require.NotNil(t, slot)
	assert.Equal(t, 1, slot.Position)

	slot.Stranger = &RandoSync{RandoID: "r1"}
	next := user.FirstEmptySlot()
	require.NotNil(t, next)
	assert.Equal(t, 2, next.Position)
}

func TestFirstEmptySlotNilWhenFull(t *testing.T) {
	user := &User{
		Email: "alice@example.com",
		Slots: []PairingSlot{
			{Position: 0, Stranger: &RandoSync{RandoID: "r0"}},
		},
	}
	assert.Nil(t, user.FirstEmptySlot())

	empty := &User{Email: "bob@example.com"}
	assert.Nil(t, empty.FirstEmptySlot())
}

func TestSyncOmitsOwnerEmail(t *testing.T) {
	rando := &Rando{
		RandoID:      "r1",
		Email:        "alice@example.com",
		Creation:     42,
		ImageURL:     "https://img.example.com/r1.jpg",
		ImageSizeURL: "https://img.example.com/r1.size.jpg",
		MapURL:       "https://map.example.com/r1",
		MapSizeURL:   "https://map.example.com/r1.small",
	}

	sync := rando.Sync()
	assert.Equal(t, RandoSync{
		RandoID:      "r1",
		Creation:     42,
		ImageURL:     "https://img.example.com/r1.jpg",
		ImageSizeURL: "https://img.example.com/r1.size.jpg",
		MapURL:       "https://map.example.com/r1",
		MapSizeURL:   "https://map.example.com/r1.small",
	}, sync)
}
