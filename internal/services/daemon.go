package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PairingDaemon triggers pairing cycles on a fixed interval. A cycle always
// runs to completion inside the daemon's own goroutine, so two cycles can
// never overlap; ticks that fire while a cycle is still running coalesce.
type PairingDaemon struct {
	pairing  *PairingService
	interval time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewPairingDaemon creates a pairing daemon with the given wakeup interval
func NewPairingDaemon(pairing *PairingService, wakeupInterval time.Duration) *PairingDaemon {
	return &PairingDaemon{
		pairing:  pairing,
		interval: wakeupInterval,
	}
}

// Start arms the repeating timer. Calling Start while the daemon is already
// running is a no-op; a second timer is never created.
func (d *PairingDaemon) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		log.Warn().Msg("Pairing daemon already running")
		return
	}
	d.running = true
	d.done = make(chan struct{})

	log.Info().Dur("wakeup_interval", d.interval).Msg("Starting pairing daemon")

	d.wg.Add(1)
	go d.loop(d.done)
}

// Stop prevents further cycles from starting and waits for an in-flight
// cycle to finish, so a consumed rando is never left without its slot write.
// Stop is idempotent.
func (d *PairingDaemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	close(d.done)
	d.wg.Wait()
	d.running = false

	log.Info().Msg("Pairing daemon stopped")
}

func (d *PairingDaemon) loop(done chan struct{}) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			select {
			case <-done:
				// Stop won the race against the tick
				return
			default:
			}
			// The cycle gets a fresh background context: Stop does not
			// interrupt work already in flight.
			d.pairing.RunCycle(context.Background())
		}
	}
}
