package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"bonappetit-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(pool RandoPool, interval time.Duration) *PairingDaemon {
	svc := NewPairingService(pool, newFakeDirectory(), nil, time.Minute)
	return NewPairingDaemon(svc, interval)
}

func TestDaemonRunsCycles(t *testing.T) {
	pool := &fakePool{}
	daemon := newTestDaemon(pool, 5*time.Millisecond)

	daemon.Start()
	defer daemon.Stop()

	require.Eventually(t, func() bool {
		pool.mu.Lock()
		defer pool.mu.Unlock()
		return pool.fetches >= 2
	}, time.Second, time.Millisecond)
}

func TestDaemonStopIsIdempotent(t *testing.T) {
	daemon := newTestDaemon(&fakePool{}, time.Millisecond)

	// Stop before Start is a no-op
	daemon.Stop()

	daemon.Start()
	daemon.Stop()
	daemon.Stop()

	// The daemon can be armed again after a full stop
	daemon.Start()
	daemon.Stop()
}

func TestDaemonStartTwiceArmsOneTimer(t *testing.T) {
	daemon := newTestDaemon(&fakePool{}, time.Millisecond)

	daemon.Start()
	first := daemon.done
	daemon.Start()
	assert.Equal(t, first, daemon.done, "second Start must not replace the running loop")

	daemon.Stop()
}

// blockingPool parks the first fetch until released, so a cycle can be held
// in flight deliberately
type blockingPool struct {
	started  chan struct{}
	release  chan struct{}
	finished atomic.Bool
	once     atomic.Bool
}

func (p *blockingPool) GetAllPending(_ context.Context) ([]*models.Rando, error) {
	if p.once.CompareAndSwap(false, true) {
		close(p.started)
		<-p.release
		p.finished.Store(true)
	}
	return nil, nil
}

func (p *blockingPool) Delete(_ context.Context, _ string) error { return nil }

func TestDaemonStopWaitsForInflightCycle(t *testing.T) {
	pool := &blockingPool{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	daemon := newTestDaemon(pool, time.Millisecond)

	daemon.Start()
	<-pool.started

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(pool.release)
	}()

	daemon.Stop()
	assert.True(t, pool.finished.Load(), "Stop returned while a cycle was still in flight")
}
