package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"bonappetit-backend/internal/models"
	"bonappetit-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoFreeSlot is returned when a user has no empty pairing slot left
var ErrNoFreeSlot = errors.New("no free pairing slot")

// RandoPool is the submission pool the pairing engine draws from
type RandoPool interface {
	GetAllPending(ctx context.Context) ([]*models.Rando, error)
	Delete(ctx context.Context, randoID string) error
}

// UserDirectory resolves and persists user records during a commit
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// PairingNotifier is told about every slot successfully filled.
// Notification failures are the notifier's problem, not the engine's.
type PairingNotifier interface {
	RandoPaired(user *models.User, stranger models.RandoSync)
}

// PairingService matches pending randos between strangers and commits the
// results to both owners' records
type PairingService struct {
	pool     RandoPool
	users    UserDirectory
	notifier PairingNotifier
	timeout  time.Duration
	now      func() time.Time
}

// NewPairingService creates a new pairing service. notifier may be nil.
func NewPairingService(pool RandoPool, users UserDirectory, notifier PairingNotifier, pairingTimeout time.Duration) *PairingService {
	return &PairingService{
		pool:     pool,
		users:    users,
		notifier: notifier,
		timeout:  pairingTimeout,
		now:      time.Now,
	}
}

// Pair is one match between two randos with distinct owners. It only lives
// long enough to be committed.
type Pair struct {
	A *models.Rando
	B *models.Rando
}

// FindPairs walks the batch in input order and greedily pairs each rando
// with the first later rando owned by a different user. Every rando ends up
// in exactly one pair or in the leftovers; no pair shares an owner email.
// The result depends on input order, which is the intended behavior: callers
// control priority by sorting the batch.
func FindPairs(randos []*models.Rando) (pairs []Pair, leftovers []*models.Rando) {
	taken := make([]bool, len(randos))
	for i, current := range randos {
		if taken[i] {
			continue
		}
		matched := false
		for j := i + 1; j < len(randos); j++ {
			if taken[j] || randos[j].Email == current.Email {
				continue
			}
			taken[i], taken[j] = true, true
			pairs = append(pairs, Pair{A: current, B: randos[j]})
			matched = true
			break
		}
		if !matched {
			leftovers = append(leftovers, current)
		}
	}
	return pairs, leftovers
}

// RunCycle executes one full pairing pass: fetch the pool, match, give stale
// leftovers one prioritized retry, and commit every pair. Errors are logged
// where they happen and never abort the cycle.
func (s *PairingService) RunCycle(ctx context.Context) {
	log.Debug().Msg("Pairing cycle started")

	randos, err := s.pool.GetAllPending(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch pending randos")
		return
	}

	pairs, leftovers := FindPairs(randos)
	s.commitPairs(ctx, pairs)

	// If the oldest leftover has waited past the pairing timeout, the
	// leftovers get one more pass against a fresh read of the pool, sorted
	// newest first. Leftovers of a single greedy pass always share one
	// owner, so without new arrivals the retry finds nothing; with them the
	// stale rando gets matched ahead of the next cycle. At most one extra
	// pass per cycle.
	stale := s.oldestStale(leftovers)
	if stale == nil {
		return
	}
	log.Info().
		Str("rando_id", stale.RandoID).
		Int64("creation", stale.Creation).
		Msg("Stale rando requeued for pairing")

	// Randos already handed to the committer must not be paired twice,
	// even when their deletion failed; those retry on the next cycle.
	consumed := make(map[string]bool, len(pairs)*2)
	for _, pair := range pairs {
		consumed[pair.A.RandoID] = true
		consumed[pair.B.RandoID] = true
	}

	randos, err = s.pool.GetAllPending(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to refetch pending randos")
		return
	}
	batch := randos[:0]
	for _, rando := range randos {
		if !consumed[rando.RandoID] {
			batch = append(batch, rando)
		}
	}
	sortByRecency(batch)

	retryPairs, _ := FindPairs(batch)
	s.commitPairs(ctx, retryPairs)
}

// oldestStale returns the oldest leftover if it has aged past the pairing
// timeout, nil otherwise
func (s *PairingService) oldestStale(leftovers []*models.Rando) *models.Rando {
	var oldest *models.Rando
	for _, rando := range leftovers {
		if oldest == nil || rando.Creation < oldest.Creation {
			oldest = rando
		}
	}
	if oldest == nil {
		return nil
	}
	age := s.now().UnixMilli() - oldest.Creation
	if age < s.timeout.Milliseconds() {
		return nil
	}
	return oldest
}

func sortByRecency(randos []*models.Rando) {
	sort.SliceStable(randos, func(i, j int) bool {
		return randos[i].Creation > randos[j].Creation
	})
}

func (s *PairingService) commitPairs(ctx context.Context, pairs []Pair) {
	for _, pair := range pairs {
		log.Info().
			Str("rando_a", pair.A.RandoID).
			Str("rando_b", pair.B.RandoID).
			Msg("Pairing found")
		s.connectRandos(ctx, pair.A, pair.B)
	}
}

// connectRandos commits one match: each owner receives the counterpart's
// rando. The two sides are independent; one side failing never rolls the
// other back.
func (s *PairingService) connectRandos(ctx context.Context, randoA, randoB *models.Rando) {
	var g errgroup.Group
	g.Go(func() error {
		return s.processRandoForUser(ctx, randoA.Email, randoB)
	})
	g.Go(func() error {
		return s.processRandoForUser(ctx, randoB.Email, randoA)
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).
			Str("rando_a", randoA.RandoID).
			Str("rando_b", randoB.RandoID).
			Msg("Pairing commit incomplete")
	}
}

// processRandoForUser assigns the stranger's rando to the first empty slot
// of the user identified by email, then persists the user and deletes the
// consumed rando from the pool. The two writes are fired concurrently and
// collected individually; neither waits on or aborts the other.
func (s *PairingService) processRandoForUser(ctx context.Context, email string, stranger *models.Rando) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Warn().Str("email", email).Msg("User not found, match side abandoned")
		} else {
			log.Warn().Err(err).Str("email", email).Msg("Failed to resolve user")
		}
		return err
	}

	slot := user.FirstEmptySlot()
	if slot == nil {
		log.Warn().
			Str("email", email).
			Str("rando_id", stranger.RandoID).
			Msg("No free pairing slot, match side abandoned")
		return ErrNoFreeSlot
	}

	snapshot := stranger.Sync()
	slot.Stranger = &snapshot

	var g errgroup.Group
	g.Go(func() error {
		if err := s.users.Update(ctx, user); err != nil {
			log.Warn().Err(err).Str("email", email).Msg("Failed to update user with paired rando")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.pool.Delete(ctx, stranger.RandoID); err != nil {
			log.Warn().Err(err).Str("rando_id", stranger.RandoID).Msg("Failed to delete consumed rando")
			return err
		}
		return nil
	})
	err = g.Wait()

	if err == nil {
		log.Info().
			Str("email", email).
			Str("rando_id", stranger.RandoID).
			Msg("Pairing committed")
		if s.notifier != nil {
			s.notifier.RandoPaired(user, snapshot)
		}
	}
	return err
}
