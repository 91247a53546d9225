package services

import (
	"context"
	"sync"
	"testing"

	"bonappetit-backend/internal/models"
	"bonappetit-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserStore is an in-memory UserStore
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *user
	s.users[user.Email] = &c
	return nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *user
	return &c, nil
}

func (s *fakeUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; !ok {
		return repository.ErrUserNotFound
	}
	c := *user
	s.users[user.Email] = &c
	return nil
}

func (s *fakeUserStore) UpdateAuthToken(_ context.Context, email, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.AuthToken = token
	return nil
}

func (s *fakeUserStore) UpdatePushToken(_ context.Context, email string, pushToken *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PushToken = pushToken
	return nil
}

func TestLoginCreatesUserAndAuthenticates(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	token, err := svc.FindOrCreateByLoginAndPassword(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "hunter2", user.PasswordHash, "password must never be stored in plain text")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	_, err := svc.FindOrCreateByLoginAndPassword(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = svc.FindOrCreateByLoginAndPassword(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsMalformedEmail(t *testing.T) {
	svc := NewUserService(newFakeUserStore(), "test-secret")

	_, err := svc.FindOrCreateByLoginAndPassword(context.Background(), "not-an-email", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.FindOrCreateByLoginAndPassword(context.Background(), "alice@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginReissuesTokenForExistingUser(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	first, err := svc.FindOrCreateByLoginAndPassword(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)
	second, err := svc.FindOrCreateByLoginAndPassword(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	// The old token is superseded
	_, err = svc.Authenticate(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Authenticate(ctx, second)
	assert.NoError(t, err)
}

func TestAnonymousLogin(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	token, err := svc.FindOrCreateAnonymous(ctx, "device-42")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "device-42@"+anonymousEmailPostfix, user.Email)

	// A second login reuses the account
	_, err = svc.FindOrCreateAnonymous(ctx, "device-42")
	require.NoError(t, err)
	assert.Len(t, store.users, 1)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, "test-secret")
	ctx := context.Background()

	token, err := svc.FindOrCreateAnonymous(ctx, "device-42")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, user.Email))

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateRejectsForeignSignature(t *testing.T) {
	store := newFakeUserStore()
	token, err := NewUserService(store, "other-secret").FindOrCreateAnonymous(context.Background(), "device-42")
	require.NoError(t, err)

	_, err = NewUserService(store, "test-secret").Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBuildUserSyncOmitsStrangerEmail(t *testing.T) {
	svc := NewUserService(newFakeUserStore(), "test-secret")

	stranger := newRando("s1", "stranger@example.com", 10)
	snapshot := stranger.Sync()
	user := newUser("alice@example.com", 2)
	user.Slots[0].Stranger = &snapshot

	out := []*models.Rando{newRando("a1", "alice@example.com", 20)}

	sync := svc.BuildUserSync(user, out)

	assert.Equal(t, "alice@example.com", sync.Email)
	require.Len(t, sync.In, 1)
	assert.Equal(t, snapshot, sync.In[0])
	require.Len(t, sync.Out, 1)
	assert.Equal(t, "a1", sync.Out[0].RandoID)
}
