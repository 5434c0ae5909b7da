package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"bucket-list-backend/internal/metrics"
	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository/sqlite"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	store   *sqlite.Store
	metrics *metrics.Metrics
	hub     *MessageHub
	pusher  *recordingPusher
	users   *UserService
	buckets *BucketService
	chats   *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := metrics.New()
	hub := NewMessageHub(4, m)
	pusher := &recordingPusher{}

	return &testEnv{
		store:   store,
		metrics: m,
		hub:     hub,
		pusher:  pusher,
		users:   NewUserService(store.Users(), testSecret),
		buckets: NewBucketService(store.Buckets(), store.Users()),
		chats:   NewChatService(store.Chats(), store.Users(), hub, pusher, m),
	}
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), RegisterInput{
		FirstName: "First " + username,
		Username:  username,
		Email:     username + "@example.com",
		Password:  "password-" + username,
	})
	require.NoError(t, err)
	return user
}

type recordingPusher struct {
	mu   sync.Mutex
	sent []Notification
}

func (p *recordingPusher) Notify(ctx context.Context, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

func (p *recordingPusher) notifications() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Notification(nil), p.sent...)
}

func strPtr(s string) *string { return &s }
