package services_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"comparador/internal/database"
	"comparador/internal/repositories"
	"comparador/internal/security"
	"comparador/internal/services"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testAdmin = "root"

type testEnv struct {
	db     *gorm.DB
	path   string
	store  *repositories.GORMStore
	hasher *security.BcryptHasher
	authz  *services.Authorizer
	events *recordingPublisher
	log    *slog.Logger
	auth   *services.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "database.db")
	db, err := database.OpenSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	env := &testEnv{
		db:     db,
		path:   path,
		store:  repositories.NewGORMStore(db),
		hasher: security.NewBcryptHasher(bcrypt.MinCost),
		authz:  services.NewAuthorizer(testAdmin),
		events: &recordingPublisher{},
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.auth = services.NewAuthService(env.store, env.hasher, env.authz, env.events, env.log)
	return env
}

func (e *testEnv) mustRegister(t *testing.T, username, password, email string) string {
	t.Helper()
	user, err := e.auth.Register(context.Background(), username, password, email)
	require.NoError(t, err)
	return user.ID
}

type publishedEvent struct {
	key  string
	body []byte
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: routingKey, body: body})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}
