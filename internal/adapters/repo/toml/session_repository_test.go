package toml

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*SessionRepository, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	config := viper.New()
	config.Set(SessionPathKey, path)

	repo, err := NewSessionRepository(config)
	require.NoError(t, err)
	return repo, path
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo, path := newTestRepository(t)

	session := domain.Session{
		Token:     "must-not-persist",
		TokenRef:  "healthcare/localhost:8000/jane/token",
		BaseURL:   "http://localhost:8000/api",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		User: domain.User{
			ID:        3,
			Username:  "jane",
			Role:      domain.RolePatient,
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "jane@example.com",
		},
	}

	require.NoError(t, repo.Save(context.Background(), session))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)

	want := session
	want.Token = ""
	assert.Equal(t, want, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "must-not-persist")
	assert.Contains(t, string(data), "version = 1")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSessionRepositoryLoadMissingFile(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrNotLoggedIn)
}

func TestSessionRepositoryDelete(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)

	require.NoError(t, repo.Delete(context.Background()), "deleting without a session is a no-op")

	require.NoError(t, repo.Save(context.Background(), domain.Session{
		BaseURL: "http://localhost:8000/api",
		User:    domain.User{ID: 1, Username: "house", Role: domain.RoleDoctor},
	}))
	require.NoError(t, repo.Delete(context.Background()))

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrNotLoggedIn)
}

func TestSessionRepositoryRejectsNewerSchema(t *testing.T) {
	t.Parallel()

	repo, path := newTestRepository(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("version = 9\n"), 0o600))

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported session schema version 9")
}

func TestSessionRepositoryRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	repo, path := newTestRepository(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	content := "version = 1\n\n[session]\nbase_url = \"http://x\"\ntoken_ref = \"r\"\n\n[session.user]\nid = 1\nusername = \"x\"\nrole = \"nurse\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrUnsupportedRole)
}

func TestSessionRepositoryHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, repo.Save(ctx, domain.Session{}), context.Canceled)
	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, repo.Delete(ctx), context.Canceled)
}

func TestSessionRepositoryConcurrentSaves(t *testing.T) {
	t.Parallel()

	repo, path := newTestRepository(t)

	config := viper.New()
	config.Set(SessionPathKey, path)
	other, err := NewSessionRepository(config)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := repo
			if i%2 == 0 {
				target = other
			}
			_ = target.Save(context.Background(), domain.Session{
				BaseURL: "http://localhost:8000/api",
				User:    domain.User{ID: domain.UserID(i), Username: "user", Role: domain.RolePatient},
			})
		}(i)
	}
	wg.Wait()

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user", got.User.Username)
}
