package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenKey = "healthcare/localhost_8000/jane/token"

func TestStorePutUsesPassInsert(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, []string{"insert", "-m", "-f", tokenKey}, args)
			assert.Equal(t, "tok-123\n", input)
			return "", "", nil
		},
	}

	err := store.Put(context.Background(), tokenKey, "tok-123")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStoreGetReturnsFirstLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stdout string
	}{
		{name: "trailing newline", stdout: "tok-123\n"},
		{name: "crlf", stdout: "tok-123\r\n"},
		{name: "extra lines", stdout: "tok-123\nuser: jane\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &Store{
				run: func(ctx context.Context, input string, args ...string) (string, string, error) {
					assert.Equal(t, []string{"show", tokenKey}, args)
					assert.Empty(t, input)
					return tt.stdout, "", nil
				},
			}

			value, err := store.Get(context.Background(), tokenKey)
			require.NoError(t, err)
			assert.Equal(t, "tok-123", value)
		})
	}
}

func TestStoreGetMapsMissingEntry(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(context.Context, string, ...string) (string, string, error) {
			return "", "Error: " + tokenKey + " is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), tokenKey)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreDeleteUsesPassRemove(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", tokenKey}, args)
			assert.Empty(t, input)
			return "", "", nil
		},
	}

	require.NoError(t, store.Delete(context.Background(), tokenKey))
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(context.Context, string, ...string) (string, string, error) {
			return "", "gpg: decryption failed", errors.New("exit status 2")
		},
	}

	_, err := store.Get(context.Background(), tokenKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, tokenKey)
	assert.ErrorContains(t, err, "gpg: decryption failed")
}

func TestStoreSkipsCommandOnCanceledContext(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(context.Context, string, ...string) (string, string, error) {
			t.Fatal("pass must not run")
			return "", "", nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, store.Put(ctx, tokenKey, "v"), context.Canceled)
}

func TestStoreRejectsInvalidEntryNames(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			t.Errorf("pass must not run for an invalid key, got %v", args)
			return "", "", nil
		},
	}

	for _, key := range []string{"", " healthcare/x/token", "/healthcare/x/token", "--help", "../outside", "healthcare//jane/token", "healthcare/x/token/"} {
		t.Run(key, func(t *testing.T) {
			require.ErrorIs(t, store.Put(context.Background(), key, "tok"), ErrInvalidKey)
			_, err := store.Get(context.Background(), key)
			require.ErrorIs(t, err, ErrInvalidKey)
			require.ErrorIs(t, store.Delete(context.Background(), key), ErrInvalidKey)
		})
	}
}

func TestStoreUsesTokenRefAsEntryName(t *testing.T) {
	t.Parallel()

	key := domain.TokenRefFor("http://localhost:8000/api", "jane")
	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "healthcare/localhost_8000/jane/token"}, args)
			return "tok-123\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", value)
}
