package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/bnema/healthcare-assistant-cli/internal/ports/mocks"
)

const (
	testBaseURL  = "http://localhost:8000/api"
	testTokenRef = "healthcare/localhost_8000/jane/token"
)

var testNow = time.Date(2025, 9, 18, 10, 30, 0, 0, time.UTC)

func mockAnyContext() interface{} {
	return mock.Anything
}

func janeSession() domain.Session {
	return domain.Session{
		Token:   "tok-123",
		BaseURL: testBaseURL,
		User: domain.User{
			ID:        7,
			Username:  "jane",
			Role:      domain.RolePatient,
			FirstName: "Jane",
			LastName:  "Doe",
		},
	}
}

func storedJaneSession() domain.Session {
	session := janeSession()
	session.TokenRef = testTokenRef
	session.CreatedAt = testNow
	return session
}

type sessionFixture struct {
	auth    *mocks.MockAuthAPI
	repo    *mocks.MockSessionRepository
	store   *mocks.MockSecretStore
	clock   *mocks.MockClock
	service *SessionService
}

func newSessionFixture(t *testing.T) sessionFixture {
	t.Helper()

	f := sessionFixture{
		auth:  mocks.NewMockAuthAPI(t),
		repo:  mocks.NewMockSessionRepository(t),
		store: mocks.NewMockSecretStore(t),
		clock: mocks.NewMockClock(t),
	}
	f.service = NewSessionService(f.auth, f.repo, f.store, f.clock, zap.NewNop())
	return f
}

func TestSessionServiceLoginStoresTokenAndRecord(t *testing.T) {
	f := newSessionFixture(t)

	f.auth.EXPECT().Login(mockAnyContext(), testBaseURL, "jane", "pw").Return(janeSession(), nil).Once()
	f.repo.EXPECT().Load(mockAnyContext()).Return(domain.Session{}, domain.ErrNotLoggedIn).Once()
	f.clock.EXPECT().Now().Return(testNow).Once()
	f.store.EXPECT().Put(mockAnyContext(), testTokenRef, "tok-123").Return(nil).Once()
	f.repo.EXPECT().Save(mockAnyContext(), storedJaneSession()).Return(nil).Once()

	session, err := f.service.Login(context.Background(), testBaseURL, " jane ", "pw")
	require.NoError(t, err)
	assert.Equal(t, storedJaneSession(), session)
}

func TestSessionServiceLoginPropagatesAuthFailure(t *testing.T) {
	f := newSessionFixture(t)

	authErr := &domain.HTTPError{Status: 401, Message: "Invalid credentials"}
	f.auth.EXPECT().Login(mockAnyContext(), testBaseURL, "jane", "bad").Return(domain.Session{}, authErr).Once()

	_, err := f.service.Login(context.Background(), testBaseURL, "jane", "bad")
	require.ErrorIs(t, err, authErr)
	assert.True(t, domain.IsStatus(err, 401))
}

func TestSessionServiceLoginRollsBackTokenWhenSaveFails(t *testing.T) {
	f := newSessionFixture(t)

	saveErr := errors.New("disk full")
	f.auth.EXPECT().Login(mockAnyContext(), testBaseURL, "jane", "pw").Return(janeSession(), nil).Once()
	f.repo.EXPECT().Load(mockAnyContext()).Return(domain.Session{}, domain.ErrNotLoggedIn).Once()
	f.clock.EXPECT().Now().Return(testNow).Once()
	f.store.EXPECT().Put(mockAnyContext(), testTokenRef, "tok-123").Return(nil).Once()
	f.repo.EXPECT().Save(mockAnyContext(), storedJaneSession()).Return(saveErr).Once()
	f.store.EXPECT().Delete(mockAnyContext(), testTokenRef).Return(nil).Once()

	_, err := f.service.Login(context.Background(), testBaseURL, "jane", "pw")
	require.ErrorIs(t, err, saveErr)
	assert.ErrorContains(t, err, "save session")
}

func TestSessionServiceLoginJoinsRollbackFailure(t *testing.T) {
	f := newSessionFixture(t)

	saveErr := errors.New("disk full")
	rollbackErr := errors.New("pass locked")
	f.auth.EXPECT().Login(mockAnyContext(), testBaseURL, "jane", "pw").Return(janeSession(), nil).Once()
	f.repo.EXPECT().Load(mockAnyContext()).Return(domain.Session{}, domain.ErrNotLoggedIn).Once()
	f.clock.EXPECT().Now().Return(testNow).Once()
	f.store.EXPECT().Put(mockAnyContext(), testTokenRef, "tok-123").Return(nil).Once()
	f.repo.EXPECT().Save(mockAnyContext(), storedJaneSession()).Return(saveErr).Once()
	f.store.EXPECT().Delete(mockAnyContext(), testTokenRef).Return(rollbackErr).Once()

	_, err := f.service.Login(context.Background(), testBaseURL, "jane", "pw")
	require.ErrorIs(t, err, saveErr)
	require.ErrorIs(t, err, rollbackErr)
}

func TestSessionServiceLoginDoesNotSaveWhenTokenStoreFails(t *testing.T) {
	f := newSessionFixture(t)

	putErr := errors.New("no secret backend")
	f.auth.EXPECT().Login(mockAnyContext(), testBaseURL, "jane", "pw").Return(janeSession(), nil).Once()
	f.repo.EXPECT().Load(mockAnyContext()).Return(domain.Session{}, domain.ErrNotLoggedIn).Once()
	f.clock.EXPECT().Now().Return(testNow).Once()
	f.store.EXPECT().Put(mockAnyContext(), testTokenRef, "tok-123").Return(putErr).Once()

	_, err := f.service.Login(context.Background(), testBaseURL, "jane", "pw")
	require.ErrorIs(t, err, putErr)
}

func TestSessionServiceLoginRemovesPreviousUsersToken(t *testing.T) {
	f := newSessionFixture(t)

	core, logs := observer.New(zapcore.InfoLevel)
	f.service = NewSessionService(f.auth, f.repo, f.store, f.clock, zap.New(core))

	previous := domain.Session{TokenRef: "healthcare/localhost_8000/bob/token", User: domain.User{Username: "bob", Role: domain.RolePatient}}
	f.auth.EXPECT().Login(mockAnyContext(), testBaseURL, "jane", "pw").Return(janeSession(), nil).Once()
	f.repo.EXPECT().Load(mockAnyContext()).Return(previous, nil).Once()
	f.clock.EXPECT().Now().Return(testNow).Once()
	f.store.EXPECT().Put(mockAnyContext(), testTokenRef, "tok-123").Return(nil).Once()
	f.repo.EXPECT().Save(mockAnyContext(), storedJaneSession()).Return(nil).Once()
	f.store.EXPECT().Delete(mockAnyContext(), "healthcare/localhost_8000/bob/token").Return(nil).Once()

	_, err := f.service.Login(context.Background(), testBaseURL, "jane", "pw")
	require.NoError(t, err)

	entries := logs.FilterMessage("signed in").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "jane", entries[0].ContextMap()["username"])
}

func TestSessionServiceRegisterValidatesBeforeCallingBackend(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.service.Register(context.Background(), testBaseURL, domain.Registration{Username: "jane", Password: "pw", Role: "nurse"})
	require.ErrorIs(t, err, domain.ErrUnsupportedRole)
}

func TestSessionServiceRegisterPersistsSession(t *testing.T) {
	f := newSessionFixture(t)

	registration := domain.Registration{Username: "jane", Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Password: "pw", Role: domain.RolePatient}
	f.auth.EXPECT().Register(mockAnyContext(), testBaseURL, registration).Return(janeSession(), nil).Once()
	f.repo.EXPECT().Load(mockAnyContext()).Return(domain.Session{}, domain.ErrNotLoggedIn).Once()
	f.clock.EXPECT().Now().Return(testNow).Once()
	f.store.EXPECT().Put(mockAnyContext(), testTokenRef, "tok-123").Return(nil).Once()
	f.repo.EXPECT().Save(mockAnyContext(), storedJaneSession()).Return(nil).Once()

	session, err := f.service.Register(context.Background(), testBaseURL, registration)
	require.NoError(t, err)
	assert.Equal(t, testTokenRef, session.TokenRef)
}

func TestSessionServiceCurrentLoadsToken(t *testing.T) {
	f := newSessionFixture(t)

	stored := storedJaneSession()
	stored.Token = ""
	f.repo.EXPECT().Load(mockAnyContext()).Return(stored, nil).Once()
	f.store.EXPECT().Get(mockAnyContext(), testTokenRef).Return("tok-123\n", nil).Once()

	session, err := f.service.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storedJaneSession(), session)
}

func TestSessionServiceCurrentWithoutSession(t *testing.T) {
	f := newSessionFixture(t)

	f.repo.EXPECT().Load(mockAnyContext()).Return(domain.Session{}, domain.ErrNotLoggedIn).Once()

	_, err := f.service.Current(context.Background())
	require.ErrorIs(t, err, domain.ErrNotLoggedIn)
}

func TestSessionServiceCurrentWithMissingToken(t *testing.T) {
	f := newSessionFixture(t)

	f.repo.EXPECT().Load(mockAnyContext()).Return(storedJaneSession(), nil).Once()
	f.store.EXPECT().Get(mockAnyContext(), testTokenRef).Return("", domain.ErrSecretNotFound).Once()

	_, err := f.service.Current(context.Background())
	require.ErrorIs(t, err, domain.ErrNotLoggedIn)
	assert.ErrorContains(t, err, testTokenRef)
}

func TestSessionServiceLogoutDeletesTokenAndRecord(t *testing.T) {
	f := newSessionFixture(t)

	f.repo.EXPECT().Load(mockAnyContext()).Return(storedJaneSession(), nil).Once()
	f.store.EXPECT().Delete(mockAnyContext(), testTokenRef).Return(nil).Once()
	f.repo.EXPECT().Delete(mockAnyContext()).Return(nil).Once()

	session, err := f.service.Logout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jane", session.User.Username)
}

func TestSessionServiceLogoutReportsEveryFailure(t *testing.T) {
	f := newSessionFixture(t)

	tokenErr := errors.New("pass locked")
	recordErr := errors.New("read-only filesystem")
	f.repo.EXPECT().Load(mockAnyContext()).Return(storedJaneSession(), nil).Once()
	f.store.EXPECT().Delete(mockAnyContext(), testTokenRef).Return(tokenErr).Once()
	f.repo.EXPECT().Delete(mockAnyContext()).Return(recordErr).Once()

	_, err := f.service.Logout(context.Background())
	require.ErrorIs(t, err, tokenErr)
	require.ErrorIs(t, err, recordErr)
}
