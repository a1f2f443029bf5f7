package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
	"github.com/bnema/healthcare-assistant-cli/internal/ports"
)

// SessionService owns the signed-in session: the record lives in the session
// repository and the token in the secret store.
type SessionService struct {
	auth   ports.AuthAPI
	repo   ports.SessionRepository
	store  ports.SecretStore
	clock  ports.Clock
	logger *zap.Logger
}

func NewSessionService(auth ports.AuthAPI, repo ports.SessionRepository, store ports.SecretStore, clock ports.Clock, logger *zap.Logger) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionService{
		auth:   auth,
		repo:   repo,
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

func (s *SessionService) Login(ctx context.Context, baseURL string, username string, password string) (domain.Session, error) {
	session, err := s.auth.Login(ctx, baseURL, strings.TrimSpace(username), password)
	if err != nil {
		return domain.Session{}, err
	}

	return s.persist(ctx, session)
}

func (s *SessionService) Register(ctx context.Context, baseURL string, registration domain.Registration) (domain.Session, error) {
	if err := registration.Validate(); err != nil {
		return domain.Session{}, err
	}

	session, err := s.auth.Register(ctx, baseURL, registration)
	if err != nil {
		return domain.Session{}, err
	}

	return s.persist(ctx, session)
}

// Current returns the stored session with its token.
func (s *SessionService) Current(ctx context.Context) (domain.Session, error) {
	session, err := s.repo.Load(ctx)
	if err != nil {
		return domain.Session{}, err
	}

	token, err := s.store.Get(ctx, session.TokenRef)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return domain.Session{}, fmt.Errorf("%w: token %s is missing from the secret store", domain.ErrNotLoggedIn, session.TokenRef)
		}
		return domain.Session{}, fmt.Errorf("read session token: %w", err)
	}

	session.Token = strings.TrimSpace(token)
	if !session.Authenticated() {
		return domain.Session{}, fmt.Errorf("%w: stored token is empty", domain.ErrNotLoggedIn)
	}
	return session, nil
}

// Logout removes the token and the session record. It returns the session that was signed out.
func (s *SessionService) Logout(ctx context.Context) (domain.Session, error) {
	session, err := s.repo.Load(ctx)
	if err != nil {
		return domain.Session{}, err
	}

	var errs []error
	if session.TokenRef != "" {
		if err := s.store.Delete(ctx, session.TokenRef); err != nil {
			errs = append(errs, fmt.Errorf("delete session token: %w", err))
		}
	}
	if err := s.repo.Delete(ctx); err != nil {
		errs = append(errs, fmt.Errorf("delete session record: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return session, err
	}

	s.logger.Info("signed out", zap.String("username", session.User.Username))
	return session, nil
}

func (s *SessionService) persist(ctx context.Context, session domain.Session) (domain.Session, error) {
	if !session.Authenticated() {
		return domain.Session{}, errors.New("authentication returned no token")
	}

	previous, err := s.repo.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotLoggedIn) {
		s.logger.Warn("ignoring unreadable previous session", zap.Error(err))
	}

	session.TokenRef = domain.TokenRefFor(session.BaseURL, session.User.Username)
	session.CreatedAt = s.clock.Now()

	if err := s.store.Put(ctx, session.TokenRef, session.Token); err != nil {
		return domain.Session{}, fmt.Errorf("store session token: %w", err)
	}

	if err := s.repo.Save(ctx, session); err != nil {
		if rollbackErr := s.store.Delete(ctx, session.TokenRef); rollbackErr != nil {
			return domain.Session{}, fmt.Errorf("save session and rollback stored token: %w", errors.Join(err, rollbackErr))
		}
		return domain.Session{}, fmt.Errorf("save session: %w", err)
	}

	if previous.TokenRef != "" && previous.TokenRef != session.TokenRef {
		if err := s.store.Delete(ctx, previous.TokenRef); err != nil {
			s.logger.Warn("previous session token left behind", zap.String("token_ref", previous.TokenRef), zap.Error(err))
		}
	}

	s.logger.Info("signed in",
		zap.String("username", session.User.Username),
		zap.String("role", string(session.User.Role)),
		zap.String("base_url", session.BaseURL),
	)
	return session, nil
}
