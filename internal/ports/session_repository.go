package ports

import (
	"context"

	"github.com/bnema/healthcare-assistant-cli/internal/domain"
)

// SessionRepository persists the signed-in session without its token.
// Load returns domain.ErrNotLoggedIn when no session has been saved.
type SessionRepository interface {
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context) error
}
