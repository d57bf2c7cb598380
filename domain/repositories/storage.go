package repositories

import (
	"context"
	"errors"

	"github.com/geostat-assistant/server/domain/entities"
)

// ErrSessionNotFound is returned when a session id is unknown
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository defines data access methods for chat sessions
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetByID(ctx context.Context, id string) (*entities.Session, error)
	AddMessages(ctx context.Context, id string, messages ...entities.SessionMessage) error
	// ExpireSessions marks sessions past their expiry and returns how many changed
	ExpireSessions(ctx context.Context) (int64, error)
}
