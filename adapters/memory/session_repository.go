package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
)

// SessionRepository keeps sessions in process memory. It is the default
// store when no MongoDB URI is configured.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.Session
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates an empty in-memory session repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*entities.Session),
	}
}

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return errors.New("session already exists")
	}

	r.sessions[session.ID] = cloneSession(session)
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, repositories.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// AddMessages implements repositories.SessionRepository. Expired and
// terminated sessions are reported as not found.
func (r *SessionRepository) AddMessages(ctx context.Context, id string, messages ...entities.SessionMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists || session.IsExpired() {
		return repositories.ErrSessionNotFound
	}

	for _, message := range messages {
		session.AddMessage(message)
	}
	return nil
}

// ExpireSessions implements repositories.SessionRepository. Sessions that
// expired more than ExpiredSessionRetention ago are removed.
func (r *SessionRepository) ExpireSessions(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	purgeBefore := now.Add(-entities.ExpiredSessionRetention)

	var expired int64
	for id, session := range r.sessions {
		if session.Status == entities.SessionStatusActive && session.ExpiresAt.Before(now) {
			session.Expire()
			expired++
		}
		if session.ExpiresAt.Before(purgeBefore) {
			delete(r.sessions, id)
		}
	}
	return expired, nil
}

// Len returns the number of sessions held
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func cloneSession(session *entities.Session) *entities.Session {
	clone := *session
	clone.Messages = append([]entities.SessionMessage(nil), session.Messages...)
	return &clone
}
