package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the status of a session
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusExpired    SessionStatus = "expired"
	SessionStatusTerminated SessionStatus = "terminated"
)

// SessionTTL is how long a session stays alive after its last activity
const SessionTTL = 24 * time.Hour

// ExpiredSessionRetention is how long a session is kept after it expires
// before storage drops it.
const ExpiredSessionRetention = 7 * 24 * time.Hour

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Channel tells where a message came from
type Channel string

const (
	ChannelText  Channel = "text"
	ChannelVoice Channel = "voice"
)

// SessionMessage represents a message within a session
type SessionMessage struct {
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
	Role      MessageRole `json:"role" bson:"role"`
	Content   string      `json:"content" bson:"content"`
	Channel   Channel     `json:"channel" bson:"channel"`
	Intent    Intent      `json:"intent,omitempty" bson:"intent,omitempty"`
	Topic     Topic       `json:"topic,omitempty" bson:"topic,omitempty"`
}

// Session groups the exchanges of one anonymous visitor
type Session struct {
	ID           string           `json:"id" bson:"_id"`
	CreatedAt    time.Time        `json:"created_at" bson:"created_at"`
	LastActiveAt time.Time        `json:"last_active_at" bson:"last_active_at"`
	ExpiresAt    time.Time        `json:"expires_at" bson:"expires_at"`
	Status       SessionStatus    `json:"status" bson:"status"`
	Language     Language         `json:"language" bson:"language"`
	Messages     []SessionMessage `json:"messages" bson:"messages"`
}

// NewSession creates a new active session
func NewSession(language Language) *Session {
	now := time.Now()
	if language == "" {
		language = LanguageGeorgian
	}
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(SessionTTL),
		Status:       SessionStatusActive,
		Language:     language,
		Messages:     make([]SessionMessage, 0),
	}
}

// AddMessage appends a message and refreshes the session
func (s *Session) AddMessage(message SessionMessage) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, message)
	s.UpdateLastActive()
}

// UpdateLastActive updates the last active timestamp and extends expiration
func (s *Session) UpdateLastActive() {
	s.LastActiveAt = time.Now()
	s.ExpiresAt = s.LastActiveAt.Add(SessionTTL)
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt) || s.Status != SessionStatusActive
}

// Terminate marks the session as terminated
func (s *Session) Terminate() {
	s.Status = SessionStatusTerminated
	s.UpdateLastActive()
}

// Expire marks the session as expired
func (s *Session) Expire() {
	s.Status = SessionStatusExpired
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}

	if s.Status != SessionStatusActive && s.Status != SessionStatusExpired && s.Status != SessionStatusTerminated {
		return errors.New("invalid session status")
	}

	return nil
}
