package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/repositories"
)

const cleanupTimeout = 5 * time.Minute

// SessionCleanupService periodically marks sessions past their expiry as expired
type SessionCleanupService struct {
	sessionRepo repositories.SessionRepository
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

// NewSessionCleanupService creates a new session cleanup service
func NewSessionCleanupService(sessionRepo repositories.SessionRepository, interval time.Duration, logger *zap.Logger) *SessionCleanupService {
	return &SessionCleanupService{
		sessionRepo: sessionRepo,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *SessionCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Session cleanup service started", zap.Duration("interval", s.interval))
}

// Stop stops the cleanup loop and waits for a running pass to finish
func (s *SessionCleanupService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		<-s.done
		s.logger.Info("Session cleanup service stopped")
	})
}

func (s *SessionCleanupService) cleanupLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup performs one pass and returns how many sessions expired
func (s *SessionCleanupService) runCleanup() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	expired, err := s.sessionRepo.ExpireSessions(ctx)
	if err != nil {
		s.logger.Error("Failed to expire sessions", zap.Error(err))
		return 0
	}

	if expired > 0 {
		s.logger.Info("Expired sessions", zap.Int64("count", expired))
	}
	return expired
}
