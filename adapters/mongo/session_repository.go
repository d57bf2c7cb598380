package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
)

const sessionsCollection = "sessions"

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// SessionRepository stores sessions, with their message history embedded,
// in a single MongoDB collection.
type SessionRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewSessionRepository creates a new MongoDB session repository
func NewSessionRepository(db *mongo.Database, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		collection: db.Collection(sessionsCollection),
		logger:     logger,
	}
}

// EnsureIndexes creates the lookup and TTL indexes used by the repository
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	statusExpiresIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "expires_at", Value: 1},
		},
	}

	ttlIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(entities.ExpiredSessionRetention.Seconds())),
	}

	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		statusExpiresIndex,
		ttlIndex,
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	r.logger.Info("Session indexes created successfully")
	return nil
}

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		r.logger.Error("Failed to create session", zap.Error(err))
		return fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.Debug("Session created", zap.String("session_id", session.ID))
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	var session entities.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	return &session, nil
}

// AddMessages implements repositories.SessionRepository. Expired and
// terminated sessions are reported as not found.
func (r *SessionRepository) AddMessages(ctx context.Context, id string, messages ...entities.SessionMessage) error {
	if len(messages) == 0 {
		return nil
	}

	now := time.Now()
	for i := range messages {
		if messages[i].Timestamp.IsZero() {
			messages[i].Timestamp = now
		}
	}

	update := bson.M{
		"$push": bson.M{"messages": bson.M{"$each": messages}},
		"$set": bson.M{
			"last_active_at": now,
			"expires_at":     now.Add(entities.SessionTTL),
		},
	}

	filter := bson.M{
		"_id":        id,
		"status":     entities.SessionStatusActive,
		"expires_at": bson.M{"$gt": now},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to add messages to session",
			zap.Error(err),
			zap.String("session_id", id))
		return fmt.Errorf("failed to add messages: %w", err)
	}

	if result.MatchedCount == 0 {
		return repositories.ErrSessionNotFound
	}

	r.logger.Debug("Messages added to session",
		zap.String("session_id", id),
		zap.Int("count", len(messages)))

	return nil
}

// ExpireSessions implements repositories.SessionRepository
func (r *SessionRepository) ExpireSessions(ctx context.Context) (int64, error) {
	filter := bson.M{
		"status":     entities.SessionStatusActive,
		"expires_at": bson.M{"$lt": time.Now()},
	}

	update := bson.M{
		"$set": bson.M{
			"status": entities.SessionStatusExpired,
		},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to expire sessions", zap.Error(err))
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}

	return result.ModifiedCount, nil
}
