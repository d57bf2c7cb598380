package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	DefaultURI      = "mongodb://localhost:27017"
	DefaultDatabase = "geostat_assistant"
	defaultAppName  = "geostat-assistant"
	defaultPoolSize = 10
)

// ClientConfig holds the MongoDB connection settings. Only URI and Database
// are usually set; zero values take defaults.
type ClientConfig struct {
	URI         string
	Database    string
	AppName     string
	MaxPoolSize uint64
}

// Client wraps the MongoDB client and database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient creates a new MongoDB client connection and verifies it with a ping
func NewClient(ctx context.Context, config ClientConfig, logger *zap.Logger) (*Client, error) {
	if config.URI == "" {
		config.URI = DefaultURI
	}
	if config.Database == "" {
		config.Database = DefaultDatabase
	}
	if config.AppName == "" {
		config.AppName = defaultAppName
	}
	if config.MaxPoolSize == 0 {
		config.MaxPoolSize = defaultPoolSize
	}

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetAppName(config.AppName).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Successfully connected to MongoDB",
		zap.String("database", config.Database))

	return &Client{
		Client:   client,
		Database: client.Database(config.Database),
		logger:   logger,
	}, nil
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
