package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/geostat-assistant/server/adapters/llm"
	"github.com/geostat-assistant/server/adapters/memory"
	"github.com/geostat-assistant/server/adapters/mongo"
	"github.com/geostat-assistant/server/adapters/search"
	"github.com/geostat-assistant/server/adapters/stt"
	"github.com/geostat-assistant/server/adapters/tts"
	"github.com/geostat-assistant/server/domain/repositories"
	"github.com/geostat-assistant/server/internal/config"
)

// shutdownTimeout bounds closing external clients after the server stopped
const shutdownTimeout = 5 * time.Second

// providers holds the adapters selected by configuration
type providers struct {
	llm          repositories.LargeLanguageModel
	search       repositories.SiteSearch
	speechToText repositories.SpeechToText
	textToSpeech repositories.TextToSpeech
	sessions     repositories.SessionRepository

	closers []func(context.Context) error
}

func newProviders(ctx context.Context, cfg config.Config, logger *zap.Logger) (*providers, error) {
	p := &providers{}

	steps := []func(context.Context, config.Config, *zap.Logger) error{
		p.initLLM,
		p.initSearch,
		p.initSpeech,
		p.initTTS,
		p.initStorage,
	}
	for _, step := range steps {
		if err := step(ctx, cfg, logger); err != nil {
			p.close(logger)
			return nil, err
		}
	}
	return p, nil
}

func (p *providers) initLLM(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		client, err := llm.NewAnthropicLLM(llm.AnthropicConfig{
			APIKey:      cfg.LLM.AnthropicAPIKey,
			Model:       cfg.LLM.AnthropicModel,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize anthropic: %w", err)
		}
		p.llm = client
	case config.ProviderGemini:
		client, err := llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey:          cfg.LLM.GeminiAPIKey,
			Model:           cfg.LLM.GeminiModel,
			MaxOutputTokens: cfg.LLM.MaxTokens,
			Temperature:     float32(cfg.LLM.Temperature),
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize gemini: %w", err)
		}
		p.llm = client
	default:
		logger.Warn("Using mock LLM")
		p.llm = llm.NewMockLLM(logger)
	}
	return nil
}

func (p *providers) initSearch(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Search.Provider == config.ProviderMock {
		logger.Warn("Using mock site search")
		p.search = search.NewMockSiteSearch(logger)
		return nil
	}

	client, err := search.NewGooglePSE(ctx, search.GooglePSEConfig{
		APIKey:   cfg.Search.APIKey,
		EngineID: cfg.Search.EngineID,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize site search: %w", err)
	}
	p.search = client
	return nil
}

func (p *providers) initSpeech(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Speech.Provider == config.ProviderMock {
		logger.Warn("Using mock speech recognition")
		p.speechToText = stt.NewMockSpeechToText(logger)
		return nil
	}

	var opts []option.ClientOption
	if cfg.Speech.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Speech.CredentialsFile))
	}

	client, err := stt.NewGoogleSpeechToText(ctx, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize speech recognition: %w", err)
	}
	p.speechToText = client
	p.closers = append(p.closers, func(context.Context) error { return client.Close() })
	return nil
}

func (p *providers) initTTS(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.TTS.Provider == config.ProviderMock {
		logger.Warn("Using mock speech synthesis")
		p.textToSpeech = tts.NewMockTextToSpeech(logger)
		return nil
	}

	client, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
		APIKey:     cfg.TTS.APIKey,
		APIBaseURL: cfg.TTS.BaseURL,
		ModelID:    cfg.TTS.ModelID,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize speech synthesis: %w", err)
	}
	p.textToSpeech = client
	return nil
}

func (p *providers) initStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Storage.Driver != config.StorageMongo {
		p.sessions = memory.NewSessionRepository()
		return nil
	}

	client, err := mongo.NewClient(ctx, mongo.ClientConfig{
		URI:      cfg.Storage.MongoURI,
		Database: cfg.Storage.MongoDatabase,
	}, logger)
	if err != nil {
		return err
	}
	p.closers = append(p.closers, client.Close)

	repo := mongo.NewSessionRepository(client.Database, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	p.sessions = repo
	return nil
}

func (p *providers) close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](ctx); err != nil {
			logger.Warn("Failed to close provider", zap.Error(err))
		}
	}
}
