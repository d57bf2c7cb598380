package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/repositories"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-20250514"
	defaultAnthropicMaxTokens = 1024
	defaultAnthropicTimeout   = 60 * time.Second
	defaultAnthropicRetries   = 2
)

// AnthropicConfig holds configuration for the Claude adapter
type AnthropicConfig struct {
	APIKey      string        // Required
	BaseURL     string        // Optional: API base URL override
	Model       string        // Optional: defaults to claude-sonnet-4
	MaxTokens   int           // Optional: reply token budget
	Temperature float64       // Optional: 0 keeps the provider default
	MaxRetries  int           // Optional: -1 disables retries
	Timeout     time.Duration // Optional: per request timeout
}

// AnthropicLLM implements LargeLanguageModel on top of the Claude Messages API
type AnthropicLLM struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

var _ repositories.LargeLanguageModel = (*AnthropicLLM)(nil)

// ValidateAnthropicConfig validates the AnthropicConfig
func ValidateAnthropicConfig(config AnthropicConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("anthropic API key is required")
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens must be positive, got %d", config.MaxTokens)
	}
	return nil
}

// NewAnthropicLLM creates a Claude backed LLM
func NewAnthropicLLM(config AnthropicConfig, logger *zap.Logger) (*AnthropicLLM, error) {
	if err := ValidateAnthropicConfig(config); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = defaultAnthropicModel
		logger.Info("Using default Anthropic model", zap.String("model", model))
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultAnthropicTimeout
	}

	retries := config.MaxRetries
	switch {
	case retries == 0:
		retries = defaultAnthropicRetries
	case retries < 0:
		retries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(retries),
		option.WithRequestTimeout(timeout),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicLLM{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: config.Temperature,
		logger:      logger,
	}, nil
}

// Generate sends prompt as a single user turn and joins the text blocks of the reply
func (a *AnthropicLLM) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if a.temperature > 0 {
		params.Temperature = anthropic.Float(a.temperature)
	}

	started := time.Now()
	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from anthropic")
	}

	a.logger.Debug("Anthropic reply received",
		zap.String("model", a.model),
		zap.Int("promptLength", len(prompt)),
		zap.Int("replyLength", sb.Len()),
		zap.Duration("latency", time.Since(started)))

	return sb.String(), nil
}
