package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/geostat-assistant/server/domain/repositories"
	"github.com/geostat-assistant/server/internal/retry"
)

const (
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultTemperature    = 0.3
	defaultMaxTokens      = 1024
	defaultTimeoutSeconds = 30
)

// GeminiConfig holds configuration for the Gemini adapter
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	TimeoutSeconds  int
	// BaseURL overrides the Gemini API endpoint, e.g. for a proxy.
	BaseURL string
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
	timeout         time.Duration
	retry           retry.Config
}

var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens must be positive, got %d", config.MaxOutputTokens)
	}

	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: config.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxTokens
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	return &GeminiLLM{
		client:          client,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		timeout:         time.Duration(timeoutSeconds) * time.Second,
		retry:           retry.DefaultConfig(),
	}, nil
}

// Generate sends a single prompt and returns the joined text parts of the first candidate
func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: int32(g.maxOutputTokens),
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var response *genai.GenerateContentResponse
	attempt := 0
	err := retry.Do(ctx, g.retry, func() error {
		attempt++
		var err error
		response, err = g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
		if err == nil {
			return nil
		}
		err = classifyGeminiError(err)
		var permanent *retry.PermanentError
		if attempt < g.retry.MaxAttempts && !errors.As(err, &permanent) {
			g.logger.Warn("Failed to generate content, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	text := extractCandidateText(response)
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}

	return text, nil
}

// classifyGeminiError marks API errors that another attempt cannot fix as
// permanent. Transport errors stay retryable.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && !retry.IsRetryableHTTPStatus(apiErr.Code) {
		return retry.Permanent(err)
	}
	return err
}

func extractCandidateText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
