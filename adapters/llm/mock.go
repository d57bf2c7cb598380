package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/repositories"
)

// MockLLM is an offline stand-in used when no provider key is configured.
// Classification prompts get a navigation plan, everything else a canned reply.
type MockLLM struct {
	logger *zap.Logger
}

// NewMockLLM creates a new mock LLM
func NewMockLLM(logger *zap.Logger) repositories.LargeLanguageModel {
	return &MockLLM{logger: logger}
}

// Generate implements repositories.LargeLanguageModel
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.logger.Info("Mock LLM generating reply", zap.Int("promptLength", len(prompt)))

	if strings.Contains(prompt, "JSON Response:") {
		return `{"language":"", "intent":"navigation", "topic":"other", "searchQueries":[]}`, nil
	}

	return "GeoStat Assistant is running in offline mode. Detailed data about Georgia is available at https://www.geostat.ge", nil
}
