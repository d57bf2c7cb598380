package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
)

var (
	jsonFencePattern  = regexp.MustCompile("```json\\s*")
	plainFencePattern = regexp.MustCompile("```\\s*")
)

// QuestionClassifier asks the language model what a message is about
type QuestionClassifier struct {
	llm    repositories.LargeLanguageModel
	logger *zap.Logger
}

// NewQuestionClassifier creates a new classifier backed by llm
func NewQuestionClassifier(llm repositories.LargeLanguageModel, logger *zap.Logger) *QuestionClassifier {
	return &QuestionClassifier{
		llm:    llm,
		logger: logger,
	}
}

// Classify turns a user message into a normalized QueryPlan. It never fails:
// model or decoding errors yield the fallback navigation plan.
func (c *QuestionClassifier) Classify(ctx context.Context, message string) entities.QueryPlan {
	detected := DetectLanguage(message)

	prompt := buildClassificationPrompt(message)
	c.logger.Debug("Classification prompt built", zap.Int("length", len(prompt)))

	reply, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		c.logger.Error("Classification failed", zap.Error(err))
		return c.fallback(message, detected)
	}

	plan, err := parsePlan(reply)
	if err != nil {
		c.logger.Error("Failed to parse classification", zap.Error(err), zap.String("reply", truncate(reply, 200)))
		return c.fallback(message, detected)
	}

	plan.Normalize(message, detected)
	return plan
}

func (c *QuestionClassifier) fallback(message string, detected entities.Language) entities.QueryPlan {
	plan := entities.FallbackPlan(message, detected)
	plan.Normalize(message, detected)
	c.logger.Info("Using fallback plan", zap.String("topic", string(plan.Topic)))
	return plan
}

// cleanPlanJSON strips markdown fences and anything around the outermost braces
func cleanPlanJSON(reply string) string {
	if strings.Contains(reply, "```") {
		reply = jsonFencePattern.ReplaceAllString(reply, "")
		reply = plainFencePattern.ReplaceAllString(reply, "")
		reply = strings.TrimSpace(reply)
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		reply = reply[start : end+1]
	}
	return reply
}

func parsePlan(reply string) (entities.QueryPlan, error) {
	var plan entities.QueryPlan
	if err := json.Unmarshal([]byte(cleanPlanJSON(reply)), &plan); err != nil {
		return entities.QueryPlan{}, fmt.Errorf("invalid plan JSON: %w", err)
	}
	return plan, nil
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
