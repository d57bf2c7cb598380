package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
)

const (
	knowledgeFallbackGeorgian = "ვერ მოხერხდა პასუხის გენერირება. გთხოვთ, სცადოთ თავიდან ან ეწვიოთ www.geostat.ge-ს"
	knowledgeFallbackEnglish  = "Unable to generate response. Please try again or visit www.geostat.ge"
	smallTalkFallbackGeorgian = "გამარჯობა! როგორ შემიძლია დაგეხმაროთ სტატისტიკის მოძებნაში?"
	smallTalkFallbackEnglish  = "Hello! How can I help you find statistics?"
)

// ConversationService answers questions that need no site search
type ConversationService struct {
	llm    repositories.LargeLanguageModel
	logger *zap.Logger
}

// NewConversationService creates a new conversation service
func NewConversationService(llm repositories.LargeLanguageModel, logger *zap.Logger) *ConversationService {
	return &ConversationService{
		llm:    llm,
		logger: logger,
	}
}

// HandleGeneralKnowledge explains a statistics concept without quoting figures
func (s *ConversationService) HandleGeneralKnowledge(ctx context.Context, message string, language entities.Language) string {
	s.logger.Info("Generating knowledge response", zap.String("language", string(language)))

	response, err := s.llm.Generate(ctx, buildKnowledgePrompt(message, language))
	if err != nil {
		s.logger.Error("Knowledge response failed", zap.Error(err))
		if language.IsGeorgian() {
			return knowledgeFallbackGeorgian
		}
		return knowledgeFallbackEnglish
	}

	return strings.TrimSpace(response)
}

// HandleSmallTalk replies briefly to greetings, thanks and off-topic chatter
func (s *ConversationService) HandleSmallTalk(ctx context.Context, message string, language entities.Language) string {
	s.logger.Info("Generating small talk response", zap.String("language", string(language)))

	response, err := s.llm.Generate(ctx, buildSmallTalkPrompt(message, language))
	if err != nil {
		s.logger.Error("Small talk failed", zap.Error(err))
		if language.IsGeorgian() {
			return smallTalkFallbackGeorgian
		}
		return smallTalkFallbackEnglish
	}

	return strings.TrimSpace(response)
}
