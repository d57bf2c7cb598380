package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
)

const emptyMessageReply = "გთხოვთ, შეიყვანოთ შეკითხვა."

// ChatService routes a user message to the greeting shortcut, the
// conversation service or the navigation service.
type ChatService struct {
	classifier   *QuestionClassifier
	navigation   *NavigationService
	conversation *ConversationService
	sessions     repositories.SessionRepository
	logger       *zap.Logger
}

// NewChatService wires the chat pipeline. sessions may be nil, in which case
// exchanges are not recorded.
func NewChatService(
	llm repositories.LargeLanguageModel,
	search repositories.SiteSearch,
	sessions repositories.SessionRepository,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		classifier:   NewQuestionClassifier(llm, logger),
		navigation:   NewNavigationService(llm, search, logger),
		conversation: NewConversationService(llm, logger),
		sessions:     sessions,
		logger:       logger,
	}
}

// Reply answers message. When sessionID names a stored session the exchange
// is appended to it; storage failures are logged and do not affect the reply.
func (s *ChatService) Reply(ctx context.Context, sessionID, message string) (string, error) {
	return s.reply(ctx, sessionID, message, entities.ChannelText)
}

// ReplyVoice is Reply for transcribed speech
func (s *ChatService) ReplyVoice(ctx context.Context, sessionID, message string) (string, error) {
	return s.reply(ctx, sessionID, message, entities.ChannelVoice)
}

func (s *ChatService) reply(ctx context.Context, sessionID, message string, channel entities.Channel) (string, error) {
	if strings.TrimSpace(message) == "" {
		return emptyMessageReply, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	message = strings.TrimSpace(message)
	s.logger.Info("User message received", zap.Int("length", len(message)), zap.String("channel", string(channel)))

	if IsSimpleGreeting(message) {
		response := GreetingResponse(message)
		s.record(ctx, sessionID, channel, message, response, entities.IntentSmallTalk, entities.TopicOther)
		return response, nil
	}

	plan := s.classifier.Classify(ctx, message)
	s.logger.Info("Classification",
		zap.String("intent", string(plan.Intent)),
		zap.String("topic", string(plan.Topic)),
		zap.Strings("queries", plan.SearchQueries))

	var response string
	switch plan.Intent {
	case entities.IntentSmallTalk:
		response = s.conversation.HandleSmallTalk(ctx, message, plan.Language)
	case entities.IntentGeneralKnowledge:
		response = s.conversation.HandleGeneralKnowledge(ctx, message, plan.Language)
	default:
		response = s.navigation.HandleNavigation(ctx, message, plan)
	}

	s.record(ctx, sessionID, channel, message, response, plan.Intent, plan.Topic)
	return response, nil
}

func (s *ChatService) record(ctx context.Context, sessionID string, channel entities.Channel, question, answer string, intent entities.Intent, topic entities.Topic) {
	if s.sessions == nil || sessionID == "" {
		return
	}

	err := s.sessions.AddMessages(ctx, sessionID,
		entities.SessionMessage{Role: entities.MessageRoleUser, Content: question, Channel: channel},
		entities.SessionMessage{Role: entities.MessageRoleAssistant, Content: answer, Channel: channel, Intent: intent, Topic: topic},
	)
	if err != nil {
		s.logger.Warn("Failed to record exchange",
			zap.Error(err),
			zap.String("session_id", sessionID))
	}
}
