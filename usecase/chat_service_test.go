package usecase

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/geostat-assistant/server/adapters/memory"
	"github.com/geostat-assistant/server/domain/entities"
)

func TestChatService_Reply(t *testing.T) {
	search := &fakeSearch{results: map[string][]entities.SearchResult{
		"site:geostat.ge gender statistics": {entities.NewSearchResult("Gender", "https://www.geostat.ge/en/modules/categories/39/gender", "Gender statistics")},
	}}

	tests := []struct {
		name    string
		replies map[string]string
		message string
		want    string
	}{
		{
			name:    "blank message",
			message: "   ",
			want:    emptyMessageReply,
		},
		{
			name:    "greeting skips the model",
			message: " Hello! ",
			want:    greetingEnglish,
		},
		{
			name: "small talk",
			replies: map[string]string{
				"JSON Response:": `{"language":"en","intent":"small_talk","topic":"other","searchQueries":[]}`,
				smallTalkMarker:  "You're welcome!",
			},
			message: "thanks for help",
			want:    "You're welcome!",
		},
		{
			name: "general knowledge",
			replies: map[string]string{
				"JSON Response:": `{"language":"en","intent":"general_knowledge","topic":"economy","searchQueries":[]}`,
				knowledgeMarker:  "GDP is the value of all goods and services produced.",
			},
			message: "what is GDP?",
			want:    "GDP is the value of all goods and services produced.",
		},
		{
			name: "navigation",
			replies: map[string]string{
				"JSON Response:": `{"language":"en","intent":"navigation","topic":"gender","searchQueries":["gender statistics"]}`,
				analysisMarker:   "📄 **Relevant Page:**\nhttps://www.geostat.ge/en/modules/categories/39/gender\n\nGender statistics.",
			},
			message: "gender statistics for Georgia",
			want: "📊 **Recommended portal**: GENDER\n\nhttps://gender.geostat.ge/gender/index.php\n\n" +
				"Interactive visualisations and data.\n\n" +
				"📄 **Relevant Page:**\nhttps://www.geostat.ge/en/modules/categories/39/gender\n\nGender statistics.",
		},
		{
			name: "unknown intent is navigation",
			replies: map[string]string{
				"JSON Response:": `{"language":"en","intent":"chitchat","topic":"nothing","searchQueries":["xyz"]}`,
			},
			message: "xyz",
			want:    noResultsMessage(entities.LanguageEnglish),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewChatService(&fakeLLM{replies: tt.replies}, search, nil, zaptest.NewLogger(t))

			got, err := service.Reply(context.Background(), "", tt.message)
			if err != nil {
				t.Fatalf("Reply failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Reply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChatService_RecordsExchange(t *testing.T) {
	ctx := context.Background()
	sessions := memory.NewSessionRepository()
	session := entities.NewSession(entities.LanguageGeorgian)
	if err := sessions.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	service := NewChatService(&fakeLLM{}, &fakeSearch{}, sessions, zaptest.NewLogger(t))

	if _, err := service.Reply(ctx, session.ID, "გამარჯობა"); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if _, err := service.ReplyVoice(ctx, session.ID, "hi"); err != nil {
		t.Fatalf("ReplyVoice failed: %v", err)
	}

	stored, err := sessions.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(stored.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(stored.Messages))
	}

	answer := stored.Messages[1]
	if answer.Role != entities.MessageRoleAssistant || answer.Content != greetingGeorgian || answer.Intent != entities.IntentSmallTalk {
		t.Errorf("unexpected assistant message %+v", answer)
	}
	if stored.Messages[2].Channel != entities.ChannelVoice {
		t.Errorf("expected voice channel, got %s", stored.Messages[2].Channel)
	}

	// unknown sessions do not fail the reply
	if _, err := service.Reply(ctx, "missing", "hello"); err != nil {
		t.Errorf("expected storage errors to be swallowed, got %v", err)
	}
}

func TestChatService_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := NewChatService(&fakeLLM{}, &fakeSearch{}, nil, zaptest.NewLogger(t))
	if _, err := service.Reply(ctx, "", "where is GDP data"); err == nil {
		t.Error("expected canceled context to fail the reply")
	}
}
