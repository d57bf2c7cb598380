package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/geostat-assistant/server/internal/retry"
)

func TestValidateGeminiConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GeminiConfig
		wantErr bool
	}{
		{name: "missing key", config: GeminiConfig{}, wantErr: true},
		{name: "temperature too high", config: GeminiConfig{APIKey: "k", Temperature: 2}, wantErr: true},
		{name: "negative tokens", config: GeminiConfig{APIKey: "k", MaxOutputTokens: -1}, wantErr: true},
		{name: "negative timeout", config: GeminiConfig{APIKey: "k", TimeoutSeconds: -1}, wantErr: true},
		{name: "valid", config: GeminiConfig{APIKey: "k", Temperature: 0.4}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeminiConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeminiConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewGeminiLLM_Defaults(t *testing.T) {
	g, err := NewGeminiLLM(context.Background(), GeminiConfig{APIKey: "test-key"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create GeminiLLM: %v", err)
	}
	if g.model != defaultGeminiModel {
		t.Errorf("Expected model %s, got %s", defaultGeminiModel, g.model)
	}
	if g.maxOutputTokens != defaultMaxTokens {
		t.Errorf("Expected max tokens %d, got %d", defaultMaxTokens, g.maxOutputTokens)
	}
}

func TestExtractCandidateText(t *testing.T) {
	if got := extractCandidateText(nil); got != "" {
		t.Errorf("expected empty text for nil response, got %q", got)
	}

	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "GDP "}, {Text: "grew."}}}},
		},
	}
	if got := extractCandidateText(response); got != "GDP grew." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestMockLLM(t *testing.T) {
	mock := NewMockLLM(zaptest.NewLogger(t))

	reply, err := mock.Generate(context.Background(), "User Input: hi\n\nJSON Response:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply == "" || reply[0] != '{' {
		t.Errorf("expected a JSON plan for classification prompts, got %q", reply)
	}
}

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{name: "bad request", err: genai.APIError{Code: http.StatusBadRequest}, permanent: true},
		{name: "forbidden", err: genai.APIError{Code: http.StatusForbidden}, permanent: true},
		{name: "rate limited", err: genai.APIError{Code: http.StatusTooManyRequests}, permanent: false},
		{name: "unavailable", err: genai.APIError{Code: http.StatusServiceUnavailable}, permanent: false},
		{name: "transport", err: errors.New("connection reset"), permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var permanent *retry.PermanentError
			if got := errors.As(classifyGeminiError(tt.err), &permanent); got != tt.permanent {
				t.Errorf("permanent = %v, want %v", got, tt.permanent)
			}
		})
	}
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiLLM {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewGeminiLLM(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create GeminiLLM: %v", err)
	}
	g.retry = retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1}
	return g
}

func TestGeminiGenerate_ClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"invalid prompt","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := g.Generate(context.Background(), "GDP?")
	if err == nil {
		t.Fatal("expected an error for a 400 response")
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		t.Errorf("expected the API error to surface, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected a single request, got %d", got)
	}
}

func TestGeminiGenerate_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"GDP grew 7.5%."}]}}]}`))
	})

	text, err := g.Generate(context.Background(), "GDP?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "GDP grew 7.5%." {
		t.Errorf("unexpected text %q", text)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
}
