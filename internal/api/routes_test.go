package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/geostat-assistant/server/adapters/memory"
	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/internal/auth"
	"github.com/geostat-assistant/server/usecase"
)

type fakeChat struct {
	sessionID string
	message   string
	err       error
}

func (f *fakeChat) Reply(ctx context.Context, sessionID, message string) (string, error) {
	f.sessionID = sessionID
	f.message = message
	if f.err != nil {
		return "", f.err
	}
	return "answer to " + message, nil
}

type fakeVoice struct {
	transcript string
	audio      []byte
	err        error
	language   string
	heard      int
}

func (f *fakeVoice) Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error) {
	f.language = languageCode
	f.heard = len(audio)
	if len(audio) == 0 {
		return "", usecase.ErrEmptyAudio
	}
	return f.transcript, f.err
}

func (f *fakeVoice) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	f.language = language
	if text == "" {
		return nil, usecase.ErrEmptyText
	}
	if len(text) > usecase.MaxSynthesisLength {
		return nil, usecase.ErrTextTooLong
	}
	return f.audio, f.err
}

type fakeSocket struct {
	sessionID string
}

func (f *fakeSocket) HandleWebSocket(c echo.Context, sessionID string) error {
	f.sessionID = sessionID
	return c.NoContent(http.StatusSwitchingProtocols)
}

type testAPI struct {
	e        *echo.Echo
	chat     *fakeChat
	voice    *fakeVoice
	socket   *fakeSocket
	sessions *memory.SessionRepository
	tokens   *auth.TokenIssuer
}

func setupTestAPI(t *testing.T, opts ...func(*Dependencies)) *testAPI {
	t.Helper()

	api := &testAPI{
		e:        echo.New(),
		chat:     &fakeChat{},
		voice:    &fakeVoice{audio: []byte("mp3")},
		socket:   &fakeSocket{},
		sessions: memory.NewSessionRepository(),
		tokens:   auth.NewTokenIssuer("test-secret", time.Hour),
	}

	deps := Dependencies{
		Chat:     api.chat,
		Voice:    api.voice,
		Sessions: api.sessions,
		Tokens:   api.tokens,
		Socket:   api.socket,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	initRoutes(api.e, deps, nil, zaptest.NewLogger(t))

	return api
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// newSession stores a session and returns it with a token for it
func (a *testAPI) newSession(t *testing.T) (*entities.Session, string) {
	t.Helper()
	session := entities.NewSession(entities.LanguageGeorgian)
	if err := a.sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	token, _, err := a.tokens.GenerateSessionToken(session.ID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return session, token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decode[map[string]string](t, rec)
	if body["status"] != "ok" || body["service"] != "geostat-assistant" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestChat(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without message, got %d", rec.Code)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/chat?message=GDP", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[ChatResponse](t, rec).Response; got != "answer to GDP" {
		t.Errorf("unexpected response %q", got)
	}
	if api.chat.sessionID != "" {
		t.Errorf("expected anonymous chat without a token, got session %q", api.chat.sessionID)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/chat?message=", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected an empty message to reach the chat service, got %d", rec.Code)
	}
}

func TestChat_WithToken(t *testing.T) {
	api := setupTestAPI(t)
	session, token := api.newSession(t)

	req := httptest.NewRequest(http.MethodGet, "/api/chat?message=hello", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if rec := api.do(req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if api.chat.sessionID != session.ID {
		t.Errorf("expected session id from token, got %q", api.chat.sessionID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chat?message=hello", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	if rec := api.do(req); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad token, got %d", rec.Code)
	}
}

func TestChat_SessionIDRequiresMatchingToken(t *testing.T) {
	api := setupTestAPI(t)
	session, token := api.newSession(t)
	_, otherToken := api.newSession(t)

	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/chat?message=hi&session_id="+session.ID, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a session id without a token, got %d", rec.Code)
	}
	if api.chat.message != "" {
		t.Errorf("chat service should not be reached, got message %q", api.chat.message)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat?message=hi&session_id="+session.ID, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+otherToken)
	if rec := api.do(req); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for another session's token, got %d", rec.Code)
	}
	if api.chat.message != "" {
		t.Errorf("chat service should not be reached, got message %q", api.chat.message)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chat?message=hi&session_id="+session.ID, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if rec := api.do(req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a matching token, got %d", rec.Code)
	}
	if api.chat.sessionID != session.ID {
		t.Errorf("expected session %q, got %q", session.ID, api.chat.sessionID)
	}
}

func TestChat_Failure(t *testing.T) {
	api := setupTestAPI(t)
	api.chat.err = context.Canceled

	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/chat?message=GDP", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func multipartRequest(t *testing.T, audio []byte, language string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if audio != nil {
		part, err := writer.CreateFormFile("file", "speech.webm")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(audio)
	}
	if language != "" {
		writer.WriteField("language", language)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestTranscribe(t *testing.T) {
	tests := []struct {
		name       string
		audio      []byte
		language   string
		transcript string
		err        error
		wantCode   int
		want       map[string]string
		wantLang   string
	}{
		{
			name:     "no file",
			wantCode: http.StatusBadRequest,
			want:     map[string]string{"error": "No audio file provided"},
		},
		{
			name:     "empty file",
			audio:    []byte{},
			wantCode: http.StatusBadRequest,
			want:     map[string]string{"error": "No audio file provided"},
		},
		{
			name:       "default language",
			audio:      []byte{1, 2, 3},
			transcript: "სად არის მშპ?",
			wantCode:   http.StatusOK,
			want:       map[string]string{"transcript": "სად არის მშპ?", "language": "ka-GE"},
			wantLang:   "ka-GE",
		},
		{
			name:       "explicit language",
			audio:      []byte{1, 2, 3},
			language:   "en-US",
			transcript: "where is GDP",
			wantCode:   http.StatusOK,
			want:       map[string]string{"transcript": "where is GDP", "language": "en-US"},
			wantLang:   "en-US",
		},
		{
			name:     "no speech",
			audio:    []byte{1, 2, 3},
			wantCode: http.StatusOK,
			want:     map[string]string{"transcript": "", "message": "No speech detected"},
			wantLang: "ka-GE",
		},
		{
			name:     "recognizer failure",
			audio:    []byte{1, 2, 3},
			err:      errors.New("quota exceeded"),
			wantCode: http.StatusInternalServerError,
			want:     map[string]string{"error": "Transcription failed: quota exceeded"},
			wantLang: "ka-GE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI(t)
			api.voice.transcript = tt.transcript
			api.voice.err = tt.err

			rec := api.do(multipartRequest(t, tt.audio, tt.language))
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}

			got := decode[map[string]string](t, rec)
			if len(got) != len(tt.want) {
				t.Errorf("unexpected body %v", got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
			if api.voice.language != tt.wantLang {
				t.Errorf("language = %q, want %q", api.voice.language, tt.wantLang)
			}
		})
	}
}

func synthesisRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/tts/synthesize", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestTranscribe_RejectsOversizedUpload(t *testing.T) {
	api := setupTestAPI(t, func(d *Dependencies) { d.MaxUploadBytes = 8 })

	rec := api.do(multipartRequest(t, bytes.Repeat([]byte{1}, 9), ""))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[ErrorResponse](t, rec).Error; got != "Audio file too large" {
		t.Errorf("unexpected error %q", got)
	}
	if api.voice.heard != 0 {
		t.Errorf("transcriber should not receive a truncated upload, got %d bytes", api.voice.heard)
	}

	api.voice.transcript = "ok"
	rec = api.do(multipartRequest(t, bytes.Repeat([]byte{1}, 8), ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 at the limit, got %d", rec.Code)
	}
	if api.voice.heard != 8 {
		t.Errorf("expected all 8 bytes forwarded, got %d", api.voice.heard)
	}
}

func TestReadUpload_DoesNotTruncate(t *testing.T) {
	req := multipartRequest(t, bytes.Repeat([]byte{1}, 16), "")
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	fileHeader := req.MultipartForm.File["file"][0]
	// A client-declared size cannot be trusted, so the body is measured too.
	fileHeader.Size = 4

	if _, err := readUpload(fileHeader, 8); !errors.Is(err, errUploadTooLarge) {
		t.Errorf("expected errUploadTooLarge, got %v", err)
	}

	data, err := readUpload(fileHeader, 16)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 16 {
		t.Errorf("expected 16 bytes, got %d", len(data))
	}
}

func TestSynthesize(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(synthesisRequest(`{"text":"გამარჯობა","language":"ka-GE"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "audio/mpeg" {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != "inline; filename=speech.mp3" {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if rec.Body.String() != "mp3" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if api.voice.language != "ka-GE" {
		t.Errorf("unexpected language %q", api.voice.language)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{name: "empty text", body: `{"text":""}`, wantCode: http.StatusBadRequest},
		{name: "text too long", body: `{"text":"` + strings.Repeat("a", usecase.MaxSynthesisLength+1) + `"}`, wantCode: http.StatusBadRequest},
		{name: "malformed body", body: `{"text":`, wantCode: http.StatusBadRequest},
		{name: "provider failure", body: `{"text":"hi"}`, err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI(t)
			api.voice.err = tt.err

			rec := api.do(synthesisRequest(tt.body))
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}

func TestSessions(t *testing.T) {
	api := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"language":"en"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := api.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	created := decode[SessionResponse](t, rec)
	if created.SessionID == "" || created.Token == "" {
		t.Fatalf("unexpected response %+v", created)
	}
	if created.ExpiresAt.Before(time.Now()) {
		t.Errorf("expected a future expiry, got %v", created.ExpiresAt)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+created.Token)
	rec = api.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	session := decode[entities.Session](t, rec)
	if session.ID != created.SessionID || session.Language != entities.LanguageEnglish {
		t.Errorf("unexpected session %+v", session)
	}

	_, otherToken := api.newSession(t)
	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+otherToken)
	if rec := api.do(req); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for another session's token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.SessionID, nil)
	if rec := api.do(req); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestSessions_DefaultsAndValidation(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 without a body, got %d", rec.Code)
	}
	created := decode[SessionResponse](t, rec)
	stored, err := api.sessions.GetByID(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("session was not stored: %v", err)
	}
	if stored.Language != entities.LanguageGeorgian {
		t.Errorf("expected Georgian default, got %s", stored.Language)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"language":"fr"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if rec := api.do(req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported language, got %d", rec.Code)
	}
}

func TestWebSocketAuth(t *testing.T) {
	api := setupTestAPI(t)
	session, token := api.newSession(t)

	if rec := api.do(httptest.NewRequest(http.MethodGet, "/ws", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec := api.do(httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	if rec.Code != http.StatusSwitchingProtocols {
		t.Fatalf("expected the hub to take over, got %d", rec.Code)
	}
	if api.socket.sessionID != session.ID {
		t.Errorf("expected session %s, got %q", session.ID, api.socket.sessionID)
	}

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if rec := api.do(req); rec.Code != http.StatusSwitchingProtocols {
		t.Errorf("expected header token to be accepted, got %d", rec.Code)
	}
}

func TestWebSocketAuth_UnknownOrExpiredSession(t *testing.T) {
	api := setupTestAPI(t)

	token, _, _ := api.tokens.GenerateSessionToken("never-created")
	if rec := api.do(httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", rec.Code)
	}

	session := entities.NewSession(entities.LanguageGeorgian)
	session.ExpiresAt = time.Now().Add(-time.Minute)
	api.sessions.Create(context.Background(), session)
	token, _, _ = api.tokens.GenerateSessionToken(session.ID)

	if rec := api.do(httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired session, got %d", rec.Code)
	}
	if api.socket.sessionID != "" {
		t.Error("hub should not be reached")
	}
}

func TestRateLimitedRoutes(t *testing.T) {
	e := echo.New()
	initRoutes(e, Dependencies{Chat: &fakeChat{}}, &staticLimiter{allow: false}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat?message=hi", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 under /api, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected health to bypass the limiter, got %d", rec.Code)
	}
}
