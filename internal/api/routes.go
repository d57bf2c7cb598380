package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
	"github.com/geostat-assistant/server/internal/auth"
	"github.com/geostat-assistant/server/usecase"
)

const (
	serviceName                  = "geostat-assistant"
	defaultTranscriptionLanguage = "ka-GE"
	defaultMaxUploadBytes        = 25 * 1024 * 1024
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

// Chatter answers text questions
type Chatter interface {
	Reply(ctx context.Context, sessionID, message string) (string, error)
}

// Voice converts between recorded speech and text
type Voice interface {
	Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error)
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// VoiceSocket serves the voice websocket for an authenticated session
type VoiceSocket interface {
	HandleWebSocket(c echo.Context, sessionID string) error
}

// Dependencies groups what the routes need
type Dependencies struct {
	Chat     Chatter
	Voice    Voice
	Sessions repositories.SessionRepository
	Tokens   *auth.TokenIssuer
	Socket   VoiceSocket

	// RateLimitRPS and RateLimitBurst bound requests under /api. Zero RPS disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// MaxUploadBytes caps audio uploads; zero means 25 MiB.
	MaxUploadBytes int64
}

type handler struct {
	Dependencies
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	var limiter rateLimiter
	if deps.RateLimitRPS > 0 {
		limiter = newTokenBucketLimiter(deps.RateLimitRPS, deps.RateLimitBurst)
	}
	initRoutes(e, deps, limiter, logger)
}

func initRoutes(e *echo.Echo, deps Dependencies, limiter rateLimiter, logger *zap.Logger) {
	h := &handler{Dependencies: deps, logger: logger}
	if h.MaxUploadBytes <= 0 {
		h.MaxUploadBytes = defaultMaxUploadBytes
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": serviceName,
		})
	})

	api := e.Group("/api", rateLimitMiddleware(limiter))

	api.GET("/chat", h.chat)
	api.POST("/transcribe", h.transcribe)
	api.POST("/tts/synthesize", h.synthesize)

	api.POST("/sessions", h.createSession)
	api.GET("/sessions/:id", h.getSession)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.websocket)
}

func (h *handler) chat(c echo.Context) error {
	params := c.QueryParams()
	if _, ok := params["message"]; !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_message",
			Message: "Query parameter 'message' is required",
		})
	}

	// Exchanges are recorded only for the session named by a valid token.
	// A session_id parameter must agree with it.
	var sessionID string
	requested := c.QueryParam("session_id")
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" || requested != "" {
		claims, err := h.Tokens.ValidateToken(auth.BearerToken(header))
		if err != nil {
			return unauthorized(c, err)
		}
		if requested != "" && requested != claims.SessionID {
			return c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "Token does not grant access to this session",
			})
		}
		sessionID = claims.SessionID
	}

	response, err := h.Chat.Reply(c.Request().Context(), sessionID, c.QueryParam("message"))
	if err != nil {
		h.logger.Error("Chat reply failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "chat_failed",
			Message: "Failed to answer the question",
		})
	}

	return c.JSON(http.StatusOK, ChatResponse{Response: response})
}

func (h *handler) transcribe(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader.Size == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No audio file provided"})
	}

	language := c.FormValue("language")
	if language == "" {
		language = defaultTranscriptionLanguage
	}

	if fileHeader.Size > h.MaxUploadBytes {
		return uploadTooLarge(c, h.MaxUploadBytes)
	}

	audio, err := readUpload(fileHeader, h.MaxUploadBytes)
	if errors.Is(err, errUploadTooLarge) {
		return uploadTooLarge(c, h.MaxUploadBytes)
	}
	if err != nil {
		h.logger.Error("Failed to read audio file", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process audio file"})
	}

	transcript, err := h.Voice.Transcribe(c.Request().Context(), audio, language)
	switch {
	case errors.Is(err, usecase.ErrEmptyAudio):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No audio file provided"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Transcription failed: " + err.Error()})
	}

	if transcript == "" {
		return c.JSON(http.StatusOK, TranscriptionResponse{Message: "No speech detected"})
	}

	return c.JSON(http.StatusOK, TranscriptionResponse{
		Transcript: transcript,
		Language:   language,
	})
}

// readUpload reads the whole file, failing rather than truncating when it
// holds more than limit bytes.
func readUpload(fileHeader *multipart.FileHeader, limit int64) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errUploadTooLarge
	}
	return data, nil
}

func uploadTooLarge(c echo.Context, limit int64) error {
	return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
		Error:   "Audio file too large",
		Message: fmt.Sprintf("maximum size is %d bytes", limit),
	})
}

func (h *handler) synthesize(c echo.Context) error {
	var req SynthesisRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	audio, err := h.Voice.Synthesize(c.Request().Context(), req.Text, req.Language)
	switch {
	case errors.Is(err, usecase.ErrEmptyText), errors.Is(err, usecase.ErrTextTooLong):
		h.logger.Warn("Rejected synthesis request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_text",
			Message: err.Error(),
		})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "synthesis_failed",
			Message: "Failed to synthesize speech",
		})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "inline; filename=speech.mp3")
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

func (h *handler) createSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	language := entities.Language(req.Language)
	switch language {
	case "", entities.LanguageGeorgian, entities.LanguageEnglish:
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_language",
			Message: "Language must be ka or en",
		})
	}

	session := entities.NewSession(language)
	if err := h.Sessions.Create(c.Request().Context(), session); err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_creation_failed",
			Message: "Failed to create session",
		})
	}

	token, expiresAt, err := h.Tokens.GenerateSessionToken(session.ID)
	if err != nil {
		h.logger.Error("Failed to generate session token",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.logger.Info("Session created", zap.String("session_id", session.ID))

	return c.JSON(http.StatusCreated, SessionResponse{
		SessionID: session.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

func (h *handler) getSession(c echo.Context) error {
	claims, err := h.Tokens.ValidateToken(auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization)))
	if err != nil {
		return unauthorized(c, err)
	}

	id := c.Param("id")
	if claims.SessionID != id {
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "Token does not grant access to this session",
		})
	}

	session, err := h.Sessions.GetByID(c.Request().Context(), id)
	switch {
	case errors.Is(err, repositories.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "Session not found",
		})
	case err != nil:
		h.logger.Error("Failed to load session", zap.String("session_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_lookup_failed",
			Message: "Failed to load session",
		})
	}

	return c.JSON(http.StatusOK, session)
}

// websocket authenticates the session before handing the connection to the hub.
// Browsers cannot set headers on websocket requests, so the token may also
// come from the query string.
func (h *handler) websocket(c echo.Context) error {
	token := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if token == "" {
		token = c.QueryParam("token")
	}

	claims, err := h.Tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("WebSocket connection rejected", zap.Error(err))
		return unauthorized(c, err)
	}

	session, err := h.Sessions.GetByID(c.Request().Context(), claims.SessionID)
	if err != nil {
		h.logger.Warn("WebSocket connection rejected: unknown session",
			zap.String("session_id", claims.SessionID),
			zap.Error(err))
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "Session not found",
		})
	}
	if session.IsExpired() {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "session_expired",
			Message: "Session has expired",
		})
	}

	h.logger.Info("WebSocket connection authenticated", zap.String("session_id", session.ID))

	return h.Socket.HandleWebSocket(c, session.ID)
}

func unauthorized(c echo.Context, err error) error {
	if errors.Is(err, auth.ErrMissingToken) {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}
	return c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "invalid_token",
		Message: "Invalid or expired JWT token",
	})
}
