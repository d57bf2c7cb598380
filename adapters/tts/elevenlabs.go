package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/repositories"
	"github.com/geostat-assistant/server/internal/retry"
)

const (
	defaultAPIBaseURL      = "https://api.elevenlabs.io/v1"
	defaultGeorgianVoiceID = "Z3R5wn05IrDiVCyEkUrK" // Arabella
	defaultEnglishVoiceID  = "21m00Tcm4TlvDq8ikWAM" // Rachel
	defaultModelID         = "eleven_v3"
	defaultChunkSize       = 4096
	defaultMaxAudioBytes   = 10 * 1024 * 1024
	defaultTimeout         = 60 * time.Second
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter.
// Only APIKey is required, everything else falls back to defaults.
type ElevenLabsConfig struct {
	APIKey          string
	APIBaseURL      string
	ModelID         string
	GeorgianVoiceID string
	EnglishVoiceID  string
	ChunkSize       int
	MaxAudioBytes   int
	Stability       float64 // 0 leaves the voice default
	Clarity         float64 // 0 leaves the voice default
	Timeout         time.Duration
}

// ElevenLabsTTS implements TextToSpeech interface using Eleven Labs API
type ElevenLabsTTS struct {
	apiKey          string
	apiBaseURL      string
	modelID         string
	georgianVoiceID string
	englishVoiceID  string
	chunkSize       int
	maxAudioBytes   int
	stability       float64
	clarity         float64
	httpClient      *http.Client
	retry           retry.Config
	logger          *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *ElevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	if config.Stability < 0 || config.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	if config.Clarity < 0 || config.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}

	if config.MaxAudioBytes < 0 {
		return fmt.Errorf("max audio size must be positive, got %d", config.MaxAudioBytes)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	e := &ElevenLabsTTS{
		apiKey:          config.APIKey,
		apiBaseURL:      strings.TrimSuffix(config.APIBaseURL, "/"),
		modelID:         config.ModelID,
		georgianVoiceID: config.GeorgianVoiceID,
		englishVoiceID:  config.EnglishVoiceID,
		chunkSize:       config.ChunkSize,
		maxAudioBytes:   config.MaxAudioBytes,
		stability:       config.Stability,
		clarity:         config.Clarity,
		retry:           retry.DefaultConfig(),
		logger:          logger,
	}

	if e.apiBaseURL == "" {
		e.apiBaseURL = defaultAPIBaseURL
	}
	if e.modelID == "" {
		e.modelID = defaultModelID
	}
	if e.georgianVoiceID == "" {
		e.georgianVoiceID = defaultGeorgianVoiceID
	}
	if e.englishVoiceID == "" {
		e.englishVoiceID = defaultEnglishVoiceID
	}
	if e.chunkSize == 0 {
		e.chunkSize = defaultChunkSize
	}
	if e.maxAudioBytes == 0 {
		e.maxAudioBytes = defaultMaxAudioBytes
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	e.httpClient = &http.Client{Timeout: timeout}

	logger.Info("ElevenLabs TTS configured",
		zap.String("apiBaseURL", e.apiBaseURL),
		zap.String("modelID", e.modelID))

	return e, nil
}

// VoiceForLanguage picks the Georgian voice for ka* codes and the English voice otherwise
func (e *ElevenLabsTTS) VoiceForLanguage(language string) string {
	if strings.HasPrefix(strings.ToLower(language), "ka") {
		return e.georgianVoiceID
	}
	return e.englishVoiceID
}

// Synthesize converts text to a complete MP3 clip
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := e.VoiceForLanguage(language)
	e.logger.Info("Synthesizing speech",
		zap.String("voiceID", voiceID),
		zap.String("language", language),
		zap.Int("textLength", len([]rune(text))))

	url := fmt.Sprintf("%s/text-to-speech/%s", e.apiBaseURL, voiceID)

	var audio []byte
	err := retry.Do(ctx, e.retry, func() error {
		resp, err := e.post(ctx, url, text)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		audio, err = io.ReadAll(io.LimitReader(resp.Body, int64(e.maxAudioBytes)+1))
		if err != nil {
			return fmt.Errorf("failed to read audio response: %w", err)
		}
		if len(audio) > e.maxAudioBytes {
			return retry.Permanent(fmt.Errorf("audio response exceeds %d bytes", e.maxAudioBytes))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio response from ElevenLabs")
	}

	e.logger.Info("Successfully generated audio", zap.Int("bytes", len(audio)))
	return audio, nil
}

// ConvertTextToSpeech streams the MP3 rendition of text in chunks. The channel
// is closed when the body is drained, on error, or when ctx is cancelled.
func (e *ElevenLabsTTS) ConvertTextToSpeech(ctx context.Context, text, language string) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := e.VoiceForLanguage(language)
	url := fmt.Sprintf("%s/text-to-speech/%s/stream", e.apiBaseURL, voiceID)

	resp, err := e.post(ctx, url, text)
	if err != nil {
		return nil, fmt.Errorf("failed to start speech stream: %w", err)
	}

	e.logger.Info("Streaming speech",
		zap.String("voiceID", voiceID),
		zap.String("contentType", resp.Header.Get("Content-Type")))

	audioChan := make(chan []byte, 10)

	go func() {
		defer close(audioChan)
		defer resp.Body.Close()

		buffer := make([]byte, e.chunkSize)
		totalBytes := 0
		chunkCount := 0

		for {
			n, err := resp.Body.Read(buffer)
			if n > 0 {
				totalBytes += n
				chunkCount++

				chunk := make([]byte, n)
				copy(chunk, buffer[:n])

				select {
				case audioChan <- chunk:
				case <-ctx.Done():
					e.logger.Warn("Context cancelled while sending audio chunk")
					return
				}
			}

			if err == io.EOF {
				e.logger.Info("Finished streaming audio data",
					zap.Int("totalChunks", chunkCount),
					zap.Int("totalBytes", totalBytes))
				return
			}

			if err != nil {
				e.logger.Error("Error reading response body", zap.Error(err))
				return
			}
		}
	}()

	return audioChan, nil
}

// post sends the synthesis request and returns the response when the status is 200
func (e *ElevenLabsTTS) post(ctx context.Context, url, text string) (*http.Response, error) {
	request := ElevenLabsRequest{
		Text:    text,
		ModelID: e.modelID,
	}
	if e.stability > 0 || e.clarity > 0 {
		request.VoiceSettings = &ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
		}
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}

	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		apiErr := fmt.Errorf("ElevenLabs API error %d: %s", resp.StatusCode, strings.TrimSpace(string(errorBody)))
		if retry.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, apiErr
		}
		return nil, retry.Permanent(apiErr)
	}

	return resp, nil
}
