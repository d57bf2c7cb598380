package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/repositories"
)

// MockSpeechToText is an offline stand-in that returns a fixed transcript per language
type MockSpeechToText struct {
	logger *zap.Logger
}

// MockSpeechToTextStream is a mock implementation of streaming speech recognition
type MockSpeechToTextStream struct {
	logger        *zap.Logger
	language      string
	receivedBytes int
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	return &MockSpeechToTextStream{
		logger:   s.logger,
		language: config.Language,
	}, nil
}

// Stream implements mock streaming audio processing
func (m *MockSpeechToTextStream) Stream(data []byte) error {
	m.receivedBytes += len(data)
	return nil
}

// End returns the mock transcription result
func (m *MockSpeechToTextStream) End() (string, error) {
	if m.receivedBytes == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	transcript := mockTranscript(m.language)
	m.logger.Info("Ending mock transcription stream", zap.String("result", transcript))
	return transcript, nil
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.logger.Info("Processing speech-to-text",
		zap.Int("audioSize", len(audioData)),
		zap.String("language", config.Language))

	if len(audioData) == 0 {
		return "", nil
	}
	return mockTranscript(config.Language), nil
}

func mockTranscript(language string) string {
	if language == EnglishLanguageCode {
		return "where can I find inflation data?"
	}
	return "სად ვნახო ინფლაციის მონაცემები?"
}
