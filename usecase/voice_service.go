package usecase

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/repositories"
)

// MaxSynthesisLength is the longest text, in characters, sent to speech synthesis
const MaxSynthesisLength = 5000

const (
	defaultTranscriptionLanguage = "ka-GE"
	defaultSynthesisLanguage     = "en-US"
)

var (
	ErrEmptyAudio  = errors.New("no audio provided")
	ErrEmptyText   = errors.New("text is required")
	ErrTextTooLong = errors.New("text exceeds maximum length of 5000 characters")
)

// VoiceService converts between speech and text for the HTTP and websocket surfaces
type VoiceService struct {
	speechToText repositories.SpeechToText
	textToSpeech repositories.TextToSpeech
	logger       *zap.Logger
}

// NewVoiceService creates a new voice service
func NewVoiceService(stt repositories.SpeechToText, tts repositories.TextToSpeech, logger *zap.Logger) *VoiceService {
	return &VoiceService{
		speechToText: stt,
		textToSpeech: tts,
		logger:       logger,
	}
}

// Transcribe recognizes a complete recording. languageCode defaults to ka-GE.
// An empty transcript means no speech was detected.
func (s *VoiceService) Transcribe(ctx context.Context, audio []byte, languageCode string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if languageCode == "" {
		languageCode = defaultTranscriptionLanguage
	}

	transcript, err := s.speechToText.TranscribeAudio(ctx, audio, repositories.AudioConfig{
		Language: languageCode,
	})
	if err != nil {
		s.logger.Error("Transcription error", zap.Error(err))
		return "", err
	}

	s.logger.Info("Transcription completed",
		zap.String("language", languageCode),
		zap.Int("length", utf8.RuneCountInString(transcript)))
	return transcript, nil
}

// StartTranscription opens a streaming recognition for live audio
func (s *VoiceService) StartTranscription(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	if config.Language == "" {
		config.Language = defaultTranscriptionLanguage
	}
	return s.speechToText.InitTranscribeStreaming(ctx, config)
}

// Synthesize renders text as MP3 in the voice for language (default en-US)
func (s *VoiceService) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if err := checkSynthesisText(text); err != nil {
		return nil, err
	}
	if language == "" {
		language = defaultSynthesisLanguage
	}

	s.logger.Info("Synthesizing speech",
		zap.Int("length", utf8.RuneCountInString(text)),
		zap.String("language", language))

	audio, err := s.textToSpeech.Synthesize(ctx, text, language)
	if err != nil {
		s.logger.Error("TTS synthesis failed", zap.Error(err))
		return nil, err
	}
	return audio, nil
}

// StreamSpeech is Synthesize delivered as a sequence of audio chunks
func (s *VoiceService) StreamSpeech(ctx context.Context, text, language string) (<-chan []byte, error) {
	if err := checkSynthesisText(text); err != nil {
		return nil, err
	}
	if language == "" {
		language = defaultSynthesisLanguage
	}
	return s.textToSpeech.ConvertTextToSpeech(ctx, text, language)
}

func checkSynthesisText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxSynthesisLength {
		return ErrTextTooLong
	}
	return nil
}
