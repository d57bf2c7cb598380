package tts

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/repositories"
)

// MPEG-1 Layer III, 128 kbit/s, 44.1 kHz, no padding.
var silentFrameHeader = []byte{0xFF, 0xFB, 0x90, 0x64}

const (
	silentFrameSize = 417
	runesPerFrame   = 20
)

// MockTextToSpeech renders silence whose length follows the text length
type MockTextToSpeech struct {
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a new offline speech synthesizer
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

// Synthesize returns silent MP3 frames, one per runesPerFrame runes of text
func (m *MockTextToSpeech) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("text is empty")
	}

	frames := len([]rune(text))/runesPerFrame + 1
	audio := make([]byte, 0, frames*silentFrameSize)
	for i := 0; i < frames; i++ {
		audio = append(audio, silentFrame()...)
	}

	m.logger.Info("Mock speech synthesized",
		zap.String("language", language),
		zap.Int("frames", frames))
	return audio, nil
}

// ConvertTextToSpeech streams the silent rendition one frame per chunk
func (m *MockTextToSpeech) ConvertTextToSpeech(ctx context.Context, text, language string) (<-chan []byte, error) {
	audio, err := m.Synthesize(ctx, text, language)
	if err != nil {
		return nil, err
	}

	audioChan := make(chan []byte, 10)
	go func() {
		defer close(audioChan)
		for start := 0; start < len(audio); start += silentFrameSize {
			select {
			case audioChan <- audio[start : start+silentFrameSize]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return audioChan, nil
}

func silentFrame() []byte {
	frame := make([]byte, silentFrameSize)
	copy(frame, silentFrameHeader)
	return frame
}
