package repositories

import "context"

type TextToSpeech interface {
	// Synthesize returns the whole MP3 rendition of text in the voice for language
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
	// ConvertTextToSpeech streams the rendition chunk by chunk
	ConvertTextToSpeech(ctx context.Context, text, language string) (<-chan []byte, error)
}
