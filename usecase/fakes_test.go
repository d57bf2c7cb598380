package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
)

var errUnavailable = errors.New("service unavailable")

// fakeLLM answers each prompt with the reply of the first matching marker
type fakeLLM struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)

	if f.err != nil {
		return "", f.err
	}
	for marker, reply := range f.replies {
		if strings.Contains(prompt, marker) {
			return reply, nil
		}
	}
	return "", errUnavailable
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakeSearch returns canned results per query and records every query
type fakeSearch struct {
	results map[string][]entities.SearchResult
	err     error
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query string) ([]entities.SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type fakeSpeechToText struct {
	transcript string
	err        error
	config     repositories.AudioConfig
	calls      int
}

func (f *fakeSpeechToText) TranscribeAudio(ctx context.Context, audio []byte, config repositories.AudioConfig) (string, error) {
	f.calls++
	f.config = config
	return f.transcript, f.err
}

func (f *fakeSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	f.config = config
	return nil, f.err
}

type fakeTextToSpeech struct {
	audio    []byte
	err      error
	language string
	calls    int
}

func (f *fakeTextToSpeech) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	f.calls++
	f.language = language
	return f.audio, f.err
}

func (f *fakeTextToSpeech) ConvertTextToSpeech(ctx context.Context, text, language string) (<-chan []byte, error) {
	f.calls++
	f.language = language
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan []byte, 1)
	ch <- f.audio
	close(ch)
	return ch, nil
}
