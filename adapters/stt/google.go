package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/geostat-assistant/server/domain/repositories"
)

const (
	DefaultLanguageCode = "ka-GE"
	EnglishLanguageCode = "en-US"
	DefaultEncoding     = "WEBM_OPUS"
	DefaultSampleRate   = 48000
)

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client *speech.Client
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText dials Google Cloud Speech. Credentials come from
// GOOGLE_APPLICATION_CREDENTIALS unless opts say otherwise.
func NewGoogleSpeechToText(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleSpeechToText{
		client: client,
		logger: logger,
	}, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// TranscribeAudio converts a complete recording with a single Recognize call
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		g.logger.Warn("Empty audio data received")
		return "", nil
	}

	recognitionConfig, err := buildRecognitionConfig(config)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		g.logger.Error("Transcription failed", zap.Error(err))
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	transcript := firstTranscript(resp.GetResults())
	if transcript == "" {
		g.logger.Info("No speech detected in audio")
		return "", nil
	}

	g.logger.Info("Transcription successful",
		zap.Int("characters", len([]rune(transcript))),
		zap.String("language", recognitionConfig.LanguageCode))

	return transcript, nil
}

func (g *GoogleSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	recognitionConfig, err := buildRecognitionConfig(config)
	if err != nil {
		return nil, err
	}

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:          recognitionConfig,
				InterimResults:  false,
				SingleUtterance: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	streamInstance := &GoogleSpeechToTextStream{
		stream:     stream,
		ctx:        ctx,
		resultChan: make(chan string, 1),
		errorChan:  make(chan error, 1),
	}
	go streamInstance.receiveResults()

	return streamInstance, nil
}

type GoogleSpeechToTextStream struct {
	stream        speechpb.Speech_StreamingRecognizeClient
	ctx           context.Context
	audioReceived bool
	resultChan    chan string
	errorChan     chan error
}

func (g *GoogleSpeechToTextStream) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	g.audioReceived = true

	if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}

	return nil
}

// End closes the send side and waits for the final transcript. An empty
// transcript means no speech was detected.
func (g *GoogleSpeechToTextStream) End() (string, error) {
	if err := g.stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	if !g.audioReceived {
		return "", fmt.Errorf("no audio data received")
	}

	select {
	case <-g.ctx.Done():
		return "", fmt.Errorf("context cancelled while waiting for result: %w", g.ctx.Err())
	case err := <-g.errorChan:
		return "", err
	case result := <-g.resultChan:
		return result, nil
	}
}

func (g *GoogleSpeechToTextStream) receiveResults() {
	var finalTranscription strings.Builder

	for {
		resp, err := g.stream.Recv()
		if errors.Is(err, io.EOF) {
			g.resultChan <- strings.TrimSpace(finalTranscription.String())
			return
		}
		if err != nil {
			g.errorChan <- fmt.Errorf("failed to receive response: %w", err)
			return
		}

		for _, result := range resp.GetResults() {
			if result.IsFinal && len(result.Alternatives) > 0 {
				if finalTranscription.Len() > 0 {
					finalTranscription.WriteString(" ")
				}
				finalTranscription.WriteString(result.Alternatives[0].Transcript)
			}
		}
	}
}

func buildRecognitionConfig(config repositories.AudioConfig) (*speechpb.RecognitionConfig, error) {
	encodingName := config.Encoding
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	encoding, err := getAudioEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	sampleRate := config.SampleRate
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	language := config.Language
	if language == "" {
		language = DefaultLanguageCode
	}

	return &speechpb.RecognitionConfig{
		Encoding:                   encoding,
		SampleRateHertz:            int32(sampleRate),
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}, nil
}

func firstTranscript(results []*speechpb.SpeechRecognitionResult) string {
	if len(results) == 0 || len(results[0].Alternatives) == 0 {
		return ""
	}
	return results[0].Alternatives[0].Transcript
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
