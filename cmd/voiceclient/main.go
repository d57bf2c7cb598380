// Command voiceclient plays a recorded question through the voice websocket
// and saves the spoken answer.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type serverMessage struct {
	Type      string  `json:"type"`
	SessionID string  `json:"session_id"`
	TurnID    string  `json:"turn_id"`
	Text      *string `json:"text"`
	Message   string  `json:"message"`
}

func main() {
	app := kingpin.New("voiceclient", "Sends a recorded question to the GeoStat Assistant voice websocket")
	server := app.Flag("server", "Server address").Default("localhost:8080").String()
	audioPath := app.Flag("audio", "Audio file to stream").Default("sample_audio.webm").ExistingFile()
	language := app.Flag("language", "Recognition language").Default("ka-GE").String()
	encoding := app.Flag("encoding", "Audio encoding").Default("WEBM_OPUS").String()
	sampleRate := app.Flag("sample-rate", "Audio sample rate in Hz").Default("48000").Int()
	chunkSize := app.Flag("chunk-size", "Bytes per audio frame").Default("4096").Int()
	outDir := app.Flag("out", "Directory for spoken answers").Default("audio_responses").String()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	session, err := createSession(*server)
	if err != nil {
		logger.Fatal("Failed to create session", zap.Error(err))
	}
	logger.Info("Session created", zap.String("sessionID", session.SessionID))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *server, Path: "/ws"}
	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+session.Token)

	logger.Info("Connecting", zap.String("url", u.String()))
	c, _, err := websocket.DefaultDialer.Dial(u.String(), headers)
	if err != nil {
		logger.Fatal("Dial failed", zap.Error(err))
	}
	defer c.Close()

	done := make(chan struct{})
	go readResponses(c, *outDir, done, logger)

	audio, err := os.ReadFile(*audioPath)
	if err != nil {
		logger.Fatal("Failed to read audio file", zap.Error(err))
	}

	if err := sendUtterance(c, audio, *chunkSize, map[string]any{
		"type":        "listening_start",
		"language":    *language,
		"encoding":    *encoding,
		"sample_rate": *sampleRate,
	}, logger); err != nil {
		logger.Fatal("Failed to send audio", zap.Error(err))
	}

	select {
	case <-done:
	case <-interrupt:
		logger.Info("Interrupted")
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			logger.Warn("Write close failed", zap.Error(err))
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func createSession(server string) (*sessionResponse, error) {
	resp, err := http.Post("http://"+server+"/api/sessions", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("session creation failed: %s", string(body))
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// sendUtterance streams audio between listening_start and listening_end,
// pacing frames roughly like a live microphone.
func sendUtterance(c *websocket.Conn, audio []byte, chunkSize int, start map[string]any, logger *zap.Logger) error {
	if err := c.WriteJSON(start); err != nil {
		return err
	}

	chunks := 0
	for offset := 0; offset < len(audio); offset += chunkSize {
		end := min(offset+chunkSize, len(audio))
		if err := c.WriteMessage(websocket.BinaryMessage, audio[offset:end]); err != nil {
			return fmt.Errorf("audio chunk %d: %w", chunks, err)
		}
		chunks++
		time.Sleep(50 * time.Millisecond)
	}
	logger.Info("Audio sent", zap.Int("bytes", len(audio)), zap.Int("chunks", chunks))

	return c.WriteJSON(map[string]string{"type": "listening_end"})
}

func readResponses(c *websocket.Conn, outDir string, done chan struct{}, logger *zap.Logger) {
	defer close(done)

	var audioFile *os.File
	var speakingSince time.Time
	chunks := 0

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			logger.Info("Connection closed", zap.Error(err))
			return
		}

		if messageType == websocket.BinaryMessage {
			chunks++
			if audioFile != nil {
				if _, err := audioFile.Write(message); err != nil {
					logger.Error("Failed to write audio chunk", zap.Error(err))
				}
			}
			continue
		}

		var msg serverMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("Unreadable message", zap.ByteString("raw", message))
			continue
		}

		switch msg.Type {
		case "listening_start":
			logger.Info("Listening", zap.String("turnID", msg.TurnID))
		case "transcript":
			logger.Info("Transcript", zap.Stringp("text", msg.Text), zap.String("message", msg.Message))
			if msg.Text == nil || *msg.Text == "" {
				return
			}
		case "speaking_start":
			logger.Info("Answer", zap.Stringp("text", msg.Text))
			speakingSince = time.Now()
			chunks = 0
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				logger.Error("Failed to create output directory", zap.Error(err))
				return
			}
			path := filepath.Join(outDir, msg.TurnID+".mp3")
			audioFile, err = os.Create(path)
			if err != nil {
				logger.Error("Failed to create audio file", zap.Error(err))
				return
			}
			logger.Info("Saving answer", zap.String("path", path))
		case "speaking_end":
			if audioFile != nil {
				audioFile.Close()
			}
			logger.Info("Answer finished",
				zap.Duration("duration", time.Since(speakingSince)),
				zap.Int("chunks", chunks))
			return
		case "error":
			logger.Error("Server error", zap.String("message", msg.Message))
			if audioFile != nil {
				audioFile.Close()
			}
			return
		}
	}
}
