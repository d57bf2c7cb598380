package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/geostat-assistant/server/domain/repositories"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeListeningStart MessageType = "listening_start"
	MessageTypeListeningEnd   MessageType = "listening_end"
	MessageTypeTranscript     MessageType = "transcript"
	MessageTypeSpeakingStart  MessageType = "speaking_start"
	MessageTypeSpeakingEnd    MessageType = "speaking_end"
	MessageTypeError          MessageType = "error"
)

const (
	minSampleRate = 8000
	maxSampleRate = 48000
)

// ClientMessage is a JSON control frame sent by the browser
type ClientMessage struct {
	Type       MessageType `json:"type"`
	Language   string      `json:"language,omitempty"`
	Encoding   string      `json:"encoding,omitempty"`
	SampleRate int         `json:"sample_rate,omitempty"`
}

// AudioConfig returns the recognition settings requested by a listening_start
// message. Empty fields are left for the recognizer defaults.
func (m *ClientMessage) AudioConfig() repositories.AudioConfig {
	return repositories.AudioConfig{
		Language:   m.Language,
		Encoding:   m.Encoding,
		SampleRate: m.SampleRate,
	}
}

// ServerMessage is a JSON control frame sent to the browser
type ServerMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	TurnID    string      `json:"turn_id,omitempty"`
	Text      *string     `json:"text,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ParseClientMessage decodes and validates a control frame
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch msg.Type {
	case MessageTypeListeningStart:
		if msg.SampleRate != 0 && (msg.SampleRate < minSampleRate || msg.SampleRate > maxSampleRate) {
			return nil, fmt.Errorf("sample_rate must be between %d and %d", minSampleRate, maxSampleRate)
		}
	case MessageTypeListeningEnd:
	case "":
		return nil, fmt.Errorf("message type is required")
	default:
		return nil, fmt.Errorf("unsupported message type: %s", msg.Type)
	}

	return &msg, nil
}

func newServerMessage(msgType MessageType, sessionID, turnID string) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		SessionID: sessionID,
		TurnID:    turnID,
		Timestamp: time.Now().Unix(),
	}
}

// withText sets the text field, keeping it in the JSON even when empty
func (m *ServerMessage) withText(text string) *ServerMessage {
	m.Text = &text
	return m
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(sessionID, message string) *ServerMessage {
	msg := newServerMessage(MessageTypeError, sessionID, "")
	msg.Message = message
	return msg
}
