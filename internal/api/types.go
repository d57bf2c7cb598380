package api

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ChatResponse carries the assistant's answer
type ChatResponse struct {
	Response string `json:"response"`
}

// TranscriptionResponse is returned by the transcription endpoint. Language is
// omitted and Message set when no speech was detected.
type TranscriptionResponse struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language,omitempty"`
	Message    string `json:"message,omitempty"`
}

// SynthesisRequest represents the request payload for speech synthesis
type SynthesisRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// CreateSessionRequest represents the optional payload for opening a session
type CreateSessionRequest struct {
	Language string `json:"language"`
}

// SessionResponse represents the response payload for a new session
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
