package websocket

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/geostat-assistant/server/domain/repositories"
)

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *ClientMessage
		wantErr string
	}{
		{
			name:  "listening start with settings",
			input: `{"type":"listening_start","language":"en-US","encoding":"OGG_OPUS","sample_rate":16000}`,
			want: &ClientMessage{
				Type:       MessageTypeListeningStart,
				Language:   "en-US",
				Encoding:   "OGG_OPUS",
				SampleRate: 16000,
			},
		},
		{
			name:  "listening start with defaults",
			input: `{"type":"listening_start"}`,
			want:  &ClientMessage{Type: MessageTypeListeningStart},
		},
		{
			name:  "listening end",
			input: `{"type":"listening_end"}`,
			want:  &ClientMessage{Type: MessageTypeListeningEnd},
		},
		{
			name:    "invalid json",
			input:   `{"type":`,
			wantErr: "invalid JSON format",
		},
		{
			name:    "missing type",
			input:   `{"language":"ka-GE"}`,
			wantErr: "message type is required",
		},
		{
			name:    "unknown type",
			input:   `{"type":"audio_chunk"}`,
			wantErr: "unsupported message type",
		},
		{
			name:    "sample rate out of range",
			input:   `{"type":"listening_start","sample_rate":96000}`,
			wantErr: "sample_rate must be between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClientMessage([]byte(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseClientMessage() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClientMessageAudioConfig(t *testing.T) {
	msg := ClientMessage{Type: MessageTypeListeningStart, Language: "ka-GE", SampleRate: 48000}
	want := repositories.AudioConfig{Language: "ka-GE", SampleRate: 48000}
	if diff := cmp.Diff(want, msg.AudioConfig()); diff != "" {
		t.Errorf("AudioConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestServerMessageJSON(t *testing.T) {
	data, err := json.Marshal(newServerMessage(MessageTypeTranscript, "s-1", "t-1").withText(""))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["type"] != "transcript" || decoded["session_id"] != "s-1" || decoded["turn_id"] != "t-1" {
		t.Errorf("unexpected message %s", data)
	}
	if text, ok := decoded["text"]; !ok || text != "" {
		t.Errorf("expected empty text to be present, got %s", data)
	}

	errMsg := CreateErrorMessage("s-1", "failed")
	if errMsg.Type != MessageTypeError || errMsg.Message != "failed" || errMsg.Timestamp == 0 {
		t.Errorf("unexpected error message %+v", errMsg)
	}
}
