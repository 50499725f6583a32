package transport

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestMessage_ParseAudioContent(t *testing.T) {
	// "AAD/fw==" is base64 for samples [0, 32767] little-endian
	raw := `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AAD/fw=="}}]}}}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if msg.ServerContent == nil || msg.ServerContent.ModelTurn == nil {
		t.Fatal("Expected serverContent.modelTurn to be set")
	}
	parts := msg.ServerContent.ModelTurn.Parts
	if len(parts) != 1 || parts[0].InlineData == nil {
		t.Fatalf("Expected one part with inlineData, got %+v", parts)
	}

	data := parts[0].InlineData.Data
	expected := []byte{0x00, 0x00, 0xFF, 0x7F}
	if len(data) != len(expected) {
		t.Fatalf("Expected %d decoded bytes, got %d", len(expected), len(data))
	}
	for i := range expected {
		if data[i] != expected[i] {
			t.Errorf("Byte %d: expected %02x, got %02x", i, expected[i], data[i])
		}
	}
}

func TestMessage_ParseTranscriptions(t *testing.T) {
	raw := `{"serverContent":{"inputTranscription":{"text":"hello"},"outputTranscription":{"text":" world"}}}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if msg.ServerContent.InputTranscription == nil || msg.ServerContent.InputTranscription.Text != "hello" {
		t.Errorf("Unexpected input transcription: %+v", msg.ServerContent.InputTranscription)
	}
	if msg.ServerContent.OutputTranscription == nil || msg.ServerContent.OutputTranscription.Text != " world" {
		t.Errorf("Unexpected output transcription: %+v", msg.ServerContent.OutputTranscription)
	}
}

func TestMessage_ParseGoAway(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"goAway":{"timeLeft":"10s"}}`), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.GoAway == nil || msg.GoAway.TimeLeft != "10s" {
		t.Errorf("Unexpected goAway: %+v", msg.GoAway)
	}
}

func TestRealtimeInput_MarshalsBase64(t *testing.T) {
	msg := realtimeInputMessage{RealtimeInput: &realtimeInput{Media: &Blob{
		MIMEType: MIMETypePCM16k,
		Data:     []byte{0x01, 0x00, 0x02, 0x00},
	}}}

	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, `"mimeType":"audio/pcm;rate=16000"`) {
		t.Errorf("Expected mimeType field, got %s", s)
	}
	// encoding/json base64-encodes []byte
	if !strings.Contains(s, `"data":"AQACAA=="`) {
		t.Errorf("Expected base64 data field, got %s", s)
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &Error{Op: "read", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("Expected errors.Is to find wrapped error")
	}
	if !strings.Contains(err.Error(), "read") || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("Unexpected error string: %s", err.Error())
	}
}

func TestDescribeMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		want string
	}{
		{"nil", nil, "nil"},
		{"setup", &Message{SetupComplete: &struct{}{}}, "setupComplete"},
		{"content", &Message{ServerContent: &ServerContent{}}, "serverContent"},
		{"goaway", &Message{GoAway: &GoAway{}}, "goAway"},
		{"empty", &Message{}, "unknown"},
	}

	for _, tt := range tests {
		if got := describeMessage(tt.msg); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
