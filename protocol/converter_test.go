package protocol

import (
	"errors"
	"testing"

	"github.com/creastat/orchestrator/core"
)

func TestSignalToMessage(t *testing.T) {
	tests := []struct {
		name   string
		signal core.Signal
		want   MessageType
	}{
		{"level", core.LevelSignal{Peak: 0.9, RMS: 0.5}, MessageTypeLevel},
		{"transcript", core.TranscriptSignal{Text: "hi", IsFinal: true}, MessageTypeTranscript},
		{"text", core.TextSignal{Delta: "a", Content: "a"}, MessageTypeText},
		{"hotkey", core.HotkeySignal{Combination: "ctrl+shift+space", Pressed: true}, MessageTypeHotkey},
		{"error", core.ErrorSignal{Err: errors.New("boom"), Retryable: true}, MessageTypeError},
		{"done", core.DoneSignal{}, MessageTypeDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := SignalToMessage(tt.signal, "s1")
			if msg == nil {
				t.Fatal("expected a message")
			}
			if msg.Type != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, msg.Type)
			}
			if msg.SessionID != "s1" {
				t.Fatalf("session id not carried: %+v", msg)
			}
			if msg.Timestamp == 0 {
				t.Fatal("timestamp not set")
			}
		})
	}
}

func TestSignalToMessageSkipsBinarySignals(t *testing.T) {
	if msg := SignalToMessage(core.AudioSignal{Data: []byte{1}}, "s1"); msg != nil {
		t.Fatalf("audio has no wire form, got %s", msg.Type)
	}
	if msg := SignalToMessage(core.SpeechSignal{Data: []byte{1}}, "s1"); msg != nil {
		t.Fatalf("speech has no wire form, got %s", msg.Type)
	}
}

func TestErrorPayloadMessage(t *testing.T) {
	msg := SignalToMessage(core.ErrorSignal{Err: errors.New("backend gone"), Retryable: false}, "")
	payload, ok := msg.Payload.(ErrorPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", msg.Payload)
	}
	if payload.Message != "backend gone" || payload.Retryable {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
