// Package protocol defines the JSON wire format the visualizer worker
// streams to its WebSocket client.
package protocol

import "time"

// MessageType identifies a wire message
type MessageType string

const (
	MessageTypeLevel      MessageType = "level"
	MessageTypeTranscript MessageType = "transcript"
	MessageTypeText       MessageType = "text"
	MessageTypeHotkey     MessageType = "hotkey"
	MessageTypeError      MessageType = "error"
	MessageTypeDone       MessageType = "done"
)

// Message is the envelope for every wire message
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// LevelPayload carries one audio level sample
type LevelPayload struct {
	Peak float64 `json:"peak"`
	RMS  float64 `json:"rms"`
}

// TranscriptPayload carries a transcription chunk
type TranscriptPayload struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence,omitempty"`
}

// TextPayload carries post-processed text
type TextPayload struct {
	Delta   string `json:"delta"`
	Content string `json:"content"`
}

// HotkeyPayload carries a hotkey press or release
type HotkeyPayload struct {
	Combination string `json:"combination"`
	Pressed     bool   `json:"pressed"`
}

// ErrorPayload carries a worker error
type ErrorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func newMessage(mt MessageType, sessionID string, payload any) *Message {
	return &Message{
		Type:      mt,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}
