package protocol

import "github.com/creastat/orchestrator/core"

// SignalToMessage converts a worker signal to its wire message. Returns nil
// for signal types that have no wire representation, such as raw audio.
func SignalToMessage(signal core.Signal, sessionID string) *Message {
	switch s := signal.(type) {
	case core.LevelSignal:
		return newMessage(MessageTypeLevel, sessionID, LevelPayload{
			Peak: s.Peak,
			RMS:  s.RMS,
		})

	case core.TranscriptSignal:
		return newMessage(MessageTypeTranscript, sessionID, TranscriptPayload{
			Text:       s.Text,
			IsFinal:    s.IsFinal,
			Confidence: s.Confidence,
		})

	case core.TextSignal:
		return newMessage(MessageTypeText, sessionID, TextPayload{
			Delta:   s.Delta,
			Content: s.Content,
		})

	case core.HotkeySignal:
		return newMessage(MessageTypeHotkey, sessionID, HotkeyPayload{
			Combination: s.Combination,
			Pressed:     s.Pressed,
		})

	case core.ErrorSignal:
		payload := ErrorPayload{Retryable: s.Retryable}
		if s.Err != nil {
			payload.Message = s.Err.Error()
		}
		return newMessage(MessageTypeError, sessionID, payload)

	case core.DoneSignal:
		return newMessage(MessageTypeDone, sessionID, nil)

	default:
		return nil
	}
}
