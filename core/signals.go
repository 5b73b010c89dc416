package core

// SignalType categorizes signals exchanged between workers
type SignalType string

const (
	SignalTypeAudio      SignalType = "audio"
	SignalTypeSpeech     SignalType = "speech"
	SignalTypeTranscript SignalType = "transcript"
	SignalTypeText       SignalType = "text"
	SignalTypeLevel      SignalType = "level"
	SignalTypeHotkey     SignalType = "hotkey"
	SignalTypeError      SignalType = "error"
	SignalTypeDone       SignalType = "done"
)

// Signal represents any inter-worker signal
type Signal interface {
	SignalType() SignalType
}

// AudioSignal carries raw captured audio
type AudioSignal struct {
	Data       []byte
	SampleRate int
}

func (s AudioSignal) SignalType() SignalType {
	return SignalTypeAudio
}

// SpeechSignal carries a detected speech segment
type SpeechSignal struct {
	Data       []byte
	SampleRate int
	DurationMs int
}

func (s SpeechSignal) SignalType() SignalType {
	return SignalTypeSpeech
}

// TranscriptSignal carries transcription output
type TranscriptSignal struct {
	Text       string
	IsFinal    bool
	Confidence float64
}

func (s TranscriptSignal) SignalType() SignalType {
	return SignalTypeTranscript
}

// TextSignal carries post-processed text from the LLM worker
type TextSignal struct {
	Delta   string
	Content string
}

func (s TextSignal) SignalType() SignalType {
	return SignalTypeText
}

// LevelSignal carries an audio level sample for the visualizer
type LevelSignal struct {
	Peak float64
	RMS  float64
}

func (s LevelSignal) SignalType() SignalType {
	return SignalTypeLevel
}

// HotkeySignal carries a hotkey press or release
type HotkeySignal struct {
	Combination string
	Pressed     bool
}

func (s HotkeySignal) SignalType() SignalType {
	return SignalTypeHotkey
}

// ErrorSignal carries a worker error
type ErrorSignal struct {
	Err       error
	Retryable bool
}

func (s ErrorSignal) SignalType() SignalType {
	return SignalTypeError
}

// DoneSignal signals that a worker finished its stream of work
type DoneSignal struct{}

func (s DoneSignal) SignalType() SignalType {
	return SignalTypeDone
}
