package workers

import (
	"context"
	"sync"
	"testing"

	"github.com/creastat/orchestrator/core"
	providers "github.com/creastat/providers/core"
)

// TestStreamingLLMProvider streams a fixed response word by word
type TestStreamingLLMProvider struct {
	responseText string

	mu      sync.Mutex
	streams int
	lastReq providers.ChatRequest
}

func (m *TestStreamingLLMProvider) Name() string                 { return "test-streaming-llm" }
func (m *TestStreamingLLMProvider) Type() providers.ProviderType { return "test" }
func (m *TestStreamingLLMProvider) Initialize(ctx context.Context, config providers.ProviderConfig) error {
	return nil
}
func (m *TestStreamingLLMProvider) Close() error                          { return nil }
func (m *TestStreamingLLMProvider) HealthCheck(ctx context.Context) error { return nil }
func (m *TestStreamingLLMProvider) Capabilities() []providers.Capability {
	return []providers.Capability{providers.CapabilityLLM}
}
func (m *TestStreamingLLMProvider) SupportsCapability(capability providers.Capability) bool {
	return capability == providers.CapabilityLLM
}
func (m *TestStreamingLLMProvider) ChatCompletion(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	return nil, nil
}
func (m *TestStreamingLLMProvider) StreamChatCompletion(ctx context.Context, req providers.ChatRequest) (providers.ChatStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams++
	m.lastReq = req
	return &TestChatStream{responseText: m.responseText}, nil
}

// TestChatStream splits the response into word chunks
type TestChatStream struct {
	responseText string
	offset       int
}

func (s *TestChatStream) Receive(ctx context.Context) (*providers.ChatChunk, error) {
	if s.offset >= len(s.responseText) {
		return &providers.ChatChunk{Done: true}, nil
	}
	end := s.offset + 4
	if end > len(s.responseText) {
		end = len(s.responseText)
	}
	chunk := s.responseText[s.offset:end]
	s.offset = end
	return &providers.ChatChunk{Content: chunk}, nil
}

func (s *TestChatStream) Close() error { return nil }

func runLLM(t *testing.T, worker *LLMWorker, inputs []core.Signal) []core.Signal {
	t.Helper()
	input := make(chan core.Signal, len(inputs))
	for _, signal := range inputs {
		input <- signal
	}
	close(input)

	output := make(chan core.Signal, 64)
	if err := worker.Run(context.Background(), input, output); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	close(output)

	var signals []core.Signal
	for signal := range output {
		signals = append(signals, signal)
	}
	return signals
}

func TestLLMPostProcessesFinalTranscripts(t *testing.T) {
	provider := &TestStreamingLLMProvider{responseText: "Hello, world."}
	worker := NewLLMWorker(LLMConfig{
		Provider:  provider,
		ModelName: "llama-3b",
		Logger:    testLogger(),
	})

	signals := runLLM(t, worker, []core.Signal{
		core.TranscriptSignal{Text: "hello", IsFinal: false},
		core.TranscriptSignal{Text: "hello world", IsFinal: true, Confidence: 0.9},
	})

	var texts []core.TextSignal
	for _, signal := range signals {
		if ts, ok := signal.(core.TextSignal); ok {
			texts = append(texts, ts)
		}
	}

	if len(texts) == 0 {
		t.Fatal("no text signals emitted")
	}
	final := texts[len(texts)-1]
	if final.Content != "Hello, world." {
		t.Fatalf("unexpected accumulated content: %q", final.Content)
	}

	// Interim transcripts never trigger a completion
	if provider.streams != 1 {
		t.Fatalf("expected 1 completion, got %d", provider.streams)
	}

	// System prompt first, transcript as the user message
	if len(provider.lastReq.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(provider.lastReq.Messages))
	}
	if provider.lastReq.Messages[0].Role != "system" {
		t.Fatalf("first message should be the system prompt, got %s", provider.lastReq.Messages[0].Role)
	}
	if provider.lastReq.Messages[1].Content != "hello world" {
		t.Fatalf("transcript not passed as user message: %q", provider.lastReq.Messages[1].Content)
	}
	if provider.lastReq.Model != "llama-3b" {
		t.Fatalf("model not passed: %q", provider.lastReq.Model)
	}
}

func TestLLMIgnoresEmptyTranscripts(t *testing.T) {
	provider := &TestStreamingLLMProvider{responseText: "unused"}
	worker := NewLLMWorker(LLMConfig{Provider: provider, ModelName: "llama-3b", Logger: testLogger()})

	runLLM(t, worker, []core.Signal{
		core.TranscriptSignal{Text: "   ", IsFinal: true},
		core.TranscriptSignal{Text: "", IsFinal: true},
	})

	if provider.streams != 0 {
		t.Fatalf("blank transcripts must not reach the provider, got %d streams", provider.streams)
	}
}
