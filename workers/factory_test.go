package workers

import (
	"testing"

	"github.com/creastat/orchestrator/core"
)

func TestFactoryCreatesAllWorkerTypes(t *testing.T) {
	factory := NewFactory(FactoryConfig{
		STT:    &TestStreamingSTTProvider{},
		LLM:    &TestStreamingLLMProvider{},
		Logger: testLogger(),
	})

	vad, err := factory.CreateVADWorker()
	if err != nil || vad.Type() != core.WorkerTypeVAD {
		t.Fatalf("CreateVADWorker: %v %v", vad, err)
	}

	transcriber, err := factory.CreateModelWorker("whisper-base", "int8")
	if err != nil || transcriber.Type() != core.WorkerTypeTranscriber {
		t.Fatalf("CreateModelWorker: %v %v", transcriber, err)
	}

	llm, err := factory.CreateLLMWorker("llama-3b", "q4")
	if err != nil || llm.Type() != core.WorkerTypeLLM {
		t.Fatalf("CreateLLMWorker: %v %v", llm, err)
	}

	listener, err := factory.CreateListenerWorker()
	if err != nil || listener.Type() != core.WorkerTypeListener {
		t.Fatalf("CreateListenerWorker: %v %v", listener, err)
	}
}

func TestFactoryRequiresProviders(t *testing.T) {
	factory := NewFactory(FactoryConfig{Logger: testLogger()})

	if _, err := factory.CreateModelWorker("whisper-base", "int8"); err == nil {
		t.Fatal("transcriber without an STT provider should fail")
	}
	if _, err := factory.CreateLLMWorker("llama-3b", "q4"); err == nil {
		t.Fatal("llm worker without an LLM provider should fail")
	}
	if _, err := factory.CreateVisualizerWorker(); err == nil {
		t.Fatal("visualizer without a connection should fail")
	}
}
