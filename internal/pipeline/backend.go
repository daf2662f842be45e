package pipeline

import (
	"context"
	"time"

	"featuregen/internal/metrics"
	"featuregen/internal/services/ollama"
)

// Backend generates text from a model request. *ollama.Client satisfies it.
type Backend interface {
	Generate(ctx context.Context, req ollama.Request) (string, error)
}

// instrumentedBackend records call counts and latency per request kind.
type instrumentedBackend struct {
	next     Backend
	recorder *metrics.Recorder
}

func instrument(next Backend, recorder *metrics.Recorder) Backend {
	if recorder == nil {
		return next
	}
	return &instrumentedBackend{next: next, recorder: recorder}
}

func (b *instrumentedBackend) Generate(ctx context.Context, req ollama.Request) (string, error) {
	start := time.Now()
	out, err := b.next.Generate(ctx, req)
	result := "ok"
	if err != nil {
		result = ollama.KindName(err)
	}
	b.recorder.ObserveBackend(string(req.Kind), result, time.Since(start))
	return out, err
}
