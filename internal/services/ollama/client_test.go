package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"featuregen/internal/services"
	"featuregen/internal/services/ollama"
)

func newTestClient(t *testing.T, server *httptest.Server, timeout time.Duration) *ollama.Client {
	t.Helper()
	client, err := ollama.NewClient(ollama.Config{Host: server.URL, Timeout: timeout}, ollama.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestGenerateVisionSendsImage(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"model":"llava","response":"Components:\n- Button: Submit","done":true}` + "\n"))
	}))
	defer server.Close()

	client := newTestClient(t, server, time.Second)
	text, err := client.Generate(context.Background(), ollama.Request{
		Kind:   ollama.KindVision,
		Model:  "llava",
		Prompt: "describe",
		Image:  []byte{0x89, 'P', 'N', 'G'},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "Components:\n- Button: Submit" {
		t.Fatalf("unexpected text %q", text)
	}
	images, ok := captured["images"].([]any)
	if !ok || len(images) != 1 {
		t.Fatalf("expected one image in request, got %v", captured["images"])
	}
	if captured["stream"] != false {
		t.Fatalf("expected stream=false, got %v", captured["stream"])
	}
}

func TestGenerateValidatesBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()
	client := newTestClient(t, server, time.Second)

	cases := map[string]ollama.Request{
		"vision without image": {Kind: ollama.KindVision, Model: "llava", Prompt: "p"},
		"text with image":      {Kind: ollama.KindText, Model: "llama3", Prompt: "p", Image: []byte{1}},
		"missing model":        {Kind: ollama.KindText, Prompt: "p"},
		"unknown kind":         {Kind: "audio", Model: "m", Prompt: "p"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := client.Generate(context.Background(), req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no backend calls, got %d", calls.Load())
	}
}

func TestGenerateClassifiesModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llava\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server, time.Second).Generate(context.Background(), ollama.Request{
		Kind: ollama.KindText, Model: "llava", Prompt: "hi",
	})
	if !errors.Is(err, ollama.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	var backendErr *ollama.BackendError
	if !errors.As(err, &backendErr) || backendErr.Model != "llava" {
		t.Fatalf("expected BackendError for llava, got %#v", err)
	}
	if services.IsRetryable(err) {
		t.Fatal("model not found must not be retryable")
	}
}

func TestGenerateClassifiesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	_, err := newTestClient(t, server, 50*time.Millisecond).Generate(context.Background(), ollama.Request{
		Kind: ollama.KindText, Model: "llama3", Prompt: "hi",
	})
	if !errors.Is(err, ollama.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatal("timeout should be retryable")
	}
}

func TestGenerateClassifiesUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := ollama.NewClient(ollama.Config{Host: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = client.Generate(context.Background(), ollama.Request{Kind: ollama.KindText, Model: "llama3", Prompt: "hi"})
	if !errors.Is(err, ollama.ErrServiceUnreachable) {
		t.Fatalf("expected ErrServiceUnreachable, got %v", err)
	}
	if got := ollama.KindName(err); got != "ServiceUnreachable" {
		t.Fatalf("unexpected kind name %q", got)
	}
}

func TestGenerateClassifiesMalformedResponse(t *testing.T) {
	cases := map[string]string{
		"not json":      "this is not json\n",
		"empty payload": `{"model":"llama3","response":"","done":true}` + "\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()
			_, err := newTestClient(t, server, time.Second).Generate(context.Background(), ollama.Request{
				Kind: ollama.KindText, Model: "llama3", Prompt: "hi",
			})
			if !errors.Is(err, ollama.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestGenerateReturnsCallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := newTestClient(t, server, 5*time.Second).Generate(ctx, ollama.Request{Kind: ollama.KindText, Model: "m", Prompt: "p"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var backendErr *ollama.BackendError
	if errors.As(err, &backendErr) {
		t.Fatalf("cancellation should not be classified as a backend error: %v", err)
	}
}
