package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"featuregen/internal/services"
)

const defaultTimeout = 300 * time.Second

// Kind selects the request mode.
type Kind string

const (
	KindVision Kind = "vision"
	KindText   Kind = "text"
)

// Request is a single generation call.
type Request struct {
	Kind   Kind
	Model  string
	Prompt string
	System string
	// Image is the encoded image payload. Required for vision, forbidden for text.
	Image []byte
}

// Config captures the runtime settings required to talk to Ollama.
type Config struct {
	Host    string
	Timeout time.Duration
}

// Client wraps the Ollama HTTP API.
type Client struct {
	host       *url.URL
	timeout    time.Duration
	httpClient *http.Client
	api        *api.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client for the Ollama runtime at cfg.Host.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "http://localhost:11434"
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ollama", "parse host", fmt.Sprintf("invalid host %q", cfg.Host), err)
	}

	client := &Client{
		host:       base,
		timeout:    cfg.Timeout,
		httpClient: http.DefaultClient,
	}
	if client.timeout <= 0 {
		client.timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(client)
	}
	client.api = api.NewClient(client.host, client.httpClient)
	return client, nil
}

// Host returns the base URL of the runtime.
func (c *Client) Host() string {
	return c.host.String()
}

// Generate issues one non-streaming generation request and returns the raw text.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream := false
	payload := &api.GenerateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: &stream,
	}
	if req.Kind == KindVision {
		payload.Images = []api.ImageData{api.ImageData(req.Image)}
	}

	var out strings.Builder
	var done bool
	err := c.api.Generate(callCtx, payload, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		done = done || resp.Done
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", classify(callCtx, req.Model, err)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", newBackendError(ErrMalformedResponse, req.Model, errors.New("response contained no generated text"))
	}
	if !done {
		return "", newBackendError(ErrMalformedResponse, req.Model, errors.New("response ended before completion"))
	}
	return text, nil
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Model) == "" {
		return services.Wrap(services.ErrValidation, "ollama", "generate", "model name required", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return services.Wrap(services.ErrValidation, "ollama", "generate", "prompt required", nil)
	}
	switch req.Kind {
	case KindVision:
		if len(req.Image) == 0 {
			return services.Wrap(services.ErrValidation, "ollama", "generate", "vision request requires exactly one image", nil)
		}
	case KindText:
		if len(req.Image) > 0 {
			return services.Wrap(services.ErrValidation, "ollama", "generate", "text request must not carry an image", nil)
		}
	default:
		return services.Wrap(services.ErrValidation, "ollama", "generate", fmt.Sprintf("unknown request kind %q", req.Kind), nil)
	}
	return nil
}
