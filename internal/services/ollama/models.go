package ollama

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Model describes a locally available model.
type Model struct {
	Name          string
	Size          int64
	ModifiedAt    time.Time
	Family        string
	ParameterSize string
}

// Progress reports pull progress.
type Progress struct {
	Status    string
	Total     int64
	Completed int64
}

// Ping verifies the runtime is reachable.
func (c *Client) Ping(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.api.Heartbeat(callCtx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return classify(callCtx, "", err)
	}
	return nil
}

// ListModels returns the models available to the runtime.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.api.List(callCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classify(callCtx, "", err)
	}
	if resp == nil {
		return nil, newBackendError(ErrMalformedResponse, "", errors.New("empty model list response"))
	}
	models := make([]Model, 0, len(resp.Models))
	for _, m := range resp.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		models = append(models, Model{
			Name:          name,
			Size:          m.Size,
			ModifiedAt:    m.ModifiedAt,
			Family:        m.Details.Family,
			ParameterSize: m.Details.ParameterSize,
		})
	}
	return models, nil
}

// HasModel reports whether name is available locally. A name without a tag
// matches the ":latest" tag.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	want := NormalizeModelName(name)
	for _, m := range models {
		if NormalizeModelName(m.Name) == want {
			return true, nil
		}
	}
	return false, nil
}

// PullModel downloads name, reporting progress through fn when non-nil. Pulls
// are not bounded by the request timeout.
func (c *Client) PullModel(ctx context.Context, name string, fn func(Progress)) error {
	stream := fn != nil
	req := &api.PullRequest{Model: name, Stream: &stream}
	err := c.api.Pull(ctx, req, func(resp api.ProgressResponse) error {
		if fn != nil {
			fn(Progress{Status: resp.Status, Total: resp.Total, Completed: resp.Completed})
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return classify(ctx, name, err)
	}
	return nil
}

// NormalizeModelName lowercases name and appends ":latest" when no tag is present.
func NormalizeModelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return name
	}
	if !strings.Contains(name, ":") {
		name += ":latest"
	}
	return name
}
