package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"

	"github.com/ollama/ollama/api"

	"featuregen/internal/services"
)

// Backend error kinds. Use errors.Is against these to classify a failure.
var (
	ErrServiceUnreachable = errors.New("service unreachable")
	ErrModelNotFound      = errors.New("model not found")
	ErrTimeout            = errors.New("timeout")
	ErrMalformedResponse  = errors.New("malformed response")
)

// BackendError describes a failed backend call.
type BackendError struct {
	Kind  error
	Model string
	Err   error
}

func (e *BackendError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("ollama: %v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ollama: %v (model %q): %v", e.Kind, e.Model, e.Err)
}

// Unwrap exposes the kind sentinel, the matching services marker, and the
// underlying cause.
func (e *BackendError) Unwrap() []error {
	return []error{e.Kind, markerFor(e.Kind), e.Err}
}

// KindName returns a short label for the error kind, suitable for metrics and
// user-facing messages.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrModelNotFound):
		return "ModelNotFound"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrServiceUnreachable):
		return "ServiceUnreachable"
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	default:
		return "Unknown"
	}
}

func markerFor(kind error) error {
	switch kind {
	case ErrModelNotFound:
		return services.ErrNotFound
	case ErrTimeout:
		return services.ErrTimeout
	case ErrServiceUnreachable:
		return services.ErrTransient
	default:
		return services.ErrExternalTool
	}
}

func newBackendError(kind error, model string, err error) *BackendError {
	return &BackendError{Kind: kind, Model: model, Err: err}
}

// classify maps a transport or API failure onto a backend error kind. callCtx
// is the timeout-bounded context of the call.
func classify(callCtx context.Context, model string, err error) error {
	if err == nil {
		return nil
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return newBackendError(kindForStatus(statusErr.StatusCode), model, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return newBackendError(ErrTimeout, model, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newBackendError(ErrTimeout, model, err)
	}

	var opErr *net.OpError
	if errors.Is(err, syscall.ECONNREFUSED) || errors.As(err, &opErr) {
		return newBackendError(ErrServiceUnreachable, model, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return newBackendError(ErrServiceUnreachable, model, err)
	}

	return newBackendError(ErrMalformedResponse, model, err)
}

func kindForStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrModelNotFound
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code >= http.StatusInternalServerError:
		return ErrServiceUnreachable
	default:
		return ErrMalformedResponse
	}
}
