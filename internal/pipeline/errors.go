package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"featuregen/internal/services/ollama"
)

// Stage names.
const (
	StageInput         = "input"
	StageVision        = "vision"
	StageAggregation   = "aggregation"
	StageSynthesis     = "synthesis"
	StageRefine        = "refine"
	StageSerialization = "serialization"
)

// StageError reports which stage failed, for which image, and why.
type StageError struct {
	Stage string
	// Ordinal is the 0-based image position, or -1 for whole-run stages.
	Ordinal int
	Name    string
	Model   string
	// Kind is the backend error kind name, empty for non-backend failures.
	Kind string
	Err  error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s stage failed", e.Stage)
	if e.Ordinal >= 0 {
		fmt.Fprintf(&b, " on image %d", e.Ordinal+1)
		if e.Name != "" {
			fmt.Fprintf(&b, " (%s)", e.Name)
		}
	}
	if e.Kind != "" && e.Kind != "Unknown" {
		fmt.Fprintf(&b, ": %s", e.Kind)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if hint := e.Hint(); hint != "" {
		fmt.Fprintf(&b, " (%s)", hint)
	}
	return b.String()
}

func (e *StageError) Unwrap() error { return e.Err }

// Hint suggests a fix for well-understood failures.
func (e *StageError) Hint() string {
	switch {
	case errors.Is(e.Err, ollama.ErrModelNotFound) && e.Model != "":
		return fmt.Sprintf("run `ollama pull %s`", e.Model)
	case errors.Is(e.Err, ollama.ErrServiceUnreachable):
		return "start the Ollama service with `ollama serve`"
	case errors.Is(e.Err, ollama.ErrTimeout):
		return "raise ollama.timeout_seconds or use a smaller model"
	default:
		return ""
	}
}

func newStageError(stage string, ordinal int, name, model string, err error) *StageError {
	kind := ""
	var backendErr *ollama.BackendError
	if errors.As(err, &backendErr) {
		kind = ollama.KindName(err)
	}
	return &StageError{Stage: stage, Ordinal: ordinal, Name: name, Model: model, Kind: kind, Err: err}
}
