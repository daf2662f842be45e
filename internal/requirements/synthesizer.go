package requirements

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"featuregen/internal/logging"
	"featuregen/internal/prompt"
	"featuregen/internal/services"
	"featuregen/internal/services/ollama"
)

// Backend generates text from a model request.
type Backend interface {
	Generate(ctx context.Context, req ollama.Request) (string, error)
}

// SynthesisError reports a failed text generation call.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("requirements synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Synthesizer drives the text model and maps its output onto a template.
type Synthesizer struct {
	backend Backend
	logger  *slog.Logger
}

// NewSynthesizer constructs a Synthesizer. A nil logger discards output.
func NewSynthesizer(backend Backend, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{backend: backend, logger: logging.NewComponentLogger(logger, "synthesis")}
}

// Synthesize sends p to model and returns the sectioned document.
func (s *Synthesizer) Synthesize(ctx context.Context, p prompt.GenerationPrompt, model string) (Document, error) {
	raw, err := s.generate(ctx, p, model)
	if err != nil {
		return Document{}, err
	}
	return s.assemble(ctx, raw, p), nil
}

// Refine asks model to revise doc according to feedback, keeping the
// document's section contract and title.
func (s *Synthesizer) Refine(ctx context.Context, doc Document, feedback, model string) (Document, error) {
	if strings.TrimSpace(feedback) == "" {
		return Document{}, services.Wrap(services.ErrValidation, "refine", "feedback", "feedback is empty", nil)
	}
	tmpl := doc.ContractTemplate()
	if len(tmpl.Sections) == 0 {
		return Document{}, services.Wrap(services.ErrValidation, "refine", "document", "document has no sections", nil)
	}
	p := prompt.Refinement(tmpl, doc.Markdown(), feedback)
	raw, err := s.generate(ctx, p, model)
	if err != nil {
		return Document{}, err
	}
	refined := s.assemble(ctx, raw, p)
	if doc.Title != "" {
		refined.Title = doc.Title
	}
	return refined, nil
}

func (s *Synthesizer) generate(ctx context.Context, p prompt.GenerationPrompt, model string) (string, error) {
	if s == nil || s.backend == nil {
		return "", &SynthesisError{Err: services.Wrap(services.ErrConfiguration, "synthesis", "backend", "text backend unavailable", nil)}
	}
	raw, err := s.backend.Generate(ctx, ollama.Request{
		Kind:   ollama.KindText,
		Model:  model,
		Prompt: p.User,
		System: p.System,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &SynthesisError{Err: err}
	}
	return raw, nil
}

func (s *Synthesizer) assemble(ctx context.Context, raw string, p prompt.GenerationPrompt) Document {
	logger := logging.WithContext(ctx, s.logger)
	doc, report := ParseSections(raw, p.Template)
	switch {
	case report.Degraded:
		logging.WarnWithContext(logger, "model output had no recognizable sections", "synthesis_degraded",
			logging.Int("response_chars", len(raw)),
			logging.String(logging.FieldImpact, "full response placed in the first section"),
			logging.String(logging.FieldErrorHint, "try a larger text model or a simpler template"),
		)
	case len(report.Missing) > 0:
		logging.WarnWithContext(logger, "model output skipped template sections", "synthesis_missing_sections",
			logging.Any("missing", report.Missing),
			logging.String(logging.FieldImpact, "placeholder text used for skipped sections"),
			logging.String(logging.FieldErrorHint, "refine the document to fill the gaps"),
		)
	}
	if len(report.Extras) > 0 {
		logger.Info("extra sections kept under additional notes", logging.Any("extras", report.Extras))
	}
	logger.Debug("synthesis parsed",
		logging.Int("matched", len(report.Matched)),
		logging.Int("sections", len(doc.Sections)),
	)
	return doc
}
