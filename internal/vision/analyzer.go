package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"featuregen/internal/imagefile"
	"featuregen/internal/logging"
	"featuregen/internal/services/ollama"
)

// Instruction is the fixed prompt sent with every image.
const Instruction = `Analyze this UI mockup or wireframe image in detail. Extract the following information:

1. **UI Components**: List all visible UI elements (buttons, forms, navigation bars, cards, etc.)
2. **Layout Structure**: Describe the overall layout and hierarchy (header, main content, footer, sidebars, etc.)
3. **Text Content**: Extract all visible text, labels, and headings
4. **User Interactions**: Identify interactive elements and potential user actions
5. **Visual Style**: Note any styling patterns (colors, spacing, typography hints)
6. **Data Elements**: Identify areas that would need dynamic data (lists, tables, user profiles, etc.)

Use one heading per category and one "- " bullet per item.
For components write "- <Type>: <Label> (<position>)".
If this is a hand-drawn sketch, interpret it as best as possible.`

// Backend generates text from a model request.
type Backend interface {
	Generate(ctx context.Context, req ollama.Request) (string, error)
}

// AnalysisError reports a failed analysis of one image.
type AnalysisError struct {
	Ordinal int
	Name    string
	Err     error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("vision analysis of image %d (%s): %v", e.Ordinal+1, e.Name, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxImageSide bounds the long edge of payloads sent to the backend.
func WithMaxImageSide(pixels int) Option {
	return func(a *Analyzer) {
		a.maxImageSide = pixels
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Analyzer produces ScreenAnalysis values from images.
type Analyzer struct {
	backend      Backend
	maxImageSide int
	logger       *slog.Logger
}

// NewAnalyzer constructs an Analyzer around backend.
func NewAnalyzer(backend Backend, opts ...Option) *Analyzer {
	a := &Analyzer{backend: backend, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "vision")
	return a
}

// Analyze sends in to the vision model and parses the response. Odd response
// formatting never fails the call; only backend and payload errors do.
func (a *Analyzer) Analyze(ctx context.Context, in imagefile.Input, model string) (ScreenAnalysis, error) {
	logger := logging.WithContext(ctx, a.logger)

	payload, err := imagefile.Prepare(in, a.maxImageSide)
	if err != nil {
		return ScreenAnalysis{}, &AnalysisError{Ordinal: in.Ordinal, Name: in.Name, Err: err}
	}

	raw, err := a.backend.Generate(ctx, ollama.Request{
		Kind:   ollama.KindVision,
		Model:  model,
		Prompt: Instruction,
		Image:  payload.Data,
	})
	if err != nil {
		return ScreenAnalysis{}, &AnalysisError{Ordinal: in.Ordinal, Name: in.Name, Err: err}
	}

	analysis := FromResponse(in, model, raw)
	if !analysis.Structured {
		logging.WarnWithContext(logger, "vision response not structured; keeping raw description", "vision_unstructured",
			logging.String("image_name", in.Name),
			logging.Int("response_chars", len(raw)),
			logging.String(logging.FieldImpact, "screen described by free text only"),
			logging.String(logging.FieldErrorHint, "try a different vision model if this repeats"),
		)
	} else {
		logger.Debug("vision analysis parsed",
			logging.String("image_name", in.Name),
			logging.Int("components", len(analysis.Components)),
		)
	}
	return analysis, nil
}

// FromResponse builds a ScreenAnalysis for in from a raw model response.
func FromResponse(in imagefile.Input, model, raw string) ScreenAnalysis {
	analysis := ScreenAnalysis{
		Ordinal:        in.Ordinal,
		Name:           in.Name,
		Model:          model,
		Timestamp:      in.Timestamp,
		RawDescription: raw,
	}
	result := Parse(raw)
	switch result.Kind {
	case Parsed:
		analysis.Structured = true
		analysis.Components = result.Sections.Components
		analysis.Layout = result.Sections.Layout
		analysis.TextContent = result.Sections.TextContent
		analysis.Interactions = result.Sections.Interactions
		analysis.Styling = result.Sections.Styling
		analysis.DataElements = result.Sections.DataElements
	case Unstructured:
		analysis.RawDescription = result.Raw
	}
	return analysis
}

// Summary returns a one-line description of the analysis for logs and tables.
func (s ScreenAnalysis) Summary() string {
	if !s.Structured {
		return "unstructured description"
	}
	labels := s.ComponentLabels()
	if len(labels) > 4 {
		labels = append(labels[:4:4], fmt.Sprintf("+%d more", len(s.Components)-4))
	}
	return strings.Join(labels, ", ")
}
