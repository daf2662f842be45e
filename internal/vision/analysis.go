// Package vision turns a single UI image into a ScreenAnalysis using a vision
// model. Parsing of the model's free text is best effort: when too few
// components are recognised the text is kept verbatim and the analysis is
// marked unstructured instead of failing.
package vision

import (
	"fmt"
	"time"
)

// Component is one UI element detected on a screen.
type Component struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	Region string `json:"region,omitempty"`
}

// ScreenAnalysis describes one analysed image. It is never mutated after
// creation.
type ScreenAnalysis struct {
	Ordinal   int            `json:"ordinal"`
	Name      string         `json:"name"`
	Model     string         `json:"model"`
	Timestamp *time.Duration `json:"timestamp,omitempty"`

	Components   []Component `json:"components,omitempty"`
	Layout       []string    `json:"layout,omitempty"`
	TextContent  []string    `json:"text_content,omitempty"`
	Interactions []string    `json:"interactions,omitempty"`
	Styling      []string    `json:"styling,omitempty"`
	DataElements []string    `json:"data_elements,omitempty"`

	// RawDescription is the model response exactly as received.
	RawDescription string `json:"raw_description"`
	// Structured is false when the response could not be parsed into
	// categories and only RawDescription is meaningful.
	Structured bool `json:"structured"`
}

// Number returns the 1-based screen number.
func (s ScreenAnalysis) Number() int {
	return s.Ordinal + 1
}

// Title returns a short label for the screen.
func (s ScreenAnalysis) Title() string {
	if s.Timestamp != nil {
		return fmt.Sprintf("Screen %d (%s @ %s)", s.Number(), s.Name, s.Timestamp.Round(time.Second))
	}
	if s.Name == "" {
		return fmt.Sprintf("Screen %d", s.Number())
	}
	return fmt.Sprintf("Screen %d (%s)", s.Number(), s.Name)
}

// ComponentLabels returns the component labels in detection order.
func (s ScreenAnalysis) ComponentLabels() []string {
	labels := make([]string, 0, len(s.Components))
	for _, c := range s.Components {
		labels = append(labels, c.Label)
	}
	return labels
}
