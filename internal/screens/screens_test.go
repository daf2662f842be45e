package screens_test

import (
	"errors"
	"strings"
	"testing"

	"featuregen/internal/screens"
	"featuregen/internal/services"
	"featuregen/internal/vision"
)

func screen(ordinal int, name string, labels ...string) vision.ScreenAnalysis {
	s := vision.ScreenAnalysis{Ordinal: ordinal, Name: name, Structured: len(labels) > 0}
	for _, l := range labels {
		s.Components = append(s.Components, vision.Component{Type: "element", Label: l})
	}
	return s
}

func TestAggregateEmptyInput(t *testing.T) {
	_, err := screens.Aggregate(nil)
	if !errors.Is(err, screens.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestAggregateOrdersByOrdinal(t *testing.T) {
	// Completion order differs from input order.
	input := []vision.ScreenAnalysis{
		screen(2, "c.png", "x"),
		screen(0, "a.png", "x"),
		screen(1, "b.png", "x"),
	}
	merged, err := screens.Aggregate(input)
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	for i, s := range merged.Screens {
		if s.Ordinal != i {
			t.Fatalf("screen %d has ordinal %d", i, s.Ordinal)
		}
	}
	if input[0].Ordinal != 2 {
		t.Fatal("Aggregate must not reorder the caller's slice")
	}
}

func TestAggregateSharedComponentsAndFlowNotes(t *testing.T) {
	merged, err := screens.Aggregate([]vision.ScreenAnalysis{
		screen(0, "login.png", "Logo", "Email field", "Submit button"),
		screen(1, "dashboard.png", "logo", "Sidebar nav", "Chart widget"),
	})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if len(merged.SharedComponents) != 1 || merged.SharedComponents[0] != "Logo" {
		t.Fatalf("unexpected shared components %v", merged.SharedComponents)
	}
	if len(merged.FlowNotes) != 1 {
		t.Fatalf("expected one flow note, got %v", merged.FlowNotes)
	}
	note := merged.FlowNotes[0]
	if !strings.Contains(note, "removed/transitioned: Email field, Submit button") {
		t.Fatalf("missing removed components in %q", note)
	}
	if !strings.Contains(note, "introduced: Sidebar nav, Chart widget") {
		t.Fatalf("missing introduced components in %q", note)
	}
}

func TestAggregateSingleScreenHasNoCrossScreenNotes(t *testing.T) {
	merged, err := screens.Aggregate([]vision.ScreenAnalysis{screen(0, "only.png", "Button")})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if len(merged.Screens) != 1 || merged.SharedComponents != nil || merged.FlowNotes != nil {
		t.Fatalf("unexpected merged analysis %+v", merged)
	}
}

func TestAggregateUnstructuredScreenSkipsComparison(t *testing.T) {
	merged, err := screens.Aggregate([]vision.ScreenAnalysis{
		screen(0, "a.png", "Button"),
		{Ordinal: 1, Name: "b.png", RawDescription: "free text"},
	})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if len(merged.FlowNotes) != 1 || !strings.Contains(merged.FlowNotes[0], "not compared") {
		t.Fatalf("unexpected flow notes %v", merged.FlowNotes)
	}
}
