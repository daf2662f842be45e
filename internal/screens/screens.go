// Package screens merges per-image analyses into one multi-screen view.
package screens

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"featuregen/internal/services"
	"featuregen/internal/vision"
)

// ErrInvalidInput is returned when there is nothing to aggregate.
var ErrInvalidInput = errors.New("invalid input")

// MergedAnalysis is the ordered set of screens for one run plus derived
// cross-screen notes. FlowNotes are heuristic hints, not facts.
type MergedAnalysis struct {
	Screens          []vision.ScreenAnalysis `json:"screens"`
	SharedComponents []string                `json:"shared_components,omitempty"`
	FlowNotes        []string                `json:"flow_notes,omitempty"`
}

// Aggregate orders analyses by ordinal and derives shared components and flow
// notes. The input slice is not modified.
func Aggregate(analyses []vision.ScreenAnalysis) (MergedAnalysis, error) {
	if len(analyses) == 0 {
		return MergedAnalysis{}, services.Wrap(services.ErrValidation, "aggregation", "aggregate", "at least one screen analysis is required", ErrInvalidInput)
	}

	ordered := append([]vision.ScreenAnalysis(nil), analyses...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Ordinal < ordered[j].Ordinal
	})

	merged := MergedAnalysis{Screens: ordered}
	if len(ordered) < 2 {
		return merged, nil
	}
	merged.SharedComponents = sharedComponents(ordered)
	merged.FlowNotes = flowNotes(ordered)
	return merged, nil
}

type componentSet struct {
	keys   []string
	labels map[string]string
}

func newComponentSet(s vision.ScreenAnalysis) componentSet {
	set := componentSet{labels: make(map[string]string, len(s.Components))}
	for _, c := range s.Components {
		key := componentKey(c.Label)
		if key == "" {
			continue
		}
		if _, seen := set.labels[key]; seen {
			continue
		}
		set.keys = append(set.keys, key)
		set.labels[key] = strings.TrimSpace(c.Label)
	}
	return set
}

func (c componentSet) has(key string) bool {
	_, ok := c.labels[key]
	return ok
}

func componentKey(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

// sharedComponents lists labels present on every structured screen, in the
// order of the first structured screen. Unstructured screens carry no
// component inventory and are skipped.
func sharedComponents(screens []vision.ScreenAnalysis) []string {
	var sets []componentSet
	for _, s := range screens {
		if s.Structured {
			sets = append(sets, newComponentSet(s))
		}
	}
	if len(sets) < 2 {
		return nil
	}
	var shared []string
	for _, key := range sets[0].keys {
		everywhere := true
		for _, other := range sets[1:] {
			if !other.has(key) {
				everywhere = false
				break
			}
		}
		if everywhere {
			shared = append(shared, sets[0].labels[key])
		}
	}
	return shared
}

func flowNotes(screens []vision.ScreenAnalysis) []string {
	var notes []string
	for i := 0; i+1 < len(screens); i++ {
		from, to := screens[i], screens[i+1]
		if !from.Structured || !to.Structured {
			notes = append(notes, fmt.Sprintf("%s -> %s: transition not compared (free-text description)", from.Title(), to.Title()))
			continue
		}
		fromSet, toSet := newComponentSet(from), newComponentSet(to)

		var removed, introduced []string
		for _, key := range fromSet.keys {
			if !toSet.has(key) {
				removed = append(removed, fromSet.labels[key])
			}
		}
		for _, key := range toSet.keys {
			if !fromSet.has(key) {
				introduced = append(introduced, toSet.labels[key])
			}
		}
		if len(removed) == 0 && len(introduced) == 0 {
			notes = append(notes, fmt.Sprintf("%s -> %s: same components, likely a state change", from.Title(), to.Title()))
			continue
		}
		parts := make([]string, 0, 2)
		if len(removed) > 0 {
			parts = append(parts, "removed/transitioned: "+strings.Join(removed, ", "))
		}
		if len(introduced) > 0 {
			parts = append(parts, "introduced: "+strings.Join(introduced, ", "))
		}
		notes = append(notes, fmt.Sprintf("%s -> %s: %s", from.Title(), to.Title(), strings.Join(parts, "; ")))
	}
	return notes
}
