package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"featuregen/internal/frames"
	"featuregen/internal/pipeline"
	"featuregen/internal/screens"
)

func TestCollectInputsValidation(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "a.png")
	if err := os.WriteFile(image, []byte("not really a png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	extractor := frames.NewExtractor(0)

	cases := map[string][]string{
		"empty":       nil,
		"mixed video": {image, filepath.Join(dir, "demo.mp4")},
		"unsupported": {filepath.Join(dir, "notes.txt")},
	}
	for name, paths := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := pipeline.CollectInputs(context.Background(), paths, extractor); !errors.Is(err, screens.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
