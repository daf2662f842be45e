package services_test

import (
	"context"
	"testing"

	"featuregen/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "vision")
	ctx = services.WithImage(ctx, 2)
	ctx = services.WithTemplate(ctx, "web_app")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "vision" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if n, ok := services.ImageFromContext(ctx); !ok || n != 2 {
		t.Fatalf("unexpected image: %v %v", n, ok)
	}
	if key, ok := services.TemplateFromContext(ctx); !ok || key != "web_app" {
		t.Fatalf("unexpected template: %v %v", key, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithImage(ctx, 0)
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.ImageFromContext(ctx); ok {
		t.Fatal("expected no image value")
	}
}
