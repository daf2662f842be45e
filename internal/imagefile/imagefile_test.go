package imagefile_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"featuregen/internal/imagefile"
	"featuregen/internal/services"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestLoadAllAssignsOrdinals(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "login.png"), filepath.Join(dir, "dashboard.png")}
	for _, p := range paths {
		if err := os.WriteFile(p, encodePNG(t, 4, 4), 0o644); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	inputs, err := imagefile.LoadAll(paths)
	if err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(inputs))
	}
	if inputs[1].Ordinal != 1 || inputs[1].Number() != 2 || inputs[1].Name != "dashboard.png" {
		t.Fatalf("unexpected second input %+v", inputs[1])
	}
	if inputs[0].MIMEType != "image/png" {
		t.Fatalf("unexpected mime %q", inputs[0].MIMEType)
	}
}

func TestLoadRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.png")
	if err := os.WriteFile(path, []byte("just some text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := imagefile.Load(path, 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPreparePassesSmallPNGThrough(t *testing.T) {
	data := encodePNG(t, 10, 10)
	in, err := imagefile.FromBytes("a.png", "", data, 0)
	if err != nil {
		t.Fatalf("FromBytes returned error: %v", err)
	}
	out, err := imagefile.Prepare(in, 2048)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if !bytes.Equal(out.Data, data) {
		t.Fatal("expected payload to be unchanged")
	}
}

func TestPrepareDownscalesOversizeImage(t *testing.T) {
	in, err := imagefile.FromBytes("big.png", "", encodePNG(t, 400, 100), 0)
	if err != nil {
		t.Fatalf("FromBytes returned error: %v", err)
	}
	out, err := imagefile.Prepare(in, 200)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode prepared image: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 50 {
		t.Fatalf("expected 200x50, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPrepareConvertsGIFToPNG(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 8, 8), []color.Color{color.White, color.Black})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	in, err := imagefile.FromFrame("frame-0001.gif", buf.Bytes(), 3, 15*time.Second)
	if err != nil {
		t.Fatalf("FromFrame returned error: %v", err)
	}
	out, err := imagefile.Prepare(in, 0)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if out.MIMEType != "image/png" {
		t.Fatalf("expected png, got %s", out.MIMEType)
	}
	if out.Timestamp == nil || *out.Timestamp != 15*time.Second || out.Ordinal != 3 {
		t.Fatalf("expected frame metadata preserved, got %+v", out)
	}
	if in.MIMEType != "image/gif" {
		t.Fatal("Prepare must not mutate the original input")
	}
}
