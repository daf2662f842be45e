// Package frames samples still frames from screen-recording videos with ffmpeg.
package frames

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"featuregen/internal/imagefile"
	"featuregen/internal/services"
)

var commandContext = exec.CommandContext

const defaultInterval = 5 * time.Second

// Option configures an Extractor.
type Option func(*Extractor)

// WithBinary overrides the ffmpeg executable.
func WithBinary(binary string) Option {
	return func(e *Extractor) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// WithMaxFrames caps the number of frames returned. Zero means no cap.
func WithMaxFrames(limit int) Option {
	return func(e *Extractor) {
		if limit >= 0 {
			e.maxFrames = limit
		}
	}
}

// Extractor samples one frame every interval.
type Extractor struct {
	binary    string
	interval  time.Duration
	maxFrames int
}

// NewExtractor constructs an Extractor sampling at interval.
func NewExtractor(interval time.Duration, opts ...Option) *Extractor {
	if interval <= 0 {
		interval = defaultInterval
	}
	e := &Extractor{binary: "ffmpeg", interval: interval}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsVideoFile reports whether path has a video extension we sample from.
func IsVideoFile(path string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "mp4", "mov", "mkv", "webm", "avi", "m4v":
		return true
	default:
		return false
	}
}

// Extract samples frames from videoPath and returns them as inputs ordered by
// timestamp, with ordinals starting at 0.
func (e *Extractor) Extract(ctx context.Context, videoPath string) ([]imagefile.Input, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, services.Wrap(services.ErrValidation, "frames", "stat video", videoPath, err)
	}

	workDir, err := os.MkdirTemp("", "featuregen-frames-")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "frames", "create work dir", "", err)
	}
	defer os.RemoveAll(workDir)

	seconds := e.interval.Seconds()
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%g", seconds),
	}
	if e.maxFrames > 0 {
		args = append(args, "-frames:v", fmt.Sprintf("%d", e.maxFrames))
	}
	args = append(args, filepath.Join(workDir, "frame_%04d.png"))

	cmd := commandContext(ctx, e.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "frames", "ffmpeg", strings.TrimSpace(string(output)), err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, "frame_*.png"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "frames", "list frames", "", err)
	}
	sort.Strings(matches)
	if e.maxFrames > 0 && len(matches) > e.maxFrames {
		matches = matches[:e.maxFrames]
	}
	if len(matches) == 0 {
		return nil, services.Wrap(services.ErrValidation, "frames", "extract", fmt.Sprintf("no frames sampled from %s", videoPath), nil)
	}

	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	inputs := make([]imagefile.Input, 0, len(matches))
	for idx, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "frames", "read frame", path, err)
		}
		ts := time.Duration(idx) * e.interval
		name := fmt.Sprintf("%s-frame-%04d.png", stem, idx+1)
		in, err := imagefile.FromFrame(name, data, idx, ts)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
