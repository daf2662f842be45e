package pipeline

import (
	"context"
	"fmt"

	"featuregen/internal/frames"
	"featuregen/internal/imagefile"
	"featuregen/internal/screens"
	"featuregen/internal/services"
)

// CollectInputs loads image paths in order, or samples frames when the only
// path is a video. Mixing a video with other inputs is rejected.
func CollectInputs(ctx context.Context, paths []string, extractor *frames.Extractor) ([]imagefile.Input, error) {
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrValidation, StageInput, "collect", "no input files given", screens.ErrInvalidInput)
	}
	for _, path := range paths {
		if !frames.IsVideoFile(path) {
			continue
		}
		if len(paths) > 1 {
			return nil, services.Wrap(services.ErrValidation, StageInput, "collect",
				fmt.Sprintf("video %s must be the only input", path), screens.ErrInvalidInput)
		}
		if extractor == nil {
			return nil, services.Wrap(services.ErrConfiguration, StageInput, "collect", "frame extractor unavailable", nil)
		}
		return extractor.Extract(ctx, path)
	}
	for _, path := range paths {
		if !imagefile.IsImageFile(path) {
			return nil, services.Wrap(services.ErrValidation, StageInput, "collect",
				fmt.Sprintf("%s is not a supported image or video", path), screens.ErrInvalidInput)
		}
	}
	return imagefile.LoadAll(paths)
}
