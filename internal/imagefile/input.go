package imagefile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"featuregen/internal/services"
)

// Input is one image handed to the pipeline. Treat it as immutable once built.
type Input struct {
	Name     string
	Path     string
	Data     []byte
	MIMEType string
	// Ordinal is the 0-based position of the image in the run.
	Ordinal int
	// Timestamp is the source position for frames sampled from a video.
	Timestamp *time.Duration
}

// Number returns the 1-based image number used in messages.
func (in Input) Number() int {
	return in.Ordinal + 1
}

// Label returns a human-readable description of the input.
func (in Input) Label() string {
	if in.Timestamp != nil {
		return fmt.Sprintf("%s @ %s", in.Name, in.Timestamp.Round(time.Millisecond))
	}
	return in.Name
}

// Digest returns the hex SHA-256 of the payload.
func (in Input) Digest() string {
	sum := sha256.Sum256(in.Data)
	return hex.EncodeToString(sum[:])
}

var supportedMIME = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
	"image/tiff": {},
}

// IsImageFile reports whether path has a supported image extension.
func IsImageFile(path string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "png", "jpg", "jpeg", "gif", "webp", "bmp", "tif", "tiff":
		return true
	default:
		return false
	}
}

// Load reads path into an Input at the given ordinal.
func Load(path string, ordinal int) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, services.Wrap(services.ErrValidation, "imagefile", "read", path, err)
	}
	return FromBytes(filepath.Base(path), path, data, ordinal)
}

// LoadAll reads paths in order, assigning ordinals by position.
func LoadAll(paths []string) ([]Input, error) {
	inputs := make([]Input, 0, len(paths))
	for idx, path := range paths {
		in, err := Load(path, idx)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// FromBytes builds an Input from an in-memory payload.
func FromBytes(name, path string, data []byte, ordinal int) (Input, error) {
	if len(data) == 0 {
		return Input{}, services.Wrap(services.ErrValidation, "imagefile", "load", fmt.Sprintf("%s is empty", name), nil)
	}
	mime := sniffMIME(data)
	if _, ok := supportedMIME[mime]; !ok {
		return Input{}, services.Wrap(services.ErrValidation, "imagefile", "load", fmt.Sprintf("%s has unsupported content type %s", name, mime), nil)
	}
	return Input{
		Name:     name,
		Path:     path,
		Data:     data,
		MIMEType: mime,
		Ordinal:  ordinal,
	}, nil
}

// FromFrame builds an Input for a frame sampled at ts from a video.
func FromFrame(name string, data []byte, ordinal int, ts time.Duration) (Input, error) {
	in, err := FromBytes(name, "", data, ordinal)
	if err != nil {
		return Input{}, err
	}
	in.Timestamp = &ts
	return in, nil
}

func sniffMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if mime != "application/octet-stream" {
		return mime
	}
	// DetectContentType does not know TIFF.
	if len(data) >= 4 {
		head := string(data[:4])
		if head == "II*\x00" || head == "MM\x00*" {
			return "image/tiff"
		}
	}
	return mime
}
