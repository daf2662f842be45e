package imagefile

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"featuregen/internal/services"
)

const jpegQuality = 90

// Prepare returns an Input whose payload the vision backend accepts. PNG and
// JPEG within maxSide pass through untouched; other formats are re-encoded as
// PNG and larger images are downscaled to fit maxSide. maxSide <= 0 disables
// downscaling.
func Prepare(in Input, maxSide int) (Input, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return Input{}, services.Wrap(services.ErrValidation, "imagefile", "decode", in.Name, err)
	}

	oversize := maxSide > 0 && (cfg.Width > maxSide || cfg.Height > maxSide)
	nativeFormat := format == "png" || format == "jpeg"
	if nativeFormat && !oversize {
		return in, nil
	}

	img, err := imaging.Decode(bytes.NewReader(in.Data), imaging.AutoOrientation(true))
	if err != nil {
		return Input{}, services.Wrap(services.ErrValidation, "imagefile", "decode", in.Name, err)
	}
	if oversize {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	out := in
	if format == "jpeg" {
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
		out.MIMEType = "image/jpeg"
	} else {
		err = imaging.Encode(&buf, img, imaging.PNG)
		out.MIMEType = "image/png"
	}
	if err != nil {
		return Input{}, services.Wrap(services.ErrExternalTool, "imagefile", "encode", fmt.Sprintf("%s as %s", in.Name, out.MIMEType), err)
	}
	out.Data = buf.Bytes()
	return out, nil
}
