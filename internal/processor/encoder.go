package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	conf "github.com/nba-highlights/frame-splitter/internal/config"
)

// ImageModifier defines an image modifier
type ImageModifier interface {
	Modify(img image.Image) image.Image
}

// ImageResizer shrinks an image to fit within MaxWidth x MaxHeight, keeping
// the aspect ratio. Images already inside the bounds are returned unchanged.
type ImageResizer struct {
	MaxWidth  int
	MaxHeight int
}

// Modify to implement ImageModifier interface
func (r *ImageResizer) Modify(img image.Image) image.Image {
	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())

	if w == 0 || h == 0 || (r.MaxWidth == 0 && r.MaxHeight == 0) {
		return img
	}

	// A zero bound leaves that axis unconstrained.
	var ratio float64
	if r.MaxWidth > 0 {
		ratio = w / float64(r.MaxWidth)
	}
	if r.MaxHeight > 0 {
		if hRatio := h / float64(r.MaxHeight); hRatio > ratio {
			ratio = hRatio
		}
	}

	// Nothing to do - return original image
	if ratio <= 1 {
		return img
	}

	return imaging.Resize(img, int(w/ratio), int(h/ratio), imaging.Lanczos)
}

// Encoder renders decoded frame bytes into the configured output format,
// optionally downscaling first.
type Encoder struct {
	format    string
	quality   int
	modifiers []ImageModifier
}

func NewEncoder(cfg *conf.FramesConfig) *Encoder {
	e := &Encoder{
		format:  cfg.Format,
		quality: cfg.Quality,
	}
	if cfg.MaxWidth > 0 || cfg.MaxHeight > 0 {
		e.modifiers = append(e.modifiers, &ImageResizer{MaxWidth: cfg.MaxWidth, MaxHeight: cfg.MaxHeight})
	}
	return e
}

// Ext returns the file extension of the output format.
func (e *Encoder) Ext() string {
	switch e.format {
	case "png":
		return ".png"
	case "webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// Encode re-encodes one JPEG frame. When no modifier is configured and the
// output format is jpeg, the input bytes pass through untouched.
func (e *Encoder) Encode(data []byte) ([]byte, error) {
	if len(e.modifiers) == 0 && (e.format == "" || e.format == "jpeg") {
		return data, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding frame: %w", err)
	}

	for _, modifier := range e.modifiers {
		img = modifier.Modify(img)
	}

	var buf bytes.Buffer
	switch e.format {
	case "png":
		err = png.Encode(&buf, img)
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(e.quality)})
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality})
	}
	if err != nil {
		return nil, fmt.Errorf("error encoding frame to %s: %w", e.format, err)
	}

	return buf.Bytes(), nil
}
