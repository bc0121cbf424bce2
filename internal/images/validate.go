package images

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/webp" // register WebP decoder
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
)

func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) ContentType() string {
	return "image/" + string(f)
}

// InvalidImageMessage is the field message shown to clients.
const InvalidImageMessage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

var ErrInvalidImage = errors.New("not a valid image")

// Decoders allocate the full pixel buffer up front, so the header is
// checked against these before any pixels are read.
const (
	MaxDimension = 8000
	MaxPixels    = 40_000_000
)

// Validate decodes data fully and reports its format. Empty, unknown,
// truncated or oversized payloads return ErrInvalidImage.
func Validate(data []byte) (Format, error) {
	if len(data) == 0 {
		return "", ErrInvalidImage
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrInvalidImage
	}

	f := Format(name)
	switch f {
	case FormatJPEG, FormatPNG, FormatGIF, FormatWebP:
	default:
		return "", ErrInvalidImage
	}

	if cfg.Width <= 0 || cfg.Height <= 0 ||
		cfg.Width > MaxDimension || cfg.Height > MaxDimension ||
		cfg.Width*cfg.Height > MaxPixels {
		return "", ErrInvalidImage
	}

	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return "", ErrInvalidImage
	}

	return f, nil
}
