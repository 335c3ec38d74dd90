package storage

import (
	"bytes"
	"image"
	// Registered so image.DecodeConfig understands covers in these formats.
	_ "image/jpeg"
	_ "image/png"

	"github.com/shishobooks/bookhub/pkg/errcodes"
	_ "golang.org/x/image/webp"
)

// MaxCoverDimension bounds either side of an uploaded cover, in pixels.
const MaxCoverDimension = 10000

// validateImage makes sure a cover decodes as jpeg, png or webp and has sane
// dimensions, reading only the header.
func validateImage(filename string, data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return errcodes.ValidationError("File " + quoteName(filename) + " is not a valid image.")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxCoverDimension || cfg.Height > MaxCoverDimension {
		return errcodes.ValidationError("File " + quoteName(filename) + " has unsupported image dimensions.")
	}
	return nil
}
