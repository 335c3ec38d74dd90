package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// UploadPolicy is the client-facing subset of the configuration that governs
// what the submission endpoints will accept.
type UploadPolicy struct {
	MaxImageSizeBytes    int64 `json:"max_image_size_bytes"`
	MaxEbookSizeBytes    int64 `json:"max_ebook_size_bytes"`
	MaxDocumentSizeBytes int64 `json:"max_document_size_bytes"`
	UploadRatePerMinute  int   `json:"upload_rate_per_minute"`
	UploadRateBurst      int   `json:"upload_rate_burst"`
}

type handler struct {
	config *Config
}

func (h *handler) uploadPolicy(c echo.Context) error {
	return errors.WithStack(c.JSON(http.StatusOK, UploadPolicy{
		MaxImageSizeBytes:    h.config.MaxImageSizeBytes,
		MaxEbookSizeBytes:    h.config.MaxEbookSizeBytes,
		MaxDocumentSizeBytes: h.config.MaxDocumentSizeBytes,
		UploadRatePerMinute:  h.config.UploadRatePerMinute,
		UploadRateBurst:      h.config.UploadRateBurst,
	}))
}
