package storage

import (
	"path"
	"strings"

	"github.com/shishobooks/bookhub/pkg/config"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
)

// Folders blobs are grouped under, one per resource type.
const (
	FolderCovers    = "book-covers"
	FolderEbooks    = "ebooks"
	FolderDocuments = "documents"
)

var extensionTypes = map[string]string{
	".jpg":  models.ResourceTypeImage,
	".jpeg": models.ResourceTypeImage,
	".png":  models.ResourceTypeImage,
	".webp": models.ResourceTypeImage,
	".pdf":  models.ResourceTypeEbook,
	".epub": models.ResourceTypeEbook,
	".mobi": models.ResourceTypeEbook,
	".doc":  models.ResourceTypeDocument,
	".docx": models.ResourceTypeDocument,
	".txt":  models.ResourceTypeDocument,
}

var typeFolders = map[string]string{
	models.ResourceTypeImage:    FolderCovers,
	models.ResourceTypeEbook:    FolderEbooks,
	models.ResourceTypeDocument: FolderDocuments,
}

// Policy holds the per-type size caps enforced before anything is uploaded.
type Policy struct {
	MaxImageBytes    int64
	MaxEbookBytes    int64
	MaxDocumentBytes int64
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		MaxImageBytes:    cfg.MaxImageSizeBytes,
		MaxEbookBytes:    cfg.MaxEbookSizeBytes,
		MaxDocumentBytes: cfg.MaxDocumentSizeBytes,
	}
}

// DefaultPolicy caps images at 5 MiB, ebooks at 50 MiB and documents at
// 10 MiB.
func DefaultPolicy() Policy {
	return Policy{
		MaxImageBytes:    5 << 20,
		MaxEbookBytes:    50 << 20,
		MaxDocumentBytes: 10 << 20,
	}
}

func (p Policy) limit(resourceType string) int64 {
	switch resourceType {
	case models.ResourceTypeImage:
		return p.MaxImageBytes
	case models.ResourceTypeEbook:
		return p.MaxEbookBytes
	default:
		return p.MaxDocumentBytes
	}
}

// Classify maps a file name to its resource type by extension.
func Classify(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	t, ok := extensionTypes[ext]
	if !ok {
		if ext == "" {
			return "", errcodes.ValidationError("File " + quoteName(filename) + " has no extension.")
		}
		return "", errcodes.ValidationError("Unsupported file type " + ext + ". Allowed: jpg, jpeg, png, webp, pdf, epub, mobi, doc, docx, txt.")
	}
	return t, nil
}

// Check validates name, declared type and size against the policy without
// touching any blob store. declaredType may be empty to accept whatever the
// extension says.
func (p Policy) Check(filename string, size int64, declaredType string) (string, error) {
	t, err := Classify(filename)
	if err != nil {
		return "", err
	}
	if declaredType != "" && declaredType != t {
		return "", errcodes.ValidationError("File " + quoteName(filename) + " must be of type " + declaredType + ", got " + t + ".")
	}
	if size <= 0 {
		return "", errcodes.ValidationError("File " + quoteName(filename) + " is empty.")
	}
	if limit := p.limit(t); limit > 0 && size > limit {
		return "", errcodes.ValidationError("File " + quoteName(filename) + " exceeds the " + humanBytes(limit) + " limit for " + strings.ToLower(t) + " files.")
	}
	return t, nil
}

func quoteName(name string) string {
	return `"` + name + `"`
}
