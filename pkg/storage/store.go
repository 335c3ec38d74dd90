package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
)

var (
	// ErrDeleteFailed marks a blob that could not be removed. Callers on a
	// cleanup path hand it to DeleteBestEffort instead of propagating it.
	ErrDeleteFailed = errors.New("blob delete failed")
	// ErrBlobExists is returned by BlobStore.Put when the key is taken.
	ErrBlobExists = errors.New("blob already exists")
	// ErrForeignURL is returned when asked to delete a URL the store did not
	// issue.
	ErrForeignURL = errors.New("url does not belong to this blob store")
)

// BlobStore persists opaque blobs and hands back a URL for each one.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// BlobInfo is what a store knows about a stored blob.
type BlobInfo struct {
	SizeBytes   int64
	ContentType string
}

// Statter is implemented by blob stores that can describe a stored blob.
type Statter interface {
	Stat(ctx context.Context, url string) (*BlobInfo, error)
}

// Upload is a single file as received from a client.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

func UploadFromFileHeader(fh *multipart.FileHeader) *Upload {
	return &Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			return f, nil
		},
	}
}

func UploadFromBytes(filename string, data []byte) *Upload {
	return &Upload{
		Filename: filename,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Store is the resource store: it classifies and size-checks uploads, pushes
// them to a BlobStore, and describes the results as Resources.
type Store struct {
	blobs  BlobStore
	policy Policy
	now    func() time.Time
}

func NewStore(blobs BlobStore, policy Policy) *Store {
	return &Store{blobs: blobs, policy: policy, now: time.Now}
}

// Policy returns the size caps the store enforces.
func (s *Store) Policy() Policy {
	return s.policy
}

// Check runs every local validation Upload would run, without uploading.
func (s *Store) Check(u *Upload, declaredType string) error {
	if u == nil {
		return errcodes.ValidationError("File is required.")
	}
	_, err := s.policy.Check(u.Filename, u.Size, declaredType)
	return err
}

// Upload validates u and stores it. Validation problems come back as
// ValidationError before the blob store is contacted; blob store failures
// come back as UploadFailed.
func (s *Store) Upload(ctx context.Context, u *Upload, declaredType string) (*models.Resource, error) {
	if u == nil {
		return nil, errcodes.ValidationError("File is required.")
	}
	resourceType, err := s.policy.Check(u.Filename, u.Size, declaredType)
	if err != nil {
		return nil, err
	}

	data, err := readLimited(u, s.policy.limit(resourceType))
	if err != nil {
		return nil, err
	}
	if resourceType == models.ResourceTypeImage {
		if err := validateImage(u.Filename, data); err != nil {
			return nil, err
		}
	}

	contentType := mimetype.Detect(data).String()
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	uploadedAt := s.now()
	var url string
	for attempt := 0; attempt < 3; attempt++ {
		key := blobKey(typeFolders[resourceType], u.Filename, uploadedAt.Add(time.Duration(attempt)*time.Millisecond))
		url, err = s.blobs.Put(ctx, key, bytes.NewReader(data), contentType)
		if !errors.Is(err, ErrBlobExists) {
			break
		}
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Warn("blob upload failed", logger.Data{"filename": u.Filename, "type": resourceType})
		return nil, errcodes.UploadFailed("Failed to upload " + quoteName(u.Filename) + ".")
	}

	return &models.Resource{
		Type:         resourceType,
		ContentURL:   url,
		SizeBytes:    int64(len(data)),
		OriginalName: u.Filename,
		ContentType:  &contentType,
		Checksum:     &checksum,
		UploadedAt:   uploadedAt,
	}, nil
}

// CheckSet runs Check over an optional cover, which must be an image, and
// every file, whose type comes from its extension. Images are only ever
// covers, so a book file may not be one.
func (s *Store) CheckSet(cover *Upload, files []*Upload) error {
	if cover != nil {
		if err := s.Check(cover, models.ResourceTypeImage); err != nil {
			return err
		}
	}
	for _, f := range files {
		if f == nil {
			return errcodes.ValidationError("File is required.")
		}
		t, err := s.policy.Check(f.Filename, f.Size, "")
		if err != nil {
			return err
		}
		if t == models.ResourceTypeImage {
			return errcodes.ValidationError("Book file " + quoteName(f.Filename) + " must be an ebook or document, not an image.")
		}
	}
	return nil
}

// UploadSet checks everything with CheckSet and then uploads the cover
// followed by the files, returning resources in that order. It is all or
// nothing: when one upload fails, the blobs already stored for the set are
// deleted again on a best-effort basis.
func (s *Store) UploadSet(ctx context.Context, cover *Upload, files []*Upload) ([]*models.Resource, error) {
	if err := s.CheckSet(cover, files); err != nil {
		return nil, err
	}

	resources := make([]*models.Resource, 0, len(files)+1)
	rollback := func() {
		urls := make([]string, 0, len(resources))
		for _, r := range resources {
			urls = append(urls, r.ContentURL)
		}
		s.DeleteBestEffort(ctx, urls...)
	}

	if cover != nil {
		r, err := s.Upload(ctx, cover, models.ResourceTypeImage)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	for _, f := range files {
		r, err := s.Upload(ctx, f, "")
		if err != nil {
			rollback()
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// Delete removes the blob behind url. Failures are wrapped in
// ErrDeleteFailed.
func (s *Store) Delete(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	if err := s.blobs.Delete(ctx, url); err != nil {
		return errors.Wrapf(ErrDeleteFailed, "%s: %v", url, err)
	}
	return nil
}

// DeleteBestEffort deletes every url and logs, never returns, failures. The
// caller's operation goes on regardless.
func (s *Store) DeleteBestEffort(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if err := s.Delete(ctx, url); err != nil {
			logger.FromContext(ctx).Err(err).Warn("orphaned blob left behind", logger.Data{"url": url})
		}
	}
}

// ResourceFromURL describes an already stored blob. The type comes from the
// extension and falls back to EBOOK, which is what contributed files are
// unless they say otherwise.
func (s *Store) ResourceFromURL(ctx context.Context, url string) *models.Resource {
	name := OriginalNameFromURL(url)
	resourceType, err := Classify(name)
	if err != nil || resourceType == models.ResourceTypeImage {
		resourceType = models.ResourceTypeEbook
	}
	r := &models.Resource{
		Type:         resourceType,
		ContentURL:   url,
		OriginalName: name,
		UploadedAt:   s.now(),
	}
	if st, ok := s.blobs.(Statter); ok {
		info, err := st.Stat(ctx, url)
		if err != nil {
			logger.FromContext(ctx).Err(err).Warn("could not stat blob", logger.Data{"url": url})
			return r
		}
		r.SizeBytes = info.SizeBytes
		if info.ContentType != "" {
			ct := info.ContentType
			r.ContentType = &ct
		}
	}
	return r
}

// ImageResourceFromURL is ResourceFromURL for a cover image.
func (s *Store) ImageResourceFromURL(ctx context.Context, url string) *models.Resource {
	r := s.ResourceFromURL(ctx, url)
	r.Type = models.ResourceTypeImage
	return r
}

func readLimited(u *Upload, limit int64) ([]byte, error) {
	rc, err := u.Open()
	if err != nil {
		return nil, errcodes.ValidationError("File " + quoteName(u.Filename) + " could not be read.")
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errcodes.ValidationError("File " + quoteName(u.Filename) + " could not be read.")
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errcodes.ValidationError("File " + quoteName(u.Filename) + " exceeds the " + humanBytes(limit) + " limit.")
	}
	if len(data) == 0 {
		return nil, errcodes.ValidationError("File " + quoteName(u.Filename) + " is empty.")
	}
	return data, nil
}
