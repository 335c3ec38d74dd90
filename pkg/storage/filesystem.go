package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FileSystemStore keeps blobs under a root directory and addresses them as
// "<baseURL>/<key>". The server exposes the same directory read-only at
// baseURL.
type FileSystemStore struct {
	root    string
	baseURL string
}

func NewFileSystemStore(root, baseURL string) (*FileSystemStore, error) {
	for _, folder := range []string{FolderCovers, FolderEbooks, FolderDocuments} {
		if err := os.MkdirAll(filepath.Join(root, folder), 0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create blob folder %s", folder)
		}
	}
	return &FileSystemStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root returns the directory blobs are written to.
func (s *FileSystemStore) Root() string {
	return s.root
}

// Put writes to a temporary file first and links it into place, so readers
// never see a partial blob and an existing key is never overwritten.
func (s *FileSystemStore) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	dest, err := s.pathForKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}

	tmp := filepath.Join(filepath.Dir(dest), ".upload-"+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer os.Remove(tmp)

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", errors.WithStack(err)
	}
	if err := f.Close(); err != nil {
		return "", errors.WithStack(err)
	}

	if err := os.Link(tmp, dest); err != nil {
		if os.IsExist(err) {
			return "", ErrBlobExists
		}
		return "", errors.WithStack(err)
	}

	return s.baseURL + "/" + key, nil
}

// Delete removes the blob. A blob that is already gone counts as deleted.
func (s *FileSystemStore) Delete(_ context.Context, url string) error {
	p, err := s.pathForURL(url)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

func (s *FileSystemStore) Stat(_ context.Context, url string) (*BlobInfo, error) {
	p, err := s.pathForURL(url)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	info := &BlobInfo{SizeBytes: fi.Size()}
	if mt, err := mimetype.DetectFile(p); err == nil {
		info.ContentType = mt.String()
	}
	return info, nil
}

func (s *FileSystemStore) pathForURL(url string) (string, error) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", errors.Wrap(ErrForeignURL, url)
	}
	return s.pathForKey(strings.TrimPrefix(url, prefix))
}

func (s *FileSystemStore) pathForKey(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || clean != "/"+key {
		return "", errors.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
