package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"
)

// Local stores files in a directory served under urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal creates dir if needed.
func NewLocal(dir, urlPrefix string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("media dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create media dir %s", dir)
	}

	return &Local{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

// Dir returns the storage directory.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", errors.Errorf("invalid media filename %q", filename)
	}

	return filepath.Join(l.dir, filename), nil
}

// Put implements Storage. Existing files are never overwritten.
func (l *Local) Put(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	p, err := l.path(filename)
	if err != nil {
		return "", err
	}

	fp, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrapf(err, "create media file %s", filename)
	}
	if _, err = fp.Write(data); err != nil {
		_ = fp.Close()
		_ = os.Remove(p)
		return "", errors.Wrapf(err, "write media file %s", filename)
	}
	if err = fp.Close(); err != nil {
		_ = os.Remove(p)
		return "", errors.Wrapf(err, "close media file %s", filename)
	}

	return l.URL(filename), nil
}

// Delete implements Storage.
func (l *Local) Delete(ctx context.Context, filename string) (bool, error) {
	p, err := l.path(filename)
	if err != nil {
		return false, err
	}

	if err = os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "remove media file %s", filename)
	}

	return true, nil
}

// URL implements Storage.
func (l *Local) URL(filename string) string {
	return l.urlPrefix + "/" + filename
}
