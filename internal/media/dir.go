package media

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

// DirUploader stores objects in a local directory.
type DirUploader struct {
	root    string
	baseURL string
}

// NewDirUploader creates a DirUploader writing under root. Object URLs are
// baseURL followed by the key.
func NewDirUploader(root, baseURL string) *DirUploader {
	return &DirUploader{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Put implements Uploader.
func (u *DirUploader) Put(_ context.Context, key, _ string, body io.Reader) (Object, error) {
	name := filepath.Join(u.root, filepath.FromSlash(key))
	if !strings.HasPrefix(name, filepath.Clean(u.root)+string(filepath.Separator)) {
		return Object{}, errors.Errorf("key %q escapes media root", key)
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return Object{}, errors.Wrap(err, "create directory")
	}

	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return Object{}, ErrExists
	}
	if err != nil {
		return Object{}, errors.Wrap(err, "create file")
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return Object{}, errors.Wrap(err, "write file")
	}
	if err := f.Close(); err != nil {
		return Object{}, errors.Wrap(err, "close file")
	}
	return Object{Key: key, URL: u.baseURL + "/" + key}, nil
}

// Handler serves the stored objects.
func (u *DirUploader) Handler() http.Handler {
	fs := http.FileServer(http.Dir(u.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", CacheControl)
		fs.ServeHTTP(w, r)
	})
}
