package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpupo63/projectdal-backend/errs"
)

// LocalStore writes uploads under a directory and serves them itself. It is
// meant for development.
type LocalStore struct {
	root      string
	publicURL string
}

func NewLocalStore(root, publicURL string) *LocalStore {
	return &LocalStore{root: root, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *LocalStore) Upload(ctx context.Context, bucket string, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", errs.NewStorageError(bucket, fmt.Errorf("invalid bucket name"))
	}

	dir := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.NewStorageError(bucket, err)
	}

	src, err := f.Open()
	if err != nil {
		return "", errs.NewStorageError(bucket, err)
	}
	defer src.Close()

	key := ObjectKey(f.Name())
	path := filepath.Join(dir, key)
	if err := writeFile(path, src); err != nil {
		return "", errs.NewStorageError(bucket, err)
	}
	return fmt.Sprintf("%s/%s/%s", s.publicURL, bucket, key), nil
}

// writeFile copies src to path. Nothing is left at path if it fails.
func writeFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Handler serves stored files. Mount it at the path PublicURL points to.
func (s *LocalStore) Handler(prefix string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(http.Dir(s.root)))
}
