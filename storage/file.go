// Package storage uploads project images and archives to object storage and
// returns their public URLs.
package storage

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// File is an uploaded blob.
type File interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

// Service stores a file in a bucket and returns its public URL.
type Service interface {
	Upload(ctx context.Context, bucket string, f File) (string, error)
}

type multipartFile struct {
	header      *multipart.FileHeader
	contentType string
}

// FromMultipart wraps a file part of a parsed multipart form. Its content type
// is sniffed from the data; the type the client declared is ignored.
func FromMultipart(h *multipart.FileHeader) File {
	return multipartFile{header: h, contentType: sniff(h)}
}

func (f multipartFile) Name() string        { return f.header.Filename }
func (f multipartFile) Size() int64         { return f.header.Size }
func (f multipartFile) ContentType() string { return f.contentType }

func (f multipartFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}

// BytesFile is an in-memory File.
type BytesFile struct {
	Filename string
	Data     []byte
	Type     string
}

func (f BytesFile) Name() string { return f.Filename }
func (f BytesFile) Size() int64  { return int64(len(f.Data)) }

func (f BytesFile) ContentType() string {
	if f.Type != "" {
		return f.Type
	}
	return contentTypeFor(f.Filename)
}

// Open returns a seekable reader so S3 can sign the payload.
func (f BytesFile) Open() (io.ReadCloser, error) {
	return bytesReadCloser{bytes.NewReader(f.Data)}, nil
}

type bytesReadCloser struct {
	*bytes.Reader
}

func (bytesReadCloser) Close() error { return nil }

func sniff(h *multipart.FileHeader) string {
	f, err := h.Open()
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := io.ReadFull(f, buf)
	return http.DetectContentType(buf[:n])
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ObjectKey is a collision-free key that keeps the file's extension.
func ObjectKey(name string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(name))
}
