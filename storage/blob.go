// Package storage holds cover images. Blob names are generated on upload;
// records only keep the name.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"libraryapi/apperrors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadSize is the largest accepted cover image.
const MaxUploadSize = 5 << 20

const uploadField = "coverImage"

var (
	allowedExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true}
	allowedTypes      = map[string]bool{"image/jpeg": true, "image/jpg": true, "image/png": true, "image/gif": true}

	ErrInvalidName = errors.New("invalid blob name")
)

// BlobStore is where uploaded covers live. Delete must not fail for a
// missing blob.
type BlobStore interface {
	Put(ctx context.Context, u *Upload) (string, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	URL(ctx context.Context, name string) (string, error)
}

// Upload is a file received from a client, not yet stored.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	open        func() (io.ReadCloser, error)
}

func NewUpload(filename, contentType string, size int64, open func() (io.ReadCloser, error)) *Upload {
	return &Upload{Filename: filename, ContentType: contentType, Size: size, open: open}
}

func FromFileHeader(fh *multipart.FileHeader) *Upload {
	return NewUpload(fh.Filename, fh.Header.Get("Content-Type"), fh.Size, func() (io.ReadCloser, error) {
		return fh.Open()
	})
}

func (u *Upload) Open() (io.ReadCloser, error) {
	return u.open()
}

func (u *Upload) Ext() string {
	return strings.ToLower(filepath.Ext(u.Filename))
}

// Validate checks size, extension, declared content type and the sniffed
// content. Nothing is written.
func (u *Upload) Validate() error {
	if u.Size > MaxUploadSize {
		return apperrors.Validation("File too large",
			apperrors.FieldError{Field: uploadField, Message: "cover image cannot exceed 5MB"})
	}

	imagesOnly := apperrors.Validation("Images only! (jpeg, jpg, png, gif)",
		apperrors.FieldError{Field: uploadField, Message: "cover image must be a jpeg, jpg, png or gif file"})

	if !allowedExtensions[u.Ext()] {
		return imagesOnly
	}
	declared, _, err := mime.ParseMediaType(u.ContentType)
	if err != nil || !allowedTypes[strings.ToLower(declared)] {
		return imagesOnly
	}

	f, err := u.Open()
	if err != nil {
		return apperrors.Internal(err, "could not read upload")
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return apperrors.Internal(err, "could not read upload")
	}
	if !allowedTypes[detected.String()] {
		return imagesOnly
	}
	return nil
}

// GenerateName returns bookcover-<unix millis>-<uuid><ext>.
func GenerateName(original string, now time.Time) string {
	return fmt.Sprintf("bookcover-%d-%s%s", now.UnixMilli(), uuid.NewString(), strings.ToLower(filepath.Ext(original)))
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || name != path.Base(name) || strings.ContainsRune(name, '\\') {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// readLimited reads an upload, refusing anything over MaxUploadSize.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxUploadSize {
		return nil, apperrors.Validation("File too large",
			apperrors.FieldError{Field: uploadField, Message: "cover image cannot exceed 5MB"})
	}
	return data, nil
}
