package storage

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"libraryapi/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	gifBytes  = append([]byte("GIF89a"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 32)...)
)

func upload(name, contentType string, data []byte) *Upload {
	return NewUpload(name, contentType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

func TestUpload_ValidateAcceptsImages(t *testing.T) {
	tests := []struct {
		name string
		u    *Upload
	}{
		{"png", upload("cover.png", "image/png", pngBytes)},
		{"gif", upload("cover.GIF", "image/gif", gifBytes)},
		{"jpeg", upload("cover.jpeg", "image/jpeg", jpegBytes)},
		{"jpg", upload("cover.jpg", "image/jpeg", jpegBytes)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.u.Validate())
		})
	}
}

func TestUpload_ValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		u    *Upload
	}{
		{"pdf extension", upload("doc.pdf", "image/png", pngBytes)},
		{"no extension", upload("cover", "image/png", pngBytes)},
		{"declared type", upload("cover.png", "application/pdf", pngBytes)},
		{"empty declared type", upload("cover.png", "", pngBytes)},
		{"content is not an image", upload("cover.png", "image/png", []byte("%PDF-1.4 not really a png"))},
		{"too large", NewUpload("big.png", "image/png", MaxUploadSize+1, func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(pngBytes)), nil
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.u.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation))

			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			require.Len(t, appErr.Fields, 1)
			assert.Equal(t, "coverImage", appErr.Fields[0].Field)
		})
	}
}

func TestGenerateName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	a := GenerateName("My Cover.PNG", now)
	b := GenerateName("My Cover.PNG", now)

	assert.Regexp(t, regexp.MustCompile(`^bookcover-1700000000123-[0-9a-f-]{36}\.png$`), a)
	assert.NotEqual(t, a, b)
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, checkName("bookcover-1-abc.png"))

	for _, bad := range []string{"", ".", "..", "../etc/passwd", "a/b.png", `a\b.png`} {
		assert.ErrorIs(t, checkName(bad), ErrInvalidName, bad)
	}
}

func TestReadLimited(t *testing.T) {
	data, err := readLimited(strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	_, err = readLimited(bytes.NewReader(make([]byte, MaxUploadSize+1)))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}
