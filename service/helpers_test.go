package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"libraryapi/logging"
	"libraryapi/models"
	"libraryapi/repository"
	"libraryapi/storage"
	"libraryapi/utils"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

type fixture struct {
	books      *repository.MemoryBooks
	categories *repository.MemoryCategories
	users      *repository.MemoryUsers
	dir        string
	blobs      *storage.DiskStore

	bookSvc     *BookService
	categorySvc *CategoryService
	userSvc     *UserService
	analytics   *AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	blobs, err := storage.NewDiskStore(dir, "/uploads")
	require.NoError(t, err)

	f := &fixture{
		books:      repository.NewMemoryBooks(),
		categories: repository.NewMemoryCategories(),
		users:      repository.NewMemoryUsers(),
		dir:        dir,
		blobs:      blobs,
	}
	logger := logging.Discard()
	f.bookSvc = NewBookService(f.books, f.users, blobs, logger)
	f.categorySvc = NewCategoryService(f.categories, f.books, logger)
	f.userSvc = NewUserService(f.users, []byte("test-secret"), time.Hour, logger)
	f.analytics = NewAnalyticsService(f.books, f.users, f.bookSvc)
	return f
}

// addUser stores an active user with password "secret1" and returns its
// principal.
func (f *fixture) addUser(t *testing.T, username, role string) models.Principal {
	t.Helper()
	hash, err := utils.HashPass("secret1")
	require.NoError(t, err)

	u := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  hash,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.Principal()
}

func (f *fixture) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	return len(entries)
}

func (f *fixture) blobExists(t *testing.T, name string) bool {
	t.Helper()
	ok, err := f.blobs.Exists(context.Background(), name)
	require.NoError(t, err)
	return ok
}

func newUpload(name, contentType string, data []byte) *storage.Upload {
	return storage.NewUpload(name, contentType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

func pngUpload() *storage.Upload {
	return newUpload("cover.png", "image/png", pngBytes)
}

func duneInput() *models.BookInput {
	year := 1965
	return &models.BookInput{Title: "Dune", Author: "Herbert", Category: "SciFi", PublishedYear: &year}
}

func strPtr(s string) *string { return &s }

var errBoom = errors.New("boom")

// failingBooks fails writes on demand and otherwise behaves like the memory store.
type failingBooks struct {
	*repository.MemoryBooks
	failCreate bool
	failUpdate bool
}

func (r *failingBooks) Create(ctx context.Context, b *models.Book) error {
	if r.failCreate {
		return errBoom
	}
	return r.MemoryBooks.Create(ctx, b)
}

func (r *failingBooks) Update(ctx context.Context, id bson.ObjectID, u models.BookUpdate) (*models.Book, error) {
	if r.failUpdate {
		return nil, errBoom
	}
	return r.MemoryBooks.Update(ctx, id, u)
}

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Put(ctx context.Context, u *storage.Upload) (string, error) {
	args := m.Called(ctx, u)
	return args.String(0), args.Error(1)
}

func (m *mockBlobStore) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *mockBlobStore) Exists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *mockBlobStore) URL(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}
