package service

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"libraryapi/apperrors"
	"libraryapi/logging"
	"libraryapi/models"
	"libraryapi/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestCreate_WithoutUploadUsesSentinelAndResolvesOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "herbert", models.RoleUser)

	created, err := f.bookSvc.Create(ctx, duneInput(), nil, owner)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCoverImage, created.CoverImage)
	assert.Equal(t, models.DefaultDescription, created.Description)
	assert.Empty(t, created.CoverImageURL)

	got, err := f.bookSvc.Get(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, 1965, got.PublishedYear)
	require.NotNil(t, got.AddedBy)
	assert.Equal(t, "herbert", got.AddedBy.Username)
	assert.Equal(t, 0, f.blobCount(t))
}

func TestCreate_WithUploadStoresCover(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "herbert", models.RoleUser)

	created, err := f.bookSvc.Create(context.Background(), duneInput(), pngUpload(), owner)
	require.NoError(t, err)

	assert.NotEqual(t, models.DefaultCoverImage, created.CoverImage)
	assert.True(t, f.blobExists(t, created.CoverImage))
	assert.Equal(t, "/uploads/"+created.CoverImage, created.CoverImageURL)
}

func TestCreate_RejectsTextFileBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "herbert", models.RoleUser)

	_, err := f.bookSvc.Create(ctx, duneInput(), newUpload("notes.txt", "text/plain", []byte("hello")), owner)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	assert.Equal(t, 0, f.blobCount(t))
	n, err := f.books.Count(ctx, query.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreate_FieldValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "herbert", models.RoleUser)
	future := time.Now().Year() + 1
	ancient := 999

	tests := []struct {
		name  string
		in    *models.BookInput
		field string
	}{
		{"missing title", &models.BookInput{Author: "a", Category: "c"}, "title"},
		{"blank author", &models.BookInput{Title: "t", Author: "   ", Category: "c"}, "author"},
		{"title too long", &models.BookInput{Title: string(make([]byte, 101)), Author: "a", Category: "c"}, "title"},
		{"future year", &models.BookInput{Title: "t", Author: "a", Category: "c", PublishedYear: &future}, "publishedYear"},
		{"year too old", &models.BookInput{Title: "t", Author: "a", Category: "c", PublishedYear: &ancient}, "publishedYear"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookSvc.Create(context.Background(), tt.in, pngUpload(), owner)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			require.NotEmpty(t, appErr.Fields)
			assert.Equal(t, tt.field, appErr.Fields[0].Field)
			assert.Equal(t, 0, f.blobCount(t))
		})
	}
}

func TestCreate_InsertFailureRemovesCover(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "herbert", models.RoleUser)
	books := &failingBooks{MemoryBooks: f.books, failCreate: true}
	svc := NewBookService(books, f.users, f.blobs, logging.Discard())

	_, err := svc.Create(context.Background(), duneInput(), pngUpload(), owner)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, f.blobCount(t))
}

func TestList_PaginationProperties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "herbert", models.RoleUser)

	for i := 0; i < 23; i++ {
		in := &models.BookInput{Title: fmt.Sprintf("Book %02d", i), Author: "Author", Category: "General"}
		_, err := f.bookSvc.Create(ctx, in, nil, owner)
		require.NoError(t, err)
	}

	for _, limit := range []int{1, 5, 10, 23, 50} {
		for _, page := range []int{1, 2, 3} {
			list, err := f.bookSvc.List(ctx, query.Params{}, query.Page{Number: page, Limit: limit})
			require.NoError(t, err)
			assert.Equal(t, int64(23), list.Total)
			assert.Equal(t, (23+limit-1)/limit, list.Pages)
			assert.Equal(t, page, list.Page)
			assert.Equal(t, limit, list.Limit)
		}
	}

	past, err := f.bookSvc.List(ctx, query.Params{}, query.Page{Number: 4, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.Equal(t, int64(23), past.Total)
}

func TestList_ExtremePagesAreEmptyNotErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "herbert", models.RoleUser)
	for i := 0; i < 3; i++ {
		in := &models.BookInput{Title: fmt.Sprintf("Book %d", i), Author: "Author", Category: "General"}
		_, err := f.bookSvc.Create(ctx, in, nil, owner)
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		page      query.Page
		wantItems int
		wantPages int
	}{
		{"max limit", query.ParsePage("1", "9223372036854775807"), 3, 1},
		{"max limit second page", query.Page{Number: 2, Limit: math.MaxInt}, 0, 1},
		{"max page", query.Page{Number: math.MaxInt, Limit: 10}, 0, 1},
		{"page 1e18+1", query.ParsePage("1000000000000000001", "10"), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := f.bookSvc.List(ctx, query.Params{}, tt.page)
			require.NoError(t, err)
			assert.Len(t, list.Items, tt.wantItems)
			assert.Equal(t, int64(3), list.Total)
			assert.Equal(t, tt.wantPages, list.Pages)
		})
	}
}

func TestList_FiltersCombine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "herbert", models.RoleUser)

	_, err := f.bookSvc.Create(ctx, duneInput(), nil, owner)
	require.NoError(t, err)
	_, err = f.bookSvc.Create(ctx, &models.BookInput{Title: "Emma", Author: "Austen", Category: "Romance"}, nil, owner)
	require.NoError(t, err)

	year := 1965
	list, err := f.bookSvc.List(ctx, query.Params{Search: "dune", Category: "SciFi", Year: &year}, query.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Dune", list.Items[0].Title)

	none, err := f.bookSvc.List(ctx, query.Params{Search: "nonexistent"}, query.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
	assert.Zero(t, none.Total)
}

func TestMine_OnlyOwnBooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice", models.RoleUser)
	bob := f.addUser(t, "bob", models.RoleUser)

	_, err := f.bookSvc.Create(ctx, duneInput(), nil, alice)
	require.NoError(t, err)
	_, err = f.bookSvc.Create(ctx, &models.BookInput{Title: "Emma", Author: "Austen", Category: "Romance"}, nil, bob)
	require.NoError(t, err)

	mine, err := f.bookSvc.Mine(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Dune", mine[0].Title)
}

func TestUpdate_NonOwnerIsForbiddenAndNothingChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)
	stranger := f.addUser(t, "mallory", models.RoleUser)

	created, err := f.bookSvc.Create(ctx, duneInput(), nil, owner)
	require.NoError(t, err)

	in := duneInput()
	in.Title = "Hijacked"
	_, err = f.bookSvc.Update(ctx, created.ID.Hex(), in, pngUpload(), stranger)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	got, err := f.bookSvc.Get(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, models.DefaultCoverImage, got.CoverImage)
	assert.Equal(t, 0, f.blobCount(t))

	err = f.bookSvc.Delete(ctx, created.ID.Hex(), stranger)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
	_, err = f.bookSvc.Get(ctx, created.ID.Hex())
	assert.NoError(t, err)
}

func TestUpdate_AdminMayModifyAnyBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)
	admin := f.addUser(t, "root", models.RoleAdmin)

	created, err := f.bookSvc.Create(ctx, duneInput(), nil, owner)
	require.NoError(t, err)

	in := duneInput()
	in.Description = strPtr("Spice")
	updated, err := f.bookSvc.Update(ctx, created.ID.Hex(), in, nil, admin)
	require.NoError(t, err)
	assert.Equal(t, "Spice", updated.Description)
	assert.Equal(t, "alice", updated.AddedBy.Username, "owner is unchanged")

	require.NoError(t, f.bookSvc.Delete(ctx, created.ID.Hex(), admin))
	_, err = f.bookSvc.Get(ctx, created.ID.Hex())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestUpdate_ReplacingCoverRemovesOldBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)

	created, err := f.bookSvc.Create(ctx, duneInput(), pngUpload(), owner)
	require.NoError(t, err)
	oldCover := created.CoverImage

	updated, err := f.bookSvc.Update(ctx, created.ID.Hex(), duneInput(), pngUpload(), owner)
	require.NoError(t, err)

	assert.NotEqual(t, oldCover, updated.CoverImage)
	assert.False(t, f.blobExists(t, oldCover))
	assert.True(t, f.blobExists(t, updated.CoverImage))
	assert.Equal(t, 1, f.blobCount(t))
}

func TestUpdate_WithoutUploadKeepsCover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)

	created, err := f.bookSvc.Create(ctx, duneInput(), pngUpload(), owner)
	require.NoError(t, err)

	updated, err := f.bookSvc.Update(ctx, created.ID.Hex(), duneInput(), nil, owner)
	require.NoError(t, err)
	assert.Equal(t, created.CoverImage, updated.CoverImage)
	assert.True(t, f.blobExists(t, created.CoverImage))
}

func TestUpdate_PersistFailureRemovesNewCoverAndKeepsOld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)

	created, err := f.bookSvc.Create(ctx, duneInput(), pngUpload(), owner)
	require.NoError(t, err)

	books := &failingBooks{MemoryBooks: f.books, failUpdate: true}
	svc := NewBookService(books, f.users, f.blobs, logging.Discard())

	_, err = svc.Update(ctx, created.ID.Hex(), duneInput(), pngUpload(), owner)
	assert.ErrorIs(t, err, errBoom)

	assert.True(t, f.blobExists(t, created.CoverImage))
	assert.Equal(t, 1, f.blobCount(t))
}

func TestUpdate_MissingBook(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "alice", models.RoleUser)

	_, err := f.bookSvc.Update(context.Background(), bson.NewObjectID().Hex(), duneInput(), pngUpload(), owner)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	assert.Equal(t, 0, f.blobCount(t))

	_, err = f.bookSvc.Update(context.Background(), "garbage", duneInput(), nil, owner)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestDelete_RemovesCover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)

	created, err := f.bookSvc.Create(ctx, duneInput(), pngUpload(), owner)
	require.NoError(t, err)
	require.Equal(t, 1, f.blobCount(t))

	require.NoError(t, f.bookSvc.Delete(ctx, created.ID.Hex(), owner))
	assert.Equal(t, 0, f.blobCount(t))
	_, err = f.bookSvc.Get(ctx, created.ID.Hex())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestDelete_BlobFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)

	blobs := &mockBlobStore{}
	blobs.On("Put", mock.Anything, mock.Anything).Return("bookcover-1-a.png", nil)
	blobs.On("URL", mock.Anything, "bookcover-1-a.png").Return("/uploads/bookcover-1-a.png", nil)
	blobs.On("Delete", mock.Anything, "bookcover-1-a.png").Return(errBoom)
	svc := NewBookService(f.books, f.users, blobs, logging.Discard())

	created, err := svc.Create(ctx, duneInput(), pngUpload(), owner)
	require.NoError(t, err)

	err = svc.Delete(ctx, created.ID.Hex(), owner)
	assert.True(t, apperrors.Is(err, apperrors.KindStorage))
	assert.ErrorIs(t, err, errBoom)

	got, err := svc.Get(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "bookcover-1-a.png", got.CoverImage)
	blobs.AssertExpectations(t)
}

func TestCreate_PutFailureIsStorageError(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "alice", models.RoleUser)

	blobs := &mockBlobStore{}
	blobs.On("Put", mock.Anything, mock.Anything).Return("", errBoom)
	svc := NewBookService(f.books, f.users, blobs, logging.Discard())

	_, err := svc.Create(context.Background(), duneInput(), pngUpload(), owner)
	assert.True(t, apperrors.Is(err, apperrors.KindStorage))

	n, err := f.books.Count(context.Background(), query.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUpdate_OldCoverCleanupFailureIsOnlyLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)

	blobs := &mockBlobStore{}
	blobs.On("Put", mock.Anything, mock.Anything).Return("bookcover-1-old.png", nil).Once()
	blobs.On("Put", mock.Anything, mock.Anything).Return("bookcover-2-new.png", nil).Once()
	blobs.On("URL", mock.Anything, mock.Anything).Return("", nil)
	blobs.On("Delete", mock.Anything, "bookcover-1-old.png").Return(errBoom)
	svc := NewBookService(f.books, f.users, blobs, logging.Discard())

	created, err := svc.Create(ctx, duneInput(), pngUpload(), owner)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID.Hex(), duneInput(), pngUpload(), owner)
	require.NoError(t, err)
	assert.Equal(t, "bookcover-2-new.png", updated.CoverImage)
	blobs.AssertExpectations(t)
}

func TestViews_MissingOwnerRendersNull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)

	created, err := f.bookSvc.Create(ctx, duneInput(), nil, owner)
	require.NoError(t, err)

	oid, err := bson.ObjectIDFromHex(owner.ID)
	require.NoError(t, err)
	require.NoError(t, f.users.Delete(ctx, oid))

	got, err := f.bookSvc.Get(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, got.AddedBy)
}
