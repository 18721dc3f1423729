// Package repository persists books, categories and users. The Mongo and
// in-memory implementations return the same results for the same calls.
package repository

import (
	"context"
	"time"

	"libraryapi/apperrors"
	"libraryapi/models"
	"libraryapi/query"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	BooksCollection      = "books"
	CategoriesCollection = "categories"
	UsersCollection      = "users"
)

// BookRepository stores books. Find and Recent return newest first; Find
// with query.All() returns every match.
type BookRepository interface {
	Create(ctx context.Context, b *models.Book) error
	FindByID(ctx context.Context, id string) (*models.Book, error)
	Find(ctx context.Context, f query.Filter, page query.Page) ([]*models.Book, error)
	Count(ctx context.Context, f query.Filter) (int64, error)
	Update(ctx context.Context, id bson.ObjectID, u models.BookUpdate) (*models.Book, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	RenameCategory(ctx context.Context, oldName, newName string) (int64, error)
	CountByCategory(ctx context.Context) ([]models.CategoryCount, error)
	CountByAuthor(ctx context.Context, limit int) ([]models.AuthorCount, error)
	CountByMonth(ctx context.Context, limit int) ([]models.MonthCount, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	Recent(ctx context.Context, limit int) ([]*models.Book, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	FindByID(ctx context.Context, id string) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	Update(ctx context.Context, id bson.ObjectID, in models.CategoryInput, now time.Time) (*models.Category, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// UserRepository stores users. Only FindByEmail returns the password hash.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id bson.ObjectID, u models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	Count(ctx context.Context) (int64, error)
	CountByMonth(ctx context.Context, limit int) ([]models.MonthCount, error)
}

var (
	errBookNotFound     = apperrors.NotFound("Book not found")
	errCategoryNotFound = apperrors.NotFound("Category not found")
	errUserNotFound     = apperrors.NotFound("User not found")
	errCategoryExists   = apperrors.Conflict("Category already exists")
	errUserExists       = apperrors.Conflict("User already exists")
)

// parseID treats a malformed id like a missing record.
func parseID(id string, notFound error) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, notFound
	}
	return oid, nil
}

func dbError(err error) error {
	return apperrors.Storage(err, "database error")
}

var (
	_ BookRepository     = (*MongoBooks)(nil)
	_ BookRepository     = (*MemoryBooks)(nil)
	_ CategoryRepository = (*MongoCategories)(nil)
	_ CategoryRepository = (*MemoryCategories)(nil)
	_ UserRepository     = (*MongoUsers)(nil)
	_ UserRepository     = (*MemoryUsers)(nil)
)
