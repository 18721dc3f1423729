package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"libraryapi/apperrors"
	"libraryapi/models"
	"libraryapi/query"
	"libraryapi/repository"
	"libraryapi/utils"
)

// CategoryService manages categories. Books reference a category by name,
// so renames cascade and deletes are refused while the name is in use.
type CategoryService struct {
	categories repository.CategoryRepository
	books      repository.BookRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewCategoryService(categories repository.CategoryRepository, books repository.BookRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{categories: categories, books: books, logger: logger, now: time.Now}
}

func (s *CategoryService) List(ctx context.Context) ([]*models.Category, error) {
	return s.categories.List(ctx)
}

// Get returns the category and how many books carry its name.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, int64, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	n, err := s.books.Count(ctx, query.ByCategory(c.Name))
	if err != nil {
		return nil, 0, err
	}
	return c, n, nil
}

func (s *CategoryService) Create(ctx context.Context, in *models.CategoryInput) (*models.Category, error) {
	in.Normalize()
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	now := s.now()
	c := &models.Category{Name: in.Name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update renames books after the category itself is saved, so a rejected
// duplicate name leaves books untouched. The cascade is not atomic with
// concurrent book edits.
func (s *CategoryService) Update(ctx context.Context, id string, in *models.CategoryInput) (*models.Category, error) {
	in.Normalize()
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	existing, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.categories.Update(ctx, existing.ID, *in, s.now())
	if err != nil {
		return nil, err
	}

	if existing.Name != updated.Name {
		n, err := s.books.RenameCategory(ctx, existing.Name, updated.Name)
		if err != nil {
			return nil, err
		}
		s.logger.Info("category renamed",
			slog.String("from", existing.Name),
			slog.String("to", updated.Name),
			slog.Int64("books", n))
	}
	return updated, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return err
	}

	n, err := s.books.Count(ctx, query.ByCategory(c.Name))
	if err != nil {
		return err
	}
	if n > 0 {
		return apperrors.Conflict(fmt.Sprintf("Cannot delete category. %d book(s) are using this category", n))
	}
	return s.categories.Delete(ctx, c.ID)
}
