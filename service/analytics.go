package service

import (
	"context"
	"slices"

	"libraryapi/models"
	"libraryapi/query"
	"libraryapi/repository"
)

const (
	recentBooks    = 5
	topAuthors     = 10
	bookMonths     = 12
	userStatMonths = 6
)

// AnalyticsService reports read-only aggregates over books and users.
type AnalyticsService struct {
	books   repository.BookRepository
	users   repository.UserRepository
	catalog *BookService
}

func NewAnalyticsService(books repository.BookRepository, users repository.UserRepository, catalog *BookService) *AnalyticsService {
	return &AnalyticsService{books: books, users: users, catalog: catalog}
}

// Summary counts distinct category labels on books, not category records.
func (s *AnalyticsService) Summary(ctx context.Context) (*models.Summary, error) {
	totalBooks, err := s.books.Count(ctx, query.Filter{})
	if err != nil {
		return nil, err
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.books.DistinctCategories(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.books.Recent(ctx, recentBooks)
	if err != nil {
		return nil, err
	}
	views, err := s.catalog.views(ctx, recent)
	if err != nil {
		return nil, err
	}

	return &models.Summary{
		TotalBooks:      totalBooks,
		TotalUsers:      totalUsers,
		TotalCategories: len(cats),
		RecentBooks:     views,
	}, nil
}

func (s *AnalyticsService) BooksByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	return s.books.CountByCategory(ctx)
}

// BooksByMonth covers the latest twelve months with books, oldest first.
func (s *AnalyticsService) BooksByMonth(ctx context.Context) ([]models.MonthCount, error) {
	months, err := s.books.CountByMonth(ctx, bookMonths)
	if err != nil {
		return nil, err
	}
	slices.Reverse(months)
	return months, nil
}

func (s *AnalyticsService) BooksByAuthor(ctx context.Context) ([]models.AuthorCount, error) {
	return s.books.CountByAuthor(ctx, topAuthors)
}

// UserStats covers the latest six months with sign-ups, newest first.
func (s *AnalyticsService) UserStats(ctx context.Context) ([]models.MonthCount, error) {
	return s.users.CountByMonth(ctx, userStatMonths)
}
