// Package service holds the business rules of the catalog: the book
// lifecycle with its cover images, categories, accounts and analytics.
package service

import (
	"context"
	"log/slog"
	"time"

	"libraryapi/apperrors"
	"libraryapi/models"
	"libraryapi/query"
	"libraryapi/repository"
	"libraryapi/storage"
	"libraryapi/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// BookService keeps each book's coverImage pointing at the sentinel or at a
// blob that exists.
type BookService struct {
	books  repository.BookRepository
	users  repository.UserRepository
	blobs  storage.BlobStore
	logger *slog.Logger
	now    func() time.Time
}

func NewBookService(books repository.BookRepository, users repository.UserRepository, blobs storage.BlobStore, logger *slog.Logger) *BookService {
	return &BookService{books: books, users: users, blobs: blobs, logger: logger, now: time.Now}
}

func (s *BookService) List(ctx context.Context, params query.Params, page query.Page) (*models.BookList, error) {
	filter := query.Build(params)

	total, err := s.books.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	books, err := s.books.Find(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, books)
	if err != nil {
		return nil, err
	}

	return &models.BookList{
		Items: views,
		Total: total,
		Page:  page.Number,
		Pages: page.Pages(total),
		Limit: page.Limit,
	}, nil
}

func (s *BookService) Get(ctx context.Context, id string) (*models.BookView, error) {
	b, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, b)
}

// Mine lists every book owned by the principal, newest first.
func (s *BookService) Mine(ctx context.Context, principal models.Principal) ([]models.BookView, error) {
	owner, err := ownerID(principal)
	if err != nil {
		return nil, err
	}
	books, err := s.books.Find(ctx, query.Build(query.Params{Owner: &owner}), query.All())
	if err != nil {
		return nil, err
	}
	return s.views(ctx, books)
}

// Create stores the cover (if any) before the record. A failed insert
// removes the cover again.
func (s *BookService) Create(ctx context.Context, in *models.BookInput, upload *storage.Upload, principal models.Principal) (*models.BookView, error) {
	owner, err := ownerID(principal)
	if err != nil {
		return nil, err
	}
	if err := s.validate(in, upload); err != nil {
		return nil, err
	}

	cover := models.DefaultCoverImage
	if upload != nil {
		if cover, err = s.putCover(ctx, upload); err != nil {
			return nil, err
		}
	}

	b := in.NewBook(owner, cover, s.now())
	if err := s.books.Create(ctx, b); err != nil {
		if upload != nil {
			s.discardCover(ctx, cover, "create failed")
		}
		return nil, err
	}

	s.logger.Info("book created", slog.String("book_id", b.ID.Hex()), slog.String("owner", principal.ID))
	return s.view(ctx, b)
}

// Update authorizes before any blob is written. A new cover replaces the
// old one only once the record points at it.
func (s *BookService) Update(ctx context.Context, id string, in *models.BookInput, upload *storage.Upload, principal models.Principal) (*models.BookView, error) {
	if err := s.validate(in, upload); err != nil {
		return nil, err
	}

	existing, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !utils.CanModify(principal, existing.AddedBy) {
		return nil, apperrors.Forbidden("Not authorized to update this book")
	}

	var newCover *string
	if upload != nil {
		name, err := s.putCover(ctx, upload)
		if err != nil {
			return nil, err
		}
		newCover = &name
	}

	updated, err := s.books.Update(ctx, existing.ID, in.Update(newCover, s.now()))
	if err != nil {
		if newCover != nil {
			s.discardCover(ctx, *newCover, "update failed")
		}
		return nil, err
	}

	if newCover != nil && existing.HasCustomCover() && existing.CoverImage != *newCover {
		s.discardCover(ctx, existing.CoverImage, "cover replaced")
	}
	return s.view(ctx, updated)
}

// Delete removes the cover first. If that fails the record is kept, so it
// never points at a blob that is gone.
func (s *BookService) Delete(ctx context.Context, id string, principal models.Principal) error {
	existing, err := s.books.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !utils.CanModify(principal, existing.AddedBy) {
		return apperrors.Forbidden("Not authorized to delete this book")
	}

	if existing.HasCustomCover() {
		if err := s.blobs.Delete(ctx, existing.CoverImage); err != nil {
			return apperrors.Storage(err, "Failed to delete cover image")
		}
	}

	if err := s.books.Delete(ctx, existing.ID); err != nil {
		return err
	}
	s.logger.Info("book deleted", slog.String("book_id", existing.ID.Hex()), slog.String("by", principal.ID))
	return nil
}

func (s *BookService) validate(in *models.BookInput, upload *storage.Upload) error {
	in.Normalize()
	if err := utils.Validate(in); err != nil {
		return err
	}
	if upload != nil {
		return upload.Validate()
	}
	return nil
}

func (s *BookService) putCover(ctx context.Context, upload *storage.Upload) (string, error) {
	name, err := s.blobs.Put(ctx, upload)
	if err == nil {
		return name, nil
	}
	if apperrors.Is(err, apperrors.KindValidation) {
		return "", err
	}
	return "", apperrors.Storage(err, "Failed to store cover image")
}

// discardCover is best effort; failures are logged and never surfaced.
func (s *BookService) discardCover(ctx context.Context, name, reason string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), name); err != nil {
		s.logger.Warn("cover cleanup failed",
			slog.String("cover", name),
			slog.String("reason", reason),
			slog.Any("error", err))
	}
}

func (s *BookService) view(ctx context.Context, b *models.Book) (*models.BookView, error) {
	views, err := s.views(ctx, []*models.Book{b})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views resolves owners in one lookup. Owners that no longer exist render
// as null.
func (s *BookService) views(ctx context.Context, books []*models.Book) ([]models.BookView, error) {
	ids := make([]bson.ObjectID, 0, len(books))
	seen := make(map[bson.ObjectID]bool, len(books))
	for _, b := range books {
		if !seen[b.AddedBy] {
			seen[b.AddedBy] = true
			ids = append(ids, b.AddedBy)
		}
	}
	owners, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.BookView, 0, len(books))
	for _, b := range books {
		var owner *models.PublicUser
		if u, ok := owners[b.AddedBy]; ok {
			owner = u.Public()
		}
		out = append(out, models.NewBookView(b, owner, s.coverURL(ctx, b)))
	}
	return out, nil
}

func (s *BookService) coverURL(ctx context.Context, b *models.Book) string {
	if !b.HasCustomCover() {
		return ""
	}
	url, err := s.blobs.URL(ctx, b.CoverImage)
	if err != nil {
		s.logger.Debug("cover url unavailable", slog.String("cover", b.CoverImage), slog.Any("error", err))
		return ""
	}
	return url
}

func ownerID(principal models.Principal) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(principal.ID)
	if err != nil {
		return bson.NilObjectID, apperrors.Unauthorized("Not authorized")
	}
	return oid, nil
}
