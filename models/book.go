package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// DefaultCoverImage is stored when a book is created without an upload.
	DefaultCoverImage  = "default-book-cover.jpg"
	DefaultDescription = "No description available"
)

// Book is a catalog entry. AddedBy references the owning User.
type Book struct {
	ID            bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title         string        `json:"title" bson:"title"`
	Author        string        `json:"author" bson:"author"`
	Category      string        `json:"category" bson:"category"`
	Description   string        `json:"description" bson:"description"`
	CoverImage    string        `json:"coverImage" bson:"coverImage"`
	ISBN          string        `json:"isbn,omitempty" bson:"isbn,omitempty"`
	PublishedYear int           `json:"publishedYear,omitempty" bson:"publishedYear,omitempty"`
	AddedBy       bson.ObjectID `json:"addedBy" bson:"addedBy"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// HasCustomCover reports whether the cover refers to an uploaded blob.
func (b *Book) HasCustomCover() bool {
	return b.CoverImage != "" && b.CoverImage != DefaultCoverImage
}

// BookInput carries the writable fields of a book. Nil pointers mean the
// field was not supplied.
type BookInput struct {
	Title         string  `json:"title" form:"title" validate:"required,max=100"`
	Author        string  `json:"author" form:"author" validate:"required,max=100"`
	Category      string  `json:"category" form:"category" validate:"required"`
	Description   *string `json:"description" form:"description" validate:"omitempty,max=1000"`
	ISBN          *string `json:"isbn" form:"isbn"`
	PublishedYear *int    `json:"publishedYear" form:"publishedYear" validate:"omitempty,gte=1000,notfuture"`
}

// Normalize trims text fields and drops a zero year, which is what an empty
// multipart field binds to.
func (in *BookInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = strings.TrimSpace(in.Category)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
	}
	if in.ISBN != nil {
		isbn := strings.TrimSpace(*in.ISBN)
		in.ISBN = &isbn
	}
	if in.PublishedYear != nil && *in.PublishedYear == 0 {
		in.PublishedYear = nil
	}
}

// NewBook builds a record from validated input.
func (in *BookInput) NewBook(owner bson.ObjectID, coverImage string, now time.Time) *Book {
	b := &Book{
		Title:       in.Title,
		Author:      in.Author,
		Category:    in.Category,
		Description: DefaultDescription,
		CoverImage:  coverImage,
		AddedBy:     owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Description != nil && *in.Description != "" {
		b.Description = *in.Description
	}
	if in.ISBN != nil {
		b.ISBN = *in.ISBN
	}
	if in.PublishedYear != nil {
		b.PublishedYear = *in.PublishedYear
	}
	if b.CoverImage == "" {
		b.CoverImage = DefaultCoverImage
	}
	return b
}

// BookUpdate is the set of fields an update writes. Nil pointers are left
// untouched.
type BookUpdate struct {
	Title         string
	Author        string
	Category      string
	Description   *string
	ISBN          *string
	PublishedYear *int
	CoverImage    *string
	UpdatedAt     time.Time
}

// Update converts the input into a BookUpdate.
func (in *BookInput) Update(coverImage *string, now time.Time) BookUpdate {
	return BookUpdate{
		Title:         in.Title,
		Author:        in.Author,
		Category:      in.Category,
		Description:   in.Description,
		ISBN:          in.ISBN,
		PublishedYear: in.PublishedYear,
		CoverImage:    coverImage,
		UpdatedAt:     now,
	}
}

// Apply writes the update onto b.
func (u BookUpdate) Apply(b *Book) {
	b.Title = u.Title
	b.Author = u.Author
	b.Category = u.Category
	if u.Description != nil {
		b.Description = *u.Description
	}
	if u.ISBN != nil {
		b.ISBN = *u.ISBN
	}
	if u.PublishedYear != nil {
		b.PublishedYear = *u.PublishedYear
	}
	if u.CoverImage != nil {
		b.CoverImage = *u.CoverImage
	}
	b.UpdatedAt = u.UpdatedAt
}

// BookView is a book as returned by the API, with the owner resolved.
type BookView struct {
	ID            bson.ObjectID `json:"_id"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	Category      string        `json:"category"`
	Description   string        `json:"description"`
	CoverImage    string        `json:"coverImage"`
	CoverImageURL string        `json:"coverImageUrl,omitempty"`
	ISBN          string        `json:"isbn,omitempty"`
	PublishedYear int           `json:"publishedYear,omitempty"`
	AddedBy       *PublicUser   `json:"addedBy"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func NewBookView(b *Book, owner *PublicUser, coverURL string) BookView {
	return BookView{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		Category:      b.Category,
		Description:   b.Description,
		CoverImage:    b.CoverImage,
		CoverImageURL: coverURL,
		ISBN:          b.ISBN,
		PublishedYear: b.PublishedYear,
		AddedBy:       owner,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// BookList is one page of a book listing.
type BookList struct {
	Items []BookView `json:"books"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Pages int        `json:"pages"`
	Limit int        `json:"limit"`
}
