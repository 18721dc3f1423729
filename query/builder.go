// Package query turns book listing parameters into a typed filter. A Filter
// renders to a MongoDB predicate and can also be evaluated against a Book in
// memory; both must agree.
package query

import (
	"regexp"
	"strings"

	"libraryapi/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	FieldTitle         = "title"
	FieldAuthor        = "author"
	FieldCategory      = "category"
	FieldPublishedYear = "publishedYear"
	FieldAddedBy       = "addedBy"
)

// Clause is one predicate over a book.
type Clause interface {
	BSON() bson.D
	Match(b *models.Book) bool
}

// Contains matches a case-insensitive substring. Text is matched literally.
type Contains struct {
	Field string
	Text  string
}

func (c Contains) BSON() bson.D {
	return bson.D{{Key: c.Field, Value: bson.D{
		{Key: "$regex", Value: regexp.QuoteMeta(c.Text)},
		{Key: "$options", Value: "i"},
	}}}
}

func (c Contains) Match(b *models.Book) bool {
	v, ok := fieldValue(b, c.Field).(string)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(v), strings.ToLower(c.Text))
}

// Equals matches a field exactly.
type Equals struct {
	Field string
	Value any
}

func (e Equals) BSON() bson.D {
	return bson.D{{Key: e.Field, Value: e.Value}}
}

func (e Equals) Match(b *models.Book) bool {
	return fieldValue(b, e.Field) == e.Value
}

// AnyOf is the logical OR of its clauses.
type AnyOf []Clause

func (a AnyOf) BSON() bson.D {
	alts := make(bson.A, 0, len(a))
	for _, c := range a {
		alts = append(alts, c.BSON())
	}
	return bson.D{{Key: "$or", Value: alts}}
}

func (a AnyOf) Match(b *models.Book) bool {
	for _, c := range a {
		if c.Match(b) {
			return true
		}
	}
	return false
}

func fieldValue(b *models.Book, field string) any {
	switch field {
	case FieldTitle:
		return b.Title
	case FieldAuthor:
		return b.Author
	case FieldCategory:
		return b.Category
	case FieldPublishedYear:
		return b.PublishedYear
	case FieldAddedBy:
		return b.AddedBy
	}
	return nil
}

// Filter is the conjunction of its clauses. The zero Filter matches every book.
type Filter struct {
	Clauses []Clause
}

func (f Filter) And(c Clause) Filter {
	clauses := make([]Clause, 0, len(f.Clauses)+1)
	clauses = append(clauses, f.Clauses...)
	return Filter{Clauses: append(clauses, c)}
}

func (f Filter) BSON() bson.D {
	switch len(f.Clauses) {
	case 0:
		return bson.D{}
	case 1:
		return f.Clauses[0].BSON()
	}
	all := make(bson.A, 0, len(f.Clauses))
	for _, c := range f.Clauses {
		all = append(all, c.BSON())
	}
	return bson.D{{Key: "$and", Value: all}}
}

func (f Filter) Match(b *models.Book) bool {
	for _, c := range f.Clauses {
		if !c.Match(b) {
			return false
		}
	}
	return true
}

// Params are the optional filters of a book listing.
type Params struct {
	Search   string
	Category string
	Author   string
	Year     *int
	Owner    *bson.ObjectID
}

// Build accumulates one clause per supplied parameter.
func Build(p Params) Filter {
	var f Filter
	if s := strings.TrimSpace(p.Search); s != "" {
		f = f.And(AnyOf{
			Contains{Field: FieldTitle, Text: s},
			Contains{Field: FieldAuthor, Text: s},
			Contains{Field: FieldCategory, Text: s},
		})
	}
	if p.Category != "" {
		f = f.And(Equals{Field: FieldCategory, Value: p.Category})
	}
	if a := strings.TrimSpace(p.Author); a != "" {
		f = f.And(Contains{Field: FieldAuthor, Text: a})
	}
	if p.Year != nil {
		f = f.And(Equals{Field: FieldPublishedYear, Value: *p.Year})
	}
	if p.Owner != nil {
		f = f.And(Equals{Field: FieldAddedBy, Value: *p.Owner})
	}
	return f
}

// ByCategory matches books labelled with name.
func ByCategory(name string) Filter {
	return Filter{Clauses: []Clause{Equals{Field: FieldCategory, Value: name}}}
}
