package query

import (
	"math"
	"strconv"
	"strings"

	"libraryapi/apperrors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Page is a result window: the half-open range [(Number-1)*Limit, Number*Limit).
// A zero Limit means no limit.
type Page struct {
	Number int
	Limit  int
}

// All is the window holding every match.
func All() Page {
	return Page{Number: 1}
}

// ParsePage reads page and limit query values. Missing, non-numeric and
// non-positive values fall back to the defaults.
func ParsePage(page, limit string) Page {
	p := Page{Number: DefaultPage, Limit: DefaultLimit}
	if n, err := strconv.Atoi(strings.TrimSpace(page)); err == nil && n >= 1 {
		p.Number = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil && n >= 1 {
		p.Limit = n
	}
	return p
}

// Skip saturates at math.MaxInt64 instead of overflowing.
func (p Page) Skip() int64 {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	n, limit := int64(p.Number-1), int64(p.Limit)
	if n > math.MaxInt64/limit {
		return math.MaxInt64
	}
	return n * limit
}

// Pages is ceil(total/limit). Without a limit everything is one page.
func (p Page) Pages(total int64) int {
	if total <= 0 {
		return 0
	}
	if p.Limit <= 0 {
		return 1
	}
	limit := int64(p.Limit)
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return int(pages)
}

// ParseYear reads an optional year filter.
func ParseYear(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid query parameters",
			apperrors.FieldError{Field: "year", Message: "year must be a whole number"})
	}
	return &year, nil
}
