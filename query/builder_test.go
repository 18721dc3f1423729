package query

import (
	"math"
	"testing"

	"libraryapi/apperrors"
	"libraryapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func intPtr(v int) *int { return &v }

func TestBuild_NoParamsMatchesEverything(t *testing.T) {
	f := Build(Params{})

	assert.Empty(t, f.Clauses)
	assert.Equal(t, bson.D{}, f.BSON())
	assert.True(t, f.Match(&models.Book{Title: "anything"}))
}

func TestBuild_SearchRendersOrAcrossFields(t *testing.T) {
	f := Build(Params{Search: "dune"})

	require.Len(t, f.Clauses, 1)
	want := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "title", Value: bson.D{{Key: "$regex", Value: "dune"}, {Key: "$options", Value: "i"}}}},
		bson.D{{Key: "author", Value: bson.D{{Key: "$regex", Value: "dune"}, {Key: "$options", Value: "i"}}}},
		bson.D{{Key: "category", Value: bson.D{{Key: "$regex", Value: "dune"}, {Key: "$options", Value: "i"}}}},
	}}}
	assert.Equal(t, want, f.BSON())
}

func TestBuild_CombinesFiltersWithAnd(t *testing.T) {
	f := Build(Params{Search: "x", Category: "SciFi", Author: "herb", Year: intPtr(1965)})

	require.Len(t, f.Clauses, 4)
	doc := f.BSON()
	require.Len(t, doc, 1)
	assert.Equal(t, "$and", doc[0].Key)
	assert.Len(t, doc[0].Value, 4)
	assert.Contains(t, doc[0].Value, bson.D{{Key: "category", Value: "SciFi"}})
	assert.Contains(t, doc[0].Value, bson.D{{Key: "publishedYear", Value: 1965}})
}

func TestBuild_SearchTextIsEscaped(t *testing.T) {
	f := Build(Params{Search: "c++ (2nd)"})

	or := f.BSON()[0].Value.(bson.A)
	title := or[0].(bson.D)[0].Value.(bson.D)
	assert.Equal(t, `c\+\+ \(2nd\)`, title[0].Value)
	assert.True(t, f.Match(&models.Book{Title: "Learning C++ (2nd) Edition"}))
	assert.False(t, f.Match(&models.Book{Title: "Learning C"}))
}

func TestFilter_Match(t *testing.T) {
	owner := bson.NewObjectID()
	dune := &models.Book{Title: "Dune", Author: "Frank Herbert", Category: "SciFi", PublishedYear: 1965, AddedBy: owner}

	tests := []struct {
		name   string
		params Params
		want   bool
	}{
		{"search title case-insensitive", Params{Search: "dUnE"}, true},
		{"search author", Params{Search: "herbert"}, true},
		{"search category", Params{Search: "scif"}, true},
		{"search miss", Params{Search: "nonexistent"}, false},
		{"category exact", Params{Category: "SciFi"}, true},
		{"category is not substring", Params{Category: "Sci"}, false},
		{"category is case-sensitive", Params{Category: "scifi"}, false},
		{"author substring", Params{Author: "FRANK"}, true},
		{"year hit", Params{Year: intPtr(1965)}, true},
		{"year miss", Params{Year: intPtr(1966)}, false},
		{"owner hit", Params{Owner: &owner}, true},
		{"and of all", Params{Search: "dune", Category: "SciFi", Author: "herb", Year: intPtr(1965)}, true},
		{"and fails on one clause", Params{Search: "dune", Category: "Fantasy"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.params).Match(dune))
		})
	}
}

func TestByCategory(t *testing.T) {
	f := ByCategory("History")
	assert.Equal(t, bson.D{{Key: "category", Value: "History"}}, f.BSON())
	assert.True(t, f.Match(&models.Book{Category: "History"}))
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name        string
		page, limit string
		want        Page
	}{
		{"defaults", "", "", Page{Number: 1, Limit: 10}},
		{"explicit", "3", "25", Page{Number: 3, Limit: 25}},
		{"non numeric", "abc", "x1", Page{Number: 1, Limit: 10}},
		{"zero and negative", "0", "-5", Page{Number: 1, Limit: 10}},
		{"whitespace", " 2 ", " 5", Page{Number: 2, Limit: 5}},
		{"max int limit", "1", "9223372036854775807", Page{Number: 1, Limit: math.MaxInt}},
		{"out of range falls back", "99999999999999999999", "", Page{Number: 1, Limit: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePage(tt.page, tt.limit))
		})
	}
}

func TestPage_SkipAndPages(t *testing.T) {
	p := Page{Number: 3, Limit: 10}
	assert.Equal(t, int64(20), p.Skip())

	assert.Equal(t, 0, p.Pages(0))
	assert.Equal(t, 1, p.Pages(1))
	assert.Equal(t, 1, p.Pages(10))
	assert.Equal(t, 2, p.Pages(11))
	assert.Equal(t, 3, Page{Number: 1, Limit: 4}.Pages(9))
}

func TestPage_ExtremeValuesDoNotOverflow(t *testing.T) {
	tests := []struct {
		name      string
		page      Page
		total     int64
		wantSkip  int64
		wantPages int
	}{
		{"max limit", Page{Number: 1, Limit: math.MaxInt}, 3, 0, 1},
		{"max limit second page", Page{Number: 2, Limit: math.MaxInt}, 3, math.MaxInt64, 1},
		{"max page", Page{Number: math.MaxInt, Limit: 10}, 23, math.MaxInt64, 3},
		{"page 1e18+1", ParsePage("1000000000000000001", "10"), 23, math.MaxInt64, 3},
		{"both max", Page{Number: math.MaxInt, Limit: math.MaxInt}, math.MaxInt64, math.MaxInt64, 1},
		{"exact fit", Page{Number: 1, Limit: 5}, 10, 0, 2},
		{"no limit", All(), 23, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantSkip, tt.page.Skip())
			assert.GreaterOrEqual(t, tt.page.Skip(), int64(0))
			assert.Equal(t, tt.wantPages, tt.page.Pages(tt.total))
		})
	}
}

func TestParseYear(t *testing.T) {
	y, err := ParseYear("")
	require.NoError(t, err)
	assert.Nil(t, y)

	y, err = ParseYear("1965")
	require.NoError(t, err)
	require.NotNil(t, y)
	assert.Equal(t, 1965, *y)

	_, err = ParseYear("nineteen")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}
