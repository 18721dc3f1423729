package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"libraryapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, "alice", models.RoleUser)

	start := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	add := func(title, author, category string, monthsLater int) {
		f.bookSvc.now = func() time.Time { return start.AddDate(0, monthsLater, 0) }
		_, err := f.bookSvc.Create(ctx, &models.BookInput{Title: title, Author: author, Category: category}, nil, owner)
		require.NoError(t, err)
	}
	for i := 0; i < 14; i++ {
		add(fmt.Sprintf("Vol %d", i), "Herbert", "SciFi", i)
	}
	add("Emma", "Austen", "Romance", 13)
	add("Persuasion", "Austen", "Romance", 13)
	add("Ulysses", "Joyce", "Classics", 2)

	summary, err := f.analytics.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(17), summary.TotalBooks)
	assert.Equal(t, int64(1), summary.TotalUsers)
	assert.Equal(t, 3, summary.TotalCategories)
	require.Len(t, summary.RecentBooks, 5)
	for i := 1; i < len(summary.RecentBooks); i++ {
		assert.False(t, summary.RecentBooks[i].CreatedAt.After(summary.RecentBooks[i-1].CreatedAt))
	}
	assert.Equal(t, "alice", summary.RecentBooks[0].AddedBy.Username)

	byCat, err := f.analytics.BooksByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryCount{
		{Category: "SciFi", Count: 14},
		{Category: "Romance", Count: 2},
		{Category: "Classics", Count: 1},
	}, byCat)

	byAuthor, err := f.analytics.BooksByAuthor(ctx)
	require.NoError(t, err)
	require.Len(t, byAuthor, 3)
	assert.Equal(t, models.AuthorCount{Author: "Herbert", Count: 14}, byAuthor[0])

	byMonth, err := f.analytics.BooksByMonth(ctx)
	require.NoError(t, err)
	require.Len(t, byMonth, 12)
	assert.Equal(t, "Aug 2024", byMonth[0].Period)
	assert.Equal(t, "Jul 2025", byMonth[11].Period)
	assert.Equal(t, int64(3), byMonth[11].Count)

	stats, err := f.analytics.UserStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Count)
}
