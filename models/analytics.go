package models

import "fmt"

var monthNames = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type CategoryCount struct {
	Category string `json:"category" bson:"category"`
	Count    int64  `json:"count" bson:"count"`
}

type AuthorCount struct {
	Author string `json:"author" bson:"author"`
	Count  int64  `json:"count" bson:"count"`
}

// MonthCount is a number of records created in one calendar month.
type MonthCount struct {
	Period string `json:"period" bson:"-"`
	Year   int    `json:"year" bson:"year"`
	Month  int    `json:"month" bson:"month"`
	Count  int64  `json:"count" bson:"count"`
}

// Label formats the bucket as "Jan 2025".
func (m MonthCount) Label() string {
	if m.Month < 1 || m.Month > 12 {
		return fmt.Sprintf("%d", m.Year)
	}
	return fmt.Sprintf("%s %d", monthNames[m.Month-1], m.Year)
}

type Summary struct {
	TotalBooks      int64      `json:"totalBooks"`
	TotalUsers      int64      `json:"totalUsers"`
	TotalCategories int        `json:"totalCategories"`
	RecentBooks     []BookView `json:"recentBooks"`
}
