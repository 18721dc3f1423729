package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"libraryapi/models"
	"libraryapi/query"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryBooks keeps books in a map. It evaluates query.Filter in process.
type MemoryBooks struct {
	mu    sync.RWMutex
	books map[bson.ObjectID]models.Book
}

func NewMemoryBooks() *MemoryBooks {
	return &MemoryBooks{books: make(map[bson.ObjectID]models.Book)}
}

func (r *MemoryBooks) Create(ctx context.Context, b *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID.IsZero() {
		b.ID = bson.NewObjectID()
	}
	r.books[b.ID] = *b
	return nil
}

func (r *MemoryBooks) FindByID(ctx context.Context, id string) (*models.Book, error) {
	oid, err := parseID(id, errBookNotFound)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[oid]
	if !ok {
		return nil, errBookNotFound
	}
	return &b, nil
}

// sorted returns copies of the matching books, newest first.
func (r *MemoryBooks) sorted(f query.Filter) []*models.Book {
	out := make([]*models.Book, 0, len(r.books))
	for _, b := range r.books {
		if f.Match(&b) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out
}

func newer(at time.Time, id bson.ObjectID, otherAt time.Time, otherID bson.ObjectID) bool {
	if !at.Equal(otherAt) {
		return at.After(otherAt)
	}
	return bytes.Compare(id[:], otherID[:]) > 0
}

func (r *MemoryBooks) Find(ctx context.Context, f query.Filter, page query.Page) ([]*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sorted(f)
	skip := page.Skip()
	if skip >= int64(len(all)) {
		return []*models.Book{}, nil
	}
	all = all[skip:]
	if page.Limit > 0 && len(all) > page.Limit {
		all = all[:page.Limit]
	}
	return all, nil
}

func (r *MemoryBooks) Count(ctx context.Context, f query.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, b := range r.books {
		if f.Match(&b) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryBooks) Update(ctx context.Context, id bson.ObjectID, u models.BookUpdate) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[id]
	if !ok {
		return nil, errBookNotFound
	}
	u.Apply(&b)
	r.books[id] = b
	return &b, nil
}

func (r *MemoryBooks) Delete(ctx context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[id]; !ok {
		return errBookNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *MemoryBooks) RenameCategory(ctx context.Context, oldName, newName string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, b := range r.books {
		if b.Category == oldName {
			b.Category = newName
			r.books[id] = b
			n++
		}
	}
	return n, nil
}

func (r *MemoryBooks) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	r.mu.RLock()
	counts := make(map[string]int64)
	for _, b := range r.books {
		counts[b.Category]++
	}
	r.mu.RUnlock()

	out := make([]models.CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.CategoryCount{Category: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (r *MemoryBooks) CountByAuthor(ctx context.Context, limit int) ([]models.AuthorCount, error) {
	r.mu.RLock()
	counts := make(map[string]int64)
	for _, b := range r.books {
		counts[b.Author]++
	}
	r.mu.RUnlock()

	out := make([]models.AuthorCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.AuthorCount{Author: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Author < out[j].Author
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryBooks) CountByMonth(ctx context.Context, limit int) ([]models.MonthCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	times := make([]time.Time, 0, len(r.books))
	for _, b := range r.books {
		times = append(times, b.CreatedAt)
	}
	return bucketByMonth(times, limit), nil
}

func (r *MemoryBooks) DistinctCategories(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, b := range r.books {
		if !seen[b.Category] {
			seen[b.Category] = true
			out = append(out, b.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryBooks) Recent(ctx context.Context, limit int) ([]*models.Book, error) {
	return r.Find(ctx, query.Filter{}, query.Page{Number: 1, Limit: limit})
}

// bucketByMonth mirrors the Mongo month aggregation: UTC calendar months,
// newest first, at most limit buckets.
func bucketByMonth(times []time.Time, limit int) []models.MonthCount {
	type key struct{ year, month int }
	counts := make(map[key]int64)
	for _, t := range times {
		t = t.UTC()
		counts[key{t.Year(), int(t.Month())}]++
	}

	out := make([]models.MonthCount, 0, len(counts))
	for k, n := range counts {
		m := models.MonthCount{Year: k.year, Month: k.month, Count: n}
		m.Period = m.Label()
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MemoryCategories enforces unique names like the Mongo index does.
type MemoryCategories struct {
	mu   sync.RWMutex
	cats map[bson.ObjectID]models.Category
}

func NewMemoryCategories() *MemoryCategories {
	return &MemoryCategories{cats: make(map[bson.ObjectID]models.Category)}
}

func (r *MemoryCategories) nameTaken(name string, except bson.ObjectID) bool {
	for id, c := range r.cats {
		if c.Name == name && id != except {
			return true
		}
	}
	return false
}

func (r *MemoryCategories) Create(ctx context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(c.Name, bson.NilObjectID) {
		return errCategoryExists
	}
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	r.cats[c.ID] = *c
	return nil
}

func (r *MemoryCategories) FindByID(ctx context.Context, id string) (*models.Category, error) {
	oid, err := parseID(id, errCategoryNotFound)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cats[oid]
	if !ok {
		return nil, errCategoryNotFound
	}
	return &c, nil
}

func (r *MemoryCategories) FindByName(ctx context.Context, name string) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.cats {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, errCategoryNotFound
}

func (r *MemoryCategories) List(ctx context.Context) ([]*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Category, 0, len(r.cats))
	for _, c := range r.cats {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryCategories) Update(ctx context.Context, id bson.ObjectID, in models.CategoryInput, now time.Time) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cats[id]
	if !ok {
		return nil, errCategoryNotFound
	}
	if r.nameTaken(in.Name, id) {
		return nil, errCategoryExists
	}
	c.Name = in.Name
	c.Description = in.Description
	c.UpdatedAt = now
	r.cats[id] = c
	return &c, nil
}

func (r *MemoryCategories) Delete(ctx context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cats[id]; !ok {
		return errCategoryNotFound
	}
	delete(r.cats, id)
	return nil
}

func (r *MemoryCategories) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.cats)), nil
}

// MemoryUsers enforces unique usernames and emails like the Mongo indexes do.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[bson.ObjectID]models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[bson.ObjectID]models.User)}
}

func (r *MemoryUsers) taken(username, email string, except bson.ObjectID) bool {
	for id, u := range r.users {
		if id == except {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true
		}
	}
	return false
}

func public(u models.User) *models.User {
	u.Password = ""
	return &u
}

func (r *MemoryUsers) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(u.Username, u.Email, bson.NilObjectID) {
		return errUserExists
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id, errUserNotFound)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[oid]
	if !ok {
		return nil, errUserNotFound
	}
	return public(u), nil
}

func (r *MemoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, errUserNotFound
}

func (r *MemoryUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return public(u), nil
		}
	}
	return nil, errUserNotFound
}

func (r *MemoryUsers) FindByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[bson.ObjectID]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = public(u)
		}
	}
	return out, nil
}

func (r *MemoryUsers) List(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, public(u))
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

func (r *MemoryUsers) Update(ctx context.Context, id bson.ObjectID, upd models.UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, errUserNotFound
	}

	var username, email string
	if upd.Username != nil {
		username = *upd.Username
	}
	if upd.Email != nil {
		email = *upd.Email
	}
	if r.taken(username, email, id) {
		return nil, errUserExists
	}

	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	u.UpdatedAt = upd.UpdatedAt
	r.users[id] = u
	return public(u), nil
}

func (r *MemoryUsers) Delete(ctx context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return errUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUsers) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *MemoryUsers) CountByMonth(ctx context.Context, limit int) ([]models.MonthCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	times := make([]time.Time, 0, len(r.users))
	for _, u := range r.users {
		times = append(times, u.CreatedAt)
	}
	return bucketByMonth(times, limit), nil
}
