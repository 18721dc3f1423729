package repository

import (
	"context"
	"errors"

	"libraryapi/models"
	"libraryapi/query"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

type MongoBooks struct {
	coll *mongo.Collection
}

func NewMongoBooks(db *mongo.Database) *MongoBooks {
	return &MongoBooks{coll: db.Collection(BooksCollection)}
}

func (r *MongoBooks) Create(ctx context.Context, b *models.Book) error {
	if b.ID.IsZero() {
		b.ID = bson.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		return dbError(err)
	}
	return nil
}

func (r *MongoBooks) FindByID(ctx context.Context, id string) (*models.Book, error) {
	oid, err := parseID(id, errBookNotFound)
	if err != nil {
		return nil, err
	}

	var b models.Book
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errBookNotFound
	}
	if err != nil {
		return nil, dbError(err)
	}
	return &b, nil
}

func (r *MongoBooks) Find(ctx context.Context, f query.Filter, page query.Page) ([]*models.Book, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	return r.find(ctx, f.BSON(), opts)
}

func (r *MongoBooks) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]*models.Book, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, dbError(err)
	}
	defer cursor.Close(ctx)

	books := []*models.Book{}
	if err := cursor.All(ctx, &books); err != nil {
		return nil, dbError(err)
	}
	return books, nil
}

func (r *MongoBooks) Count(ctx context.Context, f query.Filter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, f.BSON())
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

func (r *MongoBooks) Update(ctx context.Context, id bson.ObjectID, u models.BookUpdate) (*models.Book, error) {
	set := bson.D{
		{Key: "title", Value: u.Title},
		{Key: "author", Value: u.Author},
		{Key: "category", Value: u.Category},
		{Key: "updatedAt", Value: u.UpdatedAt},
	}
	if u.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *u.Description})
	}
	if u.ISBN != nil {
		set = append(set, bson.E{Key: "isbn", Value: *u.ISBN})
	}
	if u.PublishedYear != nil {
		set = append(set, bson.E{Key: "publishedYear", Value: *u.PublishedYear})
	}
	if u.CoverImage != nil {
		set = append(set, bson.E{Key: "coverImage", Value: *u.CoverImage})
	}

	var b models.Book
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errBookNotFound
	}
	if err != nil {
		return nil, dbError(err)
	}
	return &b, nil
}

func (r *MongoBooks) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return dbError(err)
	}
	if res.DeletedCount == 0 {
		return errBookNotFound
	}
	return nil
}

func (r *MongoBooks) RenameCategory(ctx context.Context, oldName, newName string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		query.ByCategory(oldName).BSON(),
		bson.D{{Key: "$set", Value: bson.D{{Key: "category", Value: newName}}}},
	)
	if err != nil {
		return 0, dbError(err)
	}
	return res.MatchedCount, nil
}

func (r *MongoBooks) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$category"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}, {Key: "category", Value: "$_id"}, {Key: "count", Value: 1}}}},
	}
	out := []models.CategoryCount{}
	return out, r.aggregate(ctx, pipeline, &out)
}

func (r *MongoBooks) CountByAuthor(ctx context.Context, limit int) ([]models.AuthorCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$author"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}, {Key: "author", Value: "$_id"}, {Key: "count", Value: 1}}}},
	}
	out := []models.AuthorCount{}
	return out, r.aggregate(ctx, pipeline, &out)
}

func (r *MongoBooks) CountByMonth(ctx context.Context, limit int) ([]models.MonthCount, error) {
	return countByMonth(ctx, r.coll, limit)
}

func (r *MongoBooks) DistinctCategories(ctx context.Context) ([]string, error) {
	res := r.coll.Distinct(ctx, "category", bson.D{})
	if err := res.Err(); err != nil {
		return nil, dbError(err)
	}
	cats := []string{}
	if err := res.Decode(&cats); err != nil {
		return nil, dbError(err)
	}
	return cats, nil
}

func (r *MongoBooks) Recent(ctx context.Context, limit int) ([]*models.Book, error) {
	return r.find(ctx, bson.D{}, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
}

func (r *MongoBooks) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return dbError(err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return dbError(err)
	}
	return nil
}

// countByMonth buckets a collection by the calendar month (UTC) of
// createdAt, newest first.
func countByMonth(ctx context.Context, coll *mongo.Collection, limit int) ([]models.MonthCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "year", Value: bson.D{{Key: "$year", Value: "$createdAt"}}},
				{Key: "month", Value: bson.D{{Key: "$month", Value: "$createdAt"}}},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: -1}, {Key: "_id.month", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "year", Value: "$_id.year"},
			{Key: "month", Value: "$_id.month"},
			{Key: "count", Value: 1},
		}}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, dbError(err)
	}
	defer cursor.Close(ctx)

	out := []models.MonthCount{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, dbError(err)
	}
	for i := range out {
		out[i].Period = out[i].Label()
	}
	return out, nil
}
