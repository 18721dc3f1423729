package repository

import (
	"context"
	"errors"
	"time"

	"libraryapi/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoCategories relies on the unique index on name for conflicts.
type MongoCategories struct {
	coll *mongo.Collection
}

func NewMongoCategories(db *mongo.Database) *MongoCategories {
	return &MongoCategories{coll: db.Collection(CategoriesCollection)}
}

func (r *MongoCategories) Create(ctx context.Context, c *models.Category) error {
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return errCategoryExists
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

func (r *MongoCategories) FindByID(ctx context.Context, id string) (*models.Category, error) {
	oid, err := parseID(id, errCategoryNotFound)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *MongoCategories) FindByName(ctx context.Context, name string) (*models.Category, error) {
	return r.findOne(ctx, bson.D{{Key: "name", Value: name}})
}

func (r *MongoCategories) findOne(ctx context.Context, filter bson.D) (*models.Category, error) {
	var c models.Category
	err := r.coll.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errCategoryNotFound
	}
	if err != nil {
		return nil, dbError(err)
	}
	return &c, nil
}

func (r *MongoCategories) List(ctx context.Context) ([]*models.Category, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, dbError(err)
	}
	defer cursor.Close(ctx)

	cats := []*models.Category{}
	if err := cursor.All(ctx, &cats); err != nil {
		return nil, dbError(err)
	}
	return cats, nil
}

func (r *MongoCategories) Update(ctx context.Context, id bson.ObjectID, in models.CategoryInput, now time.Time) (*models.Category, error) {
	var c models.Category
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: in.Name},
			{Key: "description", Value: in.Description},
			{Key: "updatedAt", Value: now},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, errCategoryNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, errCategoryExists
	case err != nil:
		return nil, dbError(err)
	}
	return &c, nil
}

func (r *MongoCategories) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return dbError(err)
	}
	if res.DeletedCount == 0 {
		return errCategoryNotFound
	}
	return nil
}

func (r *MongoCategories) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}
