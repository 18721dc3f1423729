package repository

import (
	"context"
	"errors"

	"libraryapi/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var withoutPassword = bson.D{{Key: "password", Value: 0}}

type MongoUsers struct {
	coll *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{coll: db.Collection(UsersCollection)}
}

func (r *MongoUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return errUserExists
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

func (r *MongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id, errUserNotFound)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}}, options.FindOne().SetProjection(withoutPassword))
}

func (r *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}}, options.FindOne())
}

func (r *MongoUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "username", Value: username}}, options.FindOne().SetProjection(withoutPassword))
}

func (r *MongoUsers) findOne(ctx context.Context, filter bson.D, opts *options.FindOneOptionsBuilder) (*models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, filter, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, dbError(err)
	}
	return &u, nil
}

func (r *MongoUsers) FindByIDs(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*models.User, error) {
	out := make(map[bson.ObjectID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	users, err := r.find(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}},
		options.Find().SetProjection(withoutPassword))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *MongoUsers) List(ctx context.Context) ([]*models.User, error) {
	return r.find(ctx, bson.D{}, options.Find().
		SetProjection(withoutPassword).
		SetSort(newestFirst))
}

func (r *MongoUsers) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]*models.User, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, dbError(err)
	}
	defer cursor.Close(ctx)

	users := []*models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, dbError(err)
	}
	return users, nil
}

func (r *MongoUsers) Update(ctx context.Context, id bson.ObjectID, u models.UserUpdate) (*models.User, error) {
	set := bson.D{{Key: "updatedAt", Value: u.UpdatedAt}}
	if u.Username != nil {
		set = append(set, bson.E{Key: "username", Value: *u.Username})
	}
	if u.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *u.Email})
	}
	if u.Password != nil {
		set = append(set, bson.E{Key: "password", Value: *u.Password})
	}

	var out models.User
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(withoutPassword),
	).Decode(&out)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, errUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, errUserExists
	case err != nil:
		return nil, dbError(err)
	}
	return &out, nil
}

func (r *MongoUsers) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return dbError(err)
	}
	if res.DeletedCount == 0 {
		return errUserNotFound
	}
	return nil
}

func (r *MongoUsers) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

func (r *MongoUsers) CountByMonth(ctx context.Context, limit int) ([]models.MonthCount, error) {
	return countByMonth(ctx, r.coll, limit)
}
