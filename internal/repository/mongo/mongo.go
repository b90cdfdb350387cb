// Package mongo implements repository.Store on MongoDB.
//
// Documents reference each other by ObjectID; the hex form is the id the
// rest of the application sees. Reads that need owners or counts are single
// aggregations and the publish flag flips in one FindOneAndUpdate. Likes and
// subscriptions exist only while active: toggling deletes the document or
// inserts it, with the unique indexes settling concurrent first toggles.
//
// The $lookup stages use the localField plus pipeline form, which needs
// MongoDB 5.0 or newer.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/metrics"
	"github.com/sakif/videotube/internal/repository"
)

const backend = "mongo"

var _ repository.Store = (*DB)(nil)

// DB implements repository.Store.
type DB struct {
	client *mongodrv.Client
	db     *mongodrv.Database
}

// New connects to uri, selects database and creates the indexes the
// uniqueness rules depend on.
func New(ctx context.Context, uri, database string) (*DB, error) {
	client, err := mongodrv.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	db := &DB{client: client, db: client.Database(database)}
	if err := db.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: creating indexes: %w", err)
	}
	return db, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, nil)
}

func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}

func (db *DB) col(name string) *mongodrv.Collection {
	return db.db.Collection(name)
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	exists := func(field string) *options.IndexOptions {
		return options.Index().SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}}}})
	}

	indexes := map[string][]mongodrv.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colVideos: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "isPublished", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colComments: {
			{Keys: bson.D{{Key: "video", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		colTweets: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		colLikes: {
			{Keys: bson.D{{Key: "likedBy", Value: 1}, {Key: "video", Value: 1}}, Options: exists("video")},
			{Keys: bson.D{{Key: "likedBy", Value: 1}, {Key: "comment", Value: 1}}, Options: exists("comment")},
			{Keys: bson.D{{Key: "likedBy", Value: 1}, {Key: "tweet", Value: 1}}, Options: exists("tweet")},
		},
		colPlaylists: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "channel", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.col(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// now truncates to milliseconds, the precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func observe(op string, start time.Time, err *error) {
	metrics.ObserveStore(backend, op, start, err)
}

// objectID parses a hex id. Anything that is not a valid ObjectID cannot
// name a stored document, so it is reported as NotFound.
func objectID(resource, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound(resource, id)
	}
	return oid, nil
}

// optionalObjectID is objectID for ids that may be absent or malformed, such
// as an anonymous viewer. Both map to the zero ObjectID.
func optionalObjectID(id string) primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongodrv.ErrNoDocuments)
}

// exists reports whether a document with _id oid is in collection name.
func (db *DB) exists(ctx context.Context, name string, oid primitive.ObjectID) (bool, error) {
	n, err := db.col(name).CountDocuments(ctx, bson.D{{Key: "_id", Value: oid}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo: checking %s %s: %w", name, oid.Hex(), err)
	}
	return n > 0, nil
}

// aggregateOne runs pipeline and decodes the first result into out. It
// reports false when the pipeline produced nothing.
func (db *DB) aggregateOne(ctx context.Context, name string, pipeline mongodrv.Pipeline, out any) (bool, error) {
	cur, err := db.col(name).Aggregate(ctx, pipeline)
	if err != nil {
		return false, err
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		return false, cur.Err()
	}
	return true, cur.Decode(out)
}

// aggregateAll runs pipeline and decodes every result into out, a pointer to
// a slice.
func (db *DB) aggregateAll(ctx context.Context, name string, pipeline mongodrv.Pipeline, out any) error {
	cur, err := db.col(name).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}
