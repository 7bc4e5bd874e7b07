// Package store mediates all reads and writes between the application and the
// remote document collection. Reads of the full collection go through a
// short-lived cache keyed by collection name; single-document reads and all
// writes always hit the backend.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bmbroch/ceylonstay/internal/cache"
)

type backend interface {
	insert(ctx context.Context, doc bson.M) (string, error)
	get(ctx context.Context, id string) (bson.M, error)
	list(ctx context.Context) ([]bson.M, error)
	update(ctx context.Context, id string, set bson.M) error
	remove(ctx context.Context, id string) error
}

type Client struct {
	name  string
	be    backend
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewClient(col *mongo.Collection, c cache.Cache, ttl time.Duration, log *slog.Logger) *Client {
	return newClient(col.Name(), &mongoBackend{col: col}, c, ttl, log)
}

func newClient(name string, be backend, c cache.Cache, ttl time.Duration, log *slog.Logger) *Client {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Client{
		name:  name,
		be:    be,
		cache: c,
		ttl:   ttl,
		log:   log,
	}
}

// Create inserts a new document and returns its server-assigned identifier.
func (c *Client) Create(ctx context.Context, doc bson.M) (string, error) {
	id, err := c.be.insert(ctx, doc)
	if err != nil {
		return "", mapError(err)
	}
	return id, nil
}

// Get returns a single document by id. It never consults the cache.
func (c *Client) Get(ctx context.Context, id string) (bson.M, error) {
	doc, err := c.be.get(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return doc, nil
}

// ListAll returns every document in the collection. A fetch that completed
// within the cache TTL is returned as-is, so writes made since may not be
// visible until the entry expires.
func (c *Client) ListAll(ctx context.Context) ([]bson.M, error) {
	if data, ok, err := c.cache.Get(ctx, c.name); err == nil && ok {
		var docs []bson.M
		if err := json.Unmarshal(data, &docs); err == nil {
			return docs, nil
		}
		c.log.Warn("discarding unreadable cache entry", slog.String("collection", c.name))
	} else if err != nil {
		c.log.Warn("cache read failed", slog.String("collection", c.name), slog.String("error", err.Error()))
	}

	docs, err := c.ListAllFresh(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(docs); err == nil {
		if err := c.cache.Set(ctx, c.name, data, c.ttl); err != nil {
			c.log.Warn("cache write failed", slog.String("collection", c.name), slog.String("error", err.Error()))
		}
	}

	return docs, nil
}

// ListAllFresh bypasses the cache. Admin views use it so the operator always
// sees their own writes.
func (c *Client) ListAllFresh(ctx context.Context) ([]bson.M, error) {
	docs, err := c.be.list(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return docs, nil
}

// Update merges the given fields into an existing document. The cache is not
// purged; readers may observe the old snapshot until it expires.
func (c *Client) Update(ctx context.Context, id string, partial bson.M) error {
	return mapError(c.be.update(ctx, id, partial))
}

// Delete removes a document. Like Update it leaves the cache untouched.
func (c *Client) Delete(ctx context.Context, id string) error {
	return mapError(c.be.remove(ctx, id))
}

type mongoBackend struct {
	col *mongo.Collection
}

func (b *mongoBackend) insert(ctx context.Context, doc bson.M) (string, error) {
	id := primitive.NewObjectID().Hex()
	doc["_id"] = id
	if _, err := b.col.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (b *mongoBackend) get(ctx context.Context, id string) (bson.M, error) {
	var doc bson.M
	if err := b.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, err
	}
	return normalizeID(doc), nil
}

func (b *mongoBackend) list(ctx context.Context) ([]bson.M, error) {
	cursor, err := b.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]bson.M, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, normalizeID(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (b *mongoBackend) update(ctx context.Context, id string, set bson.M) error {
	res, err := b.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (b *mongoBackend) remove(ctx context.Context, id string) error {
	res, err := b.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeID exposes the backing _id as a plain "id" field so callers never
// deal with driver-specific identifier types.
func normalizeID(doc bson.M) bson.M {
	if id, ok := doc["_id"]; ok {
		switch v := id.(type) {
		case primitive.ObjectID:
			doc["id"] = v.Hex()
		case string:
			doc["id"] = v
		default:
			doc["id"] = v
		}
		delete(doc, "_id")
	}
	return doc
}
