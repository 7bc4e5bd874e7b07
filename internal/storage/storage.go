// Package storage holds listing photo bytes. The application talks to an
// ObjectStore through the Uploader, which adds the anonymous-session gate and
// transient-failure retries the raw store does not provide.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Object describes one stored blob as callers see it after a successful
// upload. SortOrder starts at 0; the listing service renumbers photos when it
// attaches them to a listing.
type Object struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"uploaded_at"`
	SortOrder  int       `json:"sort_order"`
}

type ObjectStore interface {
	Put(ctx context.Context, path, contentType string, data io.Reader) error
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

var ErrObjectNotFound = errors.New("object not found")

// GridFS keeps blobs in a Mongo GridFS bucket and serves them from the
// public /media/ route.
type GridFS struct {
	bucket  *gridfs.Bucket
	baseURL string
}

func NewGridFS(database *mongo.Database, publicBaseURL string) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(database, options.GridFSBucket().SetName("media"))
	if err != nil {
		return nil, err
	}
	return &GridFS{
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (g *GridFS) Put(ctx context.Context, path, contentType string, data io.Reader) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := g.bucket.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{
		"content_type": contentType,
		"uploaded_at":  time.Now().UTC(),
	})
	_, err := g.bucket.UploadFromStream(path, data, opts)
	return err
}

func (g *GridFS) Delete(ctx context.Context, path string) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := g.bucket.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}

	cursor, err := g.bucket.Find(bson.M{"filename": path})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	found := false
	for cursor.Next(ctx) {
		var file struct {
			ID interface{} `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return err
		}
		if err := g.bucket.Delete(file.ID); err != nil {
			return err
		}
		found = true
	}
	if err := cursor.Err(); err != nil {
		return err
	}
	if !found {
		return ErrObjectNotFound
	}
	return nil
}

func (g *GridFS) URL(path string) string {
	return g.baseURL + "/media/" + path
}

// Open returns a reader over the stored blob plus its content type.
func (g *GridFS) Open(path string) (io.ReadCloser, string, error) {
	stream, err := g.bucket.OpenDownloadStreamByName(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", err
	}

	contentType := "application/octet-stream"
	if file := stream.GetFile(); file != nil && file.Metadata != nil {
		if ct, err := file.Metadata.LookupErr("content_type"); err == nil {
			if s, ok := ct.StringValueOK(); ok && s != "" {
				contentType = s
			}
		}
	}
	return stream, contentType, nil
}
