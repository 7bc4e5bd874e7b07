package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type stubBackend struct {
	docs      []bson.M
	listCalls int
	listErr   error
	getErr    error
	updateErr error
}

func (s *stubBackend) insert(ctx context.Context, doc bson.M) (string, error) {
	s.docs = append(s.docs, doc)
	return "new-id", nil
}

func (s *stubBackend) get(ctx context.Context, id string) (bson.M, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, d := range s.docs {
		if d["id"] == id {
			return d, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *stubBackend) list(ctx context.Context) ([]bson.M, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.docs, nil
}

func (s *stubBackend) update(ctx context.Context, id string, set bson.M) error {
	return s.updateErr
}

func (s *stubBackend) remove(ctx context.Context, id string) error {
	return nil
}

// mapCache is a minimal Cache with no expiry, enough to observe what the
// client reads and writes.
type mapCache struct {
	entries map[string][]byte
	getErr  error
	setErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (m *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	data, ok := m.entries[key]
	return data, ok, nil
}

func (m *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = value
	return nil
}

func (m *mapCache) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestListAllCachesSnapshot(t *testing.T) {
	be := &stubBackend{docs: []bson.M{{"id": "1", "title": "A"}}}
	c := newClient("listings", be, newMapCache(), 30*time.Second, testLogger())

	first, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, 1, be.listCalls, "second read must be served from cache")
}

func TestListAllServesStaleSnapshotAfterWrite(t *testing.T) {
	be := &stubBackend{docs: []bson.M{{"id": "1", "title": "old"}}}
	c := newClient("listings", be, newMapCache(), 30*time.Second, testLogger())

	_, err := c.ListAll(context.Background())
	require.NoError(t, err)

	// Writes do not purge; readers see the old snapshot until expiry.
	require.NoError(t, c.Update(context.Background(), "1", bson.M{"title": "new"}))
	be.docs[0]["title"] = "new"

	docs, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old", docs[0]["title"])
	assert.Equal(t, 1, be.listCalls)
}

func TestListAllFreshBypassesCache(t *testing.T) {
	be := &stubBackend{docs: []bson.M{{"id": "1"}}}
	c := newClient("listings", be, newMapCache(), 30*time.Second, testLogger())

	_, err := c.ListAll(context.Background())
	require.NoError(t, err)
	_, err = c.ListAllFresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, be.listCalls)
}

func TestListAllFallsThroughOnCacheFailure(t *testing.T) {
	be := &stubBackend{docs: []bson.M{{"id": "1"}}}
	cache := newMapCache()
	cache.getErr = errors.New("cache down")
	cache.setErr = errors.New("cache down")
	c := newClient("listings", be, cache, 30*time.Second, testLogger())

	docs, err := c.ListAll(context.Background())
	require.NoError(t, err, "cache failure must not fail the read")
	assert.Len(t, docs, 1)
}

func TestListAllDiscardsCorruptCacheEntry(t *testing.T) {
	be := &stubBackend{docs: []bson.M{{"id": "1"}}}
	cache := newMapCache()
	cache.entries["listings"] = []byte("{not json")
	c := newClient("listings", be, cache, 30*time.Second, testLogger())

	docs, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, be.listCalls)
}

func TestGetNeverUsesCache(t *testing.T) {
	be := &stubBackend{docs: []bson.M{{"id": "1", "title": "A"}}}
	cache := newMapCache()
	cache.getErr = errors.New("cache down")
	c := newClient("listings", be, cache, 30*time.Second, testLogger())

	doc, err := c.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "A", doc["title"])
}

func TestGetMissingDocument(t *testing.T) {
	c := newClient("listings", &stubBackend{}, newMapCache(), time.Second, testLogger())
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAllMapsBackendErrors(t *testing.T) {
	be := &stubBackend{listErr: context.DeadlineExceeded}
	c := newClient("listings", be, newMapCache(), time.Second, testLogger())

	_, err := c.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(mongo.ErrNoDocuments), ErrNotFound)
	assert.ErrorIs(t, mapError(ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, mapError(context.DeadlineExceeded), ErrUnavailable)

	err := mapError(mongo.CommandError{Code: 13, Message: "not authorized"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = mapError(mongo.CommandError{Code: 18, Message: "auth failed"})
	assert.ErrorIs(t, err, ErrAuthRequired)

	err = mapError(errors.New("boom"))
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "backend error")
}
