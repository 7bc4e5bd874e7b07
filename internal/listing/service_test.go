package listing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bmbroch/ceylonstay/internal/storage"
	"github.com/bmbroch/ceylonstay/internal/store"
)

type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]bson.M
	nextID    int
	createErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]bson.M{}}
}

func (f *fakeStore) Create(ctx context.Context, doc bson.M) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := "listing-" + string(rune('0'+f.nextID))
	copied := bson.M{"id": id}
	for k, v := range doc {
		copied[k] = v
	}
	f.docs[id] = copied
	return id, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (bson.M, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, partial bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range partial {
		doc[k] = v
	}
	return nil
}

type fakeUploads struct {
	mu       sync.Mutex
	uploaded []string
	removed  []string
	failSub  string
	failErr  error
}

func (f *fakeUploads) Upload(ctx context.Context, path, contentType string, data []byte) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSub != "" && strings.Contains(path, f.failSub) {
		return storage.Object{}, f.failErr
	}
	f.uploaded = append(f.uploaded, path)
	return storage.Object{ID: "photo-" + path, URL: "https://cdn/" + path, Path: path}, nil
}

func (f *fakeUploads) Remove(ctx context.Context, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func newTestService(st Store, up Uploads) *Service {
	return NewService(st, up, testLogger(), fixedNow)
}

func photoUploads(names ...string) []PhotoUpload {
	out := make([]PhotoUpload, len(names))
	for i, n := range names {
		out[i] = PhotoUpload{Name: n, ContentType: "image/jpeg", Data: []byte("bytes")}
	}
	return out
}

func TestCreateRequiresPhotos(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeUploads{})
	_, err := svc.Create(context.Background(), CreateRequest{Title: "T"}, nil)
	assert.ErrorIs(t, err, ErrNoPhotos)
}

func TestCreateUploadsThenInserts(t *testing.T) {
	st := newFakeStore()
	up := &fakeUploads{}
	svc := newTestService(st, up)

	item, err := svc.Create(context.Background(), CreateRequest{
		Title:         "Ocean View Villa",
		Description:   "Nice place",
		Location:      "Weligama",
		Bedrooms:      3,
		PricePerNight: 120,
		PricePerMonth: 2000,
		PricingMode:   PricingPerNight,
		AvailableDate: "2099-01-01",
	}, photoUploads("front.jpg", "back.jpg"))
	require.NoError(t, err)

	assert.Len(t, up.uploaded, 2)
	assert.Len(t, item.Photos, 2)
	for i, p := range item.Photos {
		assert.Equal(t, i, p.SortOrder)
	}
	assert.True(t, item.IsListed, "new listings default to listed")
	assert.Equal(t, 120, item.PricePerNight)
	assert.Equal(t, 0, item.PricePerMonth, "price the mode ignores is zeroed")
	assert.False(t, item.Availability.IsNow())
}

func TestCreateMonthlyModeZeroesNightly(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeUploads{})

	item, err := svc.Create(context.Background(), CreateRequest{
		Title:         "Cabin",
		Description:   "d",
		Location:      "Ella",
		PricePerNight: 45,
		PricePerMonth: 900,
		PricingMode:   PricingPerMonth,
	}, photoUploads("cabin.jpg"))
	require.NoError(t, err)

	assert.Equal(t, 0, item.PricePerNight)
	assert.Equal(t, 900, item.PricePerMonth)
}

func TestCreateFailedUploadWritesNothing(t *testing.T) {
	st := newFakeStore()
	up := &fakeUploads{failSub: "broken", failErr: &storage.RetryError{Path: "p", Retries: 3, Err: errors.New("timeout")}}
	svc := newTestService(st, up)

	_, err := svc.Create(context.Background(), CreateRequest{
		Title: "T", Description: "d", Location: "l",
	}, photoUploads("ok-one.jpg", "broken.jpg", "ok-two.jpg"))

	var retryErr *storage.RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Empty(t, st.docs, "no record may be written when an upload fails")
	// Blobs that did land are released.
	assert.ElementsMatch(t, up.uploaded, up.removed)
}

func TestCreateInsertFailureReleasesBlobs(t *testing.T) {
	st := newFakeStore()
	st.createErr = errors.New("insert failed")
	up := &fakeUploads{}
	svc := newTestService(st, up)

	_, err := svc.Create(context.Background(), CreateRequest{
		Title: "T", Description: "d", Location: "l",
	}, photoUploads("a.jpg", "b.jpg"))

	require.Error(t, err)
	assert.ElementsMatch(t, up.uploaded, up.removed)
}

func TestUpdateMergesOnlyProvidedFields(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, &fakeUploads{})
	created, err := svc.Create(context.Background(), CreateRequest{
		Title: "Old", Description: "d", Location: "Galle", PricePerNight: 80,
	}, photoUploads("a.jpg"))
	require.NoError(t, err)

	title := "New Title"
	updated, err := svc.Update(context.Background(), created.ID, UpdateRequest{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "Galle", updated.Location)
	assert.Equal(t, 80, updated.PricePerNight)
}

func TestUpdateUnknownListing(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeUploads{})
	title := "x"
	_, err := svc.Update(context.Background(), "missing", UpdateRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetListed(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, &fakeUploads{})
	created, err := svc.Create(context.Background(), CreateRequest{
		Title: "T", Description: "d", Location: "l",
	}, photoUploads("a.jpg"))
	require.NoError(t, err)

	updated, err := svc.SetListed(context.Background(), created.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsListed)
}

func TestAddPhotosAppendsAndRenumbers(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, &fakeUploads{})
	created, err := svc.Create(context.Background(), CreateRequest{
		Title: "T", Description: "d", Location: "l",
	}, photoUploads("a.jpg"))
	require.NoError(t, err)

	updated, err := svc.AddPhotos(context.Background(), created.ID, photoUploads("b.jpg", "c.jpg"))
	require.NoError(t, err)

	require.Len(t, updated.Photos, 3)
	for i, p := range updated.Photos {
		assert.Equal(t, i, p.SortOrder)
	}
}

func TestRemovePhotoDeletesBlobBestEffort(t *testing.T) {
	st := newFakeStore()
	up := &fakeUploads{}
	svc := newTestService(st, up)
	created, err := svc.Create(context.Background(), CreateRequest{
		Title: "T", Description: "d", Location: "l",
	}, photoUploads("a.jpg", "b.jpg"))
	require.NoError(t, err)

	target := created.Photos[0]
	updated, err := svc.RemovePhoto(context.Background(), created.ID, target.ID)
	require.NoError(t, err)

	require.Len(t, updated.Photos, 1)
	assert.Equal(t, 0, updated.Photos[0].SortOrder)
	assert.Contains(t, up.removed, target.Path)
}

func TestRemovePhotoUnknownID(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, &fakeUploads{})
	created, err := svc.Create(context.Background(), CreateRequest{
		Title: "T", Description: "d", Location: "l",
	}, photoUploads("a.jpg"))
	require.NoError(t, err)

	_, err = svc.RemovePhoto(context.Background(), created.ID, "nope")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestReorderPhotos(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, &fakeUploads{})
	created, err := svc.Create(context.Background(), CreateRequest{
		Title: "T", Description: "d", Location: "l",
	}, photoUploads("a.jpg", "b.jpg", "c.jpg"))
	require.NoError(t, err)

	ids := []string{created.Photos[2].ID, created.Photos[0].ID, created.Photos[1].ID}
	updated, err := svc.ReorderPhotos(context.Background(), created.ID, ids)
	require.NoError(t, err)

	for i, id := range ids {
		assert.Equal(t, id, updated.Photos[i].ID)
		assert.Equal(t, i, updated.Photos[i].SortOrder)
	}

	_, err = svc.ReorderPhotos(context.Background(), created.ID, ids[:2])
	assert.ErrorIs(t, err, ErrBadPhotoOrder)
}
