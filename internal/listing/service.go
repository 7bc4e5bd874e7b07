package listing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/bmbroch/ceylonstay/internal/storage"
	"github.com/bmbroch/ceylonstay/internal/store"
)

var (
	ErrNotFound      = errors.New("listing not found")
	ErrPhotoNotFound = errors.New("photo not found")
	ErrNoPhotos      = errors.New("at least one photo is required")
)

// Store is the slice of the store client the service writes through.
type Store interface {
	Create(ctx context.Context, doc bson.M) (string, error)
	Get(ctx context.Context, id string) (bson.M, error)
	Update(ctx context.Context, id string, partial bson.M) error
}

// Uploads is the slice of the storage uploader the service depends on.
type Uploads interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (storage.Object, error)
	Remove(ctx context.Context, path string)
}

type CreateRequest struct {
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description" validate:"required"`
	Location      string `json:"location" validate:"required"`
	Bedrooms      int    `json:"bedrooms" validate:"gte=0"`
	Bathrooms     int    `json:"bathrooms" validate:"gte=0"`
	PricePerNight int    `json:"price_per_night" validate:"gte=0"`
	PricePerMonth int    `json:"price_per_month" validate:"gte=0"`
	PricingMode   string `json:"pricing_mode" validate:"omitempty,oneof=night month"`
	IsListed      *bool  `json:"is_listed"`
	AvailableDate string `json:"available_date" validate:"omitempty,availabledate"`
}

type UpdateRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=1"`
	Description   *string `json:"description" validate:"omitempty,min=1"`
	Location      *string `json:"location" validate:"omitempty,min=1"`
	Bedrooms      *int    `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms     *int    `json:"bathrooms" validate:"omitempty,gte=0"`
	PricePerNight *int    `json:"price_per_night" validate:"omitempty,gte=0"`
	PricePerMonth *int    `json:"price_per_month" validate:"omitempty,gte=0"`
	PricingMode   *string `json:"pricing_mode" validate:"omitempty,oneof=night month"`
	IsListed      *bool   `json:"is_listed"`
	AvailableDate *string `json:"available_date" validate:"omitempty,availabledate"`
}

// PhotoUpload is one image file submitted with a create or add-photos call.
type PhotoUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type Service struct {
	store   Store
	uploads Uploads
	log     *slog.Logger
	now     func() time.Time
}

func NewService(st Store, uploads Uploads, log *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, uploads: uploads, log: log, now: now}
}

// Create uploads every photo concurrently and, only once all of them have
// landed, writes the listing record. If any upload fails after its retries
// the whole submission fails, nothing is written, and blobs that did land are
// released best-effort.
func (s *Service) Create(ctx context.Context, req CreateRequest, photos []PhotoUpload) (Listing, error) {
	if len(photos) == 0 {
		return Listing{}, ErrNoPhotos
	}

	uploaded, err := s.uploadAll(ctx, photos)
	if err != nil {
		return Listing{}, err
	}

	mode := req.PricingMode
	if mode != PricingPerMonth {
		mode = PricingPerNight
	}
	// Exactly one price is meaningful; zero the one the mode ignores.
	pricePerNight, pricePerMonth := req.PricePerNight, req.PricePerMonth
	if mode == PricingPerNight {
		pricePerMonth = 0
	} else {
		pricePerNight = 0
	}

	isListed := true
	if req.IsListed != nil {
		isListed = *req.IsListed
	}
	availableDate := strings.TrimSpace(req.AvailableDate)
	if availableDate == "" {
		availableDate = "now"
	}

	now := s.now()
	doc := bson.M{
		"title":           strings.TrimSpace(req.Title),
		"description":     strings.TrimSpace(req.Description),
		"location":        strings.TrimSpace(req.Location),
		"bedrooms":        req.Bedrooms,
		"bathrooms":       req.Bathrooms,
		"price_per_night": pricePerNight,
		"price_per_month": pricePerMonth,
		"pricing_mode":    mode,
		"photos":          photosToDocs(uploaded),
		"is_listed":       isListed,
		"created_at":      now,
		"available_date":  availableDate,
	}

	id, err := s.store.Create(ctx, doc)
	if err != nil {
		s.releaseAll(ctx, uploaded)
		return Listing{}, err
	}

	doc["id"] = id
	return FromRecord(doc, now), nil
}

// Update merges the provided fields into the record. Fields left nil are
// untouched.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Listing, error) {
	set := bson.M{}
	if req.Title != nil {
		set["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		set["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		set["location"] = strings.TrimSpace(*req.Location)
	}
	if req.Bedrooms != nil {
		set["bedrooms"] = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		set["bathrooms"] = *req.Bathrooms
	}
	if req.PricePerNight != nil {
		set["price_per_night"] = *req.PricePerNight
	}
	if req.PricePerMonth != nil {
		set["price_per_month"] = *req.PricePerMonth
	}
	if req.PricingMode != nil {
		set["pricing_mode"] = *req.PricingMode
	}
	if req.IsListed != nil {
		set["is_listed"] = *req.IsListed
	}
	if req.AvailableDate != nil {
		set["available_date"] = strings.TrimSpace(*req.AvailableDate)
	}

	if len(set) > 0 {
		if err := s.store.Update(ctx, id, set); err != nil {
			return Listing{}, mapStoreErr(err)
		}
	}
	return s.Get(ctx, id)
}

// SetListed toggles gallery visibility without touching anything else.
func (s *Service) SetListed(ctx context.Context, id string, listed bool) (Listing, error) {
	if err := s.store.Update(ctx, id, bson.M{"is_listed": listed}); err != nil {
		return Listing{}, mapStoreErr(err)
	}
	return s.Get(ctx, id)
}

// AddPhotos uploads the given images (all-or-nothing, like Create) and
// appends them to the listing's photo sequence.
func (s *Service) AddPhotos(ctx context.Context, id string, photos []PhotoUpload) (Listing, error) {
	if len(photos) == 0 {
		return Listing{}, ErrNoPhotos
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}

	uploaded, err := s.uploadAll(ctx, photos)
	if err != nil {
		return Listing{}, err
	}

	combined := Renumber(append(current.Photos, uploaded...))
	if err := s.store.Update(ctx, id, bson.M{"photos": photosToDocs(combined)}); err != nil {
		s.releaseAll(ctx, uploaded)
		return Listing{}, mapStoreErr(err)
	}
	return s.Get(ctx, id)
}

// RemovePhoto drops one photo from the listing. Deleting the backing blob is
// best-effort: the photo leaves the record even when storage cleanup fails.
func (s *Service) RemovePhoto(ctx context.Context, id, photoID string) (Listing, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}

	remaining, removed, ok := RemovePhoto(current.Photos, photoID)
	if !ok {
		return Listing{}, ErrPhotoNotFound
	}

	if removed.Path != "" {
		s.uploads.Remove(ctx, removed.Path)
	}

	if err := s.store.Update(ctx, id, bson.M{"photos": photosToDocs(remaining)}); err != nil {
		return Listing{}, mapStoreErr(err)
	}
	return s.Get(ctx, id)
}

// ReorderPhotos rewrites the photo sequence in the order given by IDs.
func (s *Service) ReorderPhotos(ctx context.Context, id string, orderedIDs []string) (Listing, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}

	reordered, err := Reorder(current.Photos, orderedIDs)
	if err != nil {
		return Listing{}, err
	}

	if err := s.store.Update(ctx, id, bson.M{"photos": photosToDocs(reordered)}); err != nil {
		return Listing{}, mapStoreErr(err)
	}
	return s.Get(ctx, id)
}

// Get reads a single listing, bypassing the list cache.
func (s *Service) Get(ctx context.Context, id string) (Listing, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return Listing{}, mapStoreErr(err)
	}
	return FromRecord(doc, s.now()), nil
}

// uploadAll pushes every photo concurrently and waits for the whole batch.
// On any failure the blobs that did land are released.
func (s *Service) uploadAll(ctx context.Context, photos []PhotoUpload) ([]Photo, error) {
	results := make([]storage.Object, len(photos))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range photos {
		i, p := i, p
		g.Go(func() error {
			obj, err := s.uploads.Upload(gctx, storage.NewObjectPath(p.Name), p.ContentType, p.Data)
			if err != nil {
				return err
			}
			results[i] = obj
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, obj := range results {
			if obj.Path != "" {
				s.uploads.Remove(ctx, obj.Path)
			}
		}
		return nil, err
	}

	uploaded := make([]Photo, len(results))
	for i, obj := range results {
		uploaded[i] = Photo{
			ID:         obj.ID,
			URL:        obj.URL,
			Path:       obj.Path,
			UploadedAt: obj.UploadedAt,
			SortOrder:  i,
		}
	}
	return uploaded, nil
}

func (s *Service) releaseAll(ctx context.Context, photos []Photo) {
	for _, p := range photos {
		if p.Path != "" {
			s.uploads.Remove(ctx, p.Path)
		}
	}
}

func photosToDocs(photos []Photo) []bson.M {
	docs := make([]bson.M, len(photos))
	for i, p := range photos {
		docs[i] = bson.M{
			"id":          p.ID,
			"url":         p.URL,
			"path":        p.Path,
			"uploaded_at": p.UploadedAt,
			"sort_order":  p.SortOrder,
		}
	}
	return docs
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
