package listing

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Source is the slice of the store client the aggregation pipeline needs.
type Source interface {
	ListAll(ctx context.Context) ([]bson.M, error)
	ListAllFresh(ctx context.Context) ([]bson.M, error)
}

// Catalog turns raw store records into the sorted sequences the site renders.
type Catalog struct {
	source Source
	now    func() time.Time
}

func NewCatalog(source Source, now func() time.Time) *Catalog {
	if now == nil {
		now = time.Now
	}
	return &Catalog{source: source, now: now}
}

// VisibleSorted is the gallery feed: normalize every record, drop delisted
// ones, and order by availability with available-now listings first, then
// future dates ascending. The sort is stable, so available-now listings keep
// their input order relative to each other.
func (c *Catalog) VisibleSorted(ctx context.Context) ([]Listing, error) {
	docs, err := c.source.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return sortByAvailability(c.normalize(docs, true)), nil
}

// AllSorted is the operator view: every listing including delisted ones,
// newest first, always fetched fresh so the operator sees their own writes.
func (c *Catalog) AllSorted(ctx context.Context) ([]Listing, error) {
	docs, err := c.source.ListAllFresh(ctx)
	if err != nil {
		return nil, err
	}
	items := c.normalize(docs, false)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (c *Catalog) normalize(docs []bson.M, listedOnly bool) []Listing {
	today := c.now()
	items := make([]Listing, 0, len(docs))
	for _, doc := range docs {
		item := FromRecord(doc, today)
		if listedOnly && !item.IsListed {
			continue
		}
		items = append(items, item)
	}
	return items
}

func sortByAvailability(items []Listing) []Listing {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Availability.Before(items[j].Availability)
	})
	return items
}
