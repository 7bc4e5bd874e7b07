package listing

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FromRecord turns one raw, loosely-typed store record into a Listing. Every
// default lives here: missing strings become empty, missing counts zero, a
// missing is_listed flag means listed, and a missing available date means
// available now. Records written by older clients (numbers as float64 after a
// cache round-trip, photos as bare URL strings) are accepted.
func FromRecord(doc bson.M, today time.Time) Listing {
	mode := asString(doc["pricing_mode"])
	if mode != PricingPerMonth {
		mode = PricingPerNight
	}

	return Listing{
		ID:            asString(doc["id"]),
		Title:         asString(doc["title"]),
		Description:   asString(doc["description"]),
		Location:      asString(doc["location"]),
		Bedrooms:      asCount(doc["bedrooms"]),
		Bathrooms:     asCount(doc["bathrooms"]),
		PricePerNight: asCount(doc["price_per_night"]),
		PricePerMonth: asCount(doc["price_per_month"]),
		PricingMode:   mode,
		Photos:        asPhotos(doc["photos"]),
		IsListed:      asBool(doc["is_listed"], true),
		CreatedAt:     asTime(doc["created_at"]),
		Availability:  ParseAvailability(asString(doc["available_date"]), today),
	}
}

func asString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

// asCount coerces the numeric types the driver and a JSON round-trip can
// produce, clamping negatives to zero.
func asCount(value interface{}) int {
	n := 0
	switch v := value.(type) {
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	}
	if n < 0 {
		return 0
	}
	return n
}

func asBool(value interface{}, fallback bool) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	return fallback
}

func asTime(value interface{}) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case primitive.DateTime:
		return v.Time()
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if t, err := time.Parse(dateLayout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// asPhotos accepts both photo documents and the legacy bare-URL strings the
// first version of the site stored. Entries come back sorted by their stored
// sort order and renumbered, so stale or duplicate orders never escape.
func asPhotos(value interface{}) []Photo {
	var entries []interface{}
	switch typed := value.(type) {
	case []interface{}:
		entries = typed
	case bson.A:
		entries = []interface{}(typed)
	case []bson.M:
		entries = make([]interface{}, len(typed))
		for i, m := range typed {
			entries[i] = m
		}
	}
	photos := make([]Photo, 0, len(entries))
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			if v != "" {
				photos = append(photos, Photo{URL: v, SortOrder: len(photos)})
			}
		case bson.M:
			photos = append(photos, photoFromDoc(v))
		case map[string]interface{}:
			photos = append(photos, photoFromDoc(v))
		}
	}
	sort.SliceStable(photos, func(i, j int) bool {
		return photos[i].SortOrder < photos[j].SortOrder
	})
	return Renumber(photos)
}

func photoFromDoc(doc map[string]interface{}) Photo {
	return Photo{
		ID:         asString(doc["id"]),
		URL:        asString(doc["url"]),
		Path:       asString(doc["path"]),
		UploadedAt: asTime(doc["uploaded_at"]),
		SortOrder:  asCount(doc["sort_order"]),
	}
}
