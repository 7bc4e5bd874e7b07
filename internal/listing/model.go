// Package listing is the rental-property domain: the display model, the
// normalization of raw store records into it, the visible/sorted aggregation
// the gallery renders, and the operator-facing mutations.
package listing

import "time"

const (
	PricingPerNight = "night"
	PricingPerMonth = "month"
)

// Photo is one image belonging to a listing. Path points at the stored blob
// and is what deletion uses; SortOrder values are kept contiguous 0..N-1.
type Photo struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Path       string    `json:"path,omitempty"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
	SortOrder  int       `json:"sort_order"`
}

// Listing is the fully-defaulted display model. Exactly one of PricePerNight
// and PricePerMonth is meaningful, selected by PricingMode; the other is zero.
type Listing struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Location      string       `json:"location"`
	Bedrooms      int          `json:"bedrooms"`
	Bathrooms     int          `json:"bathrooms"`
	PricePerNight int          `json:"price_per_night"`
	PricePerMonth int          `json:"price_per_month"`
	PricingMode   string       `json:"pricing_mode"`
	Photos        []Photo      `json:"photos"`
	IsListed      bool         `json:"is_listed"`
	CreatedAt     time.Time    `json:"created_at"`
	Availability  Availability `json:"available_date"`
}

// Price returns the amount selected by the pricing mode.
func (l Listing) Price() int {
	if l.PricingMode == PricingPerMonth {
		return l.PricePerMonth
	}
	return l.PricePerNight
}
