package main

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bmbroch/ceylonstay/internal/config"
	"github.com/bmbroch/ceylonstay/internal/db"
)

type seedListing struct {
	Title         string
	Description   string
	Location      string
	Bedrooms      int
	Bathrooms     int
	PricePerNight int
	PricePerMonth int
	PricingMode   string
	IsListed      bool
	AvailableDate string
	PhotoURLs     []string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.ListingsCollection)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	listings := []seedListing{
		{
			Title:         "Ocean View Villa in Weligama",
			Description:   "Two-storey villa a short walk from the surf break, with a rooftop terrace and full kitchen.",
			Location:      "Weligama",
			Bedrooms:      3,
			Bathrooms:     2,
			PricePerMonth: 2200,
			PricingMode:   "month",
			IsListed:      true,
			AvailableDate: "now",
			PhotoURLs: []string{
				"https://images.ceylonstay.example/seed/weligama-villa-1.jpg",
				"https://images.ceylonstay.example/seed/weligama-villa-2.jpg",
			},
		},
		{
			Title:         "Jungle Cabin near Ella",
			Description:   "Secluded cabin with mountain views, outdoor shower and fast wifi for remote work.",
			Location:      "Ella",
			Bedrooms:      1,
			Bathrooms:     1,
			PricePerNight: 45,
			PricingMode:   "night",
			IsListed:      true,
			AvailableDate: "now",
			PhotoURLs: []string{
				"https://images.ceylonstay.example/seed/ella-cabin-1.jpg",
			},
		},
		{
			Title:         "Colonial Apartment in Galle Fort",
			Description:   "Restored apartment inside the fort walls, two minutes from the lighthouse.",
			Location:      "Galle",
			Bedrooms:      2,
			Bathrooms:     1,
			PricePerNight: 80,
			PricingMode:   "night",
			IsListed:      true,
			AvailableDate: time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
			PhotoURLs: []string{
				"https://images.ceylonstay.example/seed/galle-apartment-1.jpg",
				"https://images.ceylonstay.example/seed/galle-apartment-2.jpg",
			},
		},
		{
			Title:         "Lakeside Bungalow in Hikkaduwa",
			Description:   "Quiet bungalow on the lagoon, kayaks included. Currently being renovated.",
			Location:      "Hikkaduwa",
			Bedrooms:      2,
			Bathrooms:     2,
			PricePerMonth: 1500,
			PricingMode:   "month",
			IsListed:      false,
			AvailableDate: "now",
			PhotoURLs: []string{
				"https://images.ceylonstay.example/seed/hikkaduwa-bungalow-1.jpg",
			},
		},
	}

	for _, l := range listings {
		photos := make([]bson.M, len(l.PhotoURLs))
		for i, u := range l.PhotoURLs {
			photos[i] = bson.M{
				"id":          primitive.NewObjectID().Hex(),
				"url":         u,
				"path":        "",
				"uploaded_at": time.Now().In(cfg.Timezone),
				"sort_order":  i,
			}
		}

		filter := bson.M{"title": l.Title}
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":             primitive.NewObjectID().Hex(),
				"title":           l.Title,
				"description":     l.Description,
				"location":        l.Location,
				"bedrooms":        l.Bedrooms,
				"bathrooms":       l.Bathrooms,
				"price_per_night": l.PricePerNight,
				"price_per_month": l.PricePerMonth,
				"pricing_mode":    l.PricingMode,
				"photos":          photos,
				"is_listed":       l.IsListed,
				"created_at":      time.Now().In(cfg.Timezone),
				"available_date":  l.AvailableDate,
			},
		}

		res, err := cols.Listings.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			log.Fatalf("seed %q: %v", l.Title, err)
		}
		if res.UpsertedCount > 0 {
			log.Printf("seeded %q", l.Title)
		} else {
			log.Printf("skipped %q (exists)", l.Title)
		}
	}
}
