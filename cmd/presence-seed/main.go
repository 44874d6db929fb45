package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/eternisai/fire-alerts/internal/config"
	"github.com/eternisai/fire-alerts/internal/firebase"
	"github.com/eternisai/fire-alerts/internal/geo"
	"github.com/eternisai/fire-alerts/internal/presence"
)

func main() {
	var (
		lat         = flag.Float64("lat", 37.7749, "Center latitude")
		lon         = flag.Float64("lon", -122.4194, "Center longitude")
		radius      = flag.Float64("radius", 8000, "Scatter devices within this many meters of the center")
		count       = flag.Int("count", 10, "Number of presence records to write")
		uidPrefix   = flag.String("uid-prefix", "seed-", "Prefix for generated uids")
		tokenPrefix = flag.String("token-prefix", "seed-token-", "Prefix for generated FCM tokens")
		seed        = flag.Int64("seed", 0, "Random seed (0 = time based)")
		report      = flag.Bool("report", false, "Also create a fire report at the center")
		reporter    = flag.String("reporter", "", "Reporter uid for the created report")
		reportRange = flag.Float64("report-radius", 5000, "Radius in meters for the created report")
		showHelp    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *showHelp {
		fmt.Println("Presence Seeder")
		fmt.Println("Usage: go run ./cmd/presence-seed [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Println("  go run ./cmd/presence-seed -count 25")
		fmt.Println("  go run ./cmd/presence-seed -lat 34.05 -lon -118.24 -radius 3000")
		fmt.Println("  go run ./cmd/presence-seed -report -reporter seed-0")
		return
	}

	center := geo.Point{Latitude: *lat, Longitude: *lon}
	if !center.Valid() {
		log.Fatalf("Invalid center %v, %v", *lat, *lon)
	}
	if *count < 0 || *radius < 0 {
		log.Fatal("count and radius must not be negative")
	}

	config.LoadConfig()

	ctx := context.Background()
	client, err := firebase.NewClient(ctx, config.AppConfig.FirebaseProjectID, config.AppConfig.FirebaseCredJSON)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	defer client.Close() //nolint:errcheck

	store := presence.NewFirestoreStore(client.Firestore, config.AppConfig.PresenceCollection, config.AppConfig.UsersCollection)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("Writing %d presence record(s) to %s...\n\n", *count, config.AppConfig.PresenceCollection)

	for i := 0; i < *count; i++ {
		// sqrt keeps the scatter uniform over the disk area
		distance := *radius * math.Sqrt(rng.Float64())
		p := geo.Destination(center, distance, rng.Float64()*360)

		rec := presence.PresenceRecord{
			UID:       fmt.Sprintf("%s%d", *uidPrefix, i),
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			FCMToken:  fmt.Sprintf("%s%d", *tokenPrefix, i),
		}
		if err := store.UpsertPresence(ctx, rec); err != nil {
			log.Fatalf("Failed to write presence %s: %v", rec.UID, err)
		}

		fmt.Printf("  %-14s %9.5f, %10.5f  %6.0fm  %s\n",
			rec.UID, p.Latitude, p.Longitude, distance, geo.Encode(p.Latitude, p.Longitude, geo.DefaultPrecision))
	}

	if *report {
		ref, _, err := client.Firestore.Collection(config.AppConfig.ReportsCollection).Add(ctx, map[string]interface{}{
			"latitude":     center.Latitude,
			"longitude":    center.Longitude,
			"reporterUid":  *reporter,
			"description":  "Seeded test report",
			"radiusMeters": *reportRange,
			"createdAt":    firestore.ServerTimestamp,
		})
		if err != nil {
			log.Fatalf("Failed to create report: %v", err)
		}
		fmt.Printf("\nCreated report %s/%s\n", config.AppConfig.ReportsCollection, ref.ID)
	}

	fmt.Printf("\nDone (seed %d).\n", *seed)
}
