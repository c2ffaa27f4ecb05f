package main

import (
	"context"
	"errors"
	"log"
	"os"

	"actinvoting/adapters/store"
	"actinvoting/ports"
)

// Copies every cached series from one result store to another, e.g. from a
// local sqlite file to a shared postgres database. Both schemas are migrated
// on open; series already present in the target are replaced.
func main() {
	if len(os.Args) < 5 {
		log.Fatal("Usage: migrate <from_driver> <from_dsn> <to_driver> <to_dsn>")
	}
	ctx := context.Background()

	from, err := store.Open(ctx, os.Args[1], os.Args[2])
	if err != nil {
		log.Fatalf("Failed to open source store: %v", err)
	}
	defer from.Close()

	to, err := store.Open(ctx, os.Args[3], os.Args[4])
	if err != nil {
		log.Fatalf("Failed to open target store: %v", err)
	}
	defer to.Close()

	keys, err := from.Keys(ctx)
	if err != nil {
		log.Fatalf("Failed to list series: %v", err)
	}
	log.Printf("Found %d series to migrate", len(keys))

	migrated, skipped := 0, 0
	for _, key := range keys {
		res, err := from.Load(ctx, key)
		if errors.Is(err, ports.ErrNotFound) {
			skipped++
			continue
		}
		if err != nil {
			log.Printf("Failed to load %s: %v", key, err)
			skipped++
			continue
		}
		if err := to.Save(ctx, res); err != nil {
			log.Printf("Failed to save %s: %v", key, err)
			skipped++
			continue
		}
		migrated++
	}

	log.Printf("Migration complete: %d migrated, %d skipped", migrated, skipped)
}
