package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/railbook/railbook_core/internal/catalog"
	"github.com/railbook/railbook_core/internal/db"
	"github.com/railbook/railbook_core/internal/models"
)

func main() {
	// Command-line flags
	trainsPath := flag.String("trains", "", "Path to the train catalog CSV (required)")
	dryRun := flag.Bool("dry-run", false, "Parse and validate the catalog without writing to the database")

	flag.Parse()

	// Validate required flags
	if *trainsPath == "" {
		fmt.Println("Usage: railbook-import --trains=<path.csv> [--dry-run]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Validate file exists
	if _, err := os.Stat(*trainsPath); os.IsNotExist(err) {
		log.Fatalf("Catalog file not found: %s", *trainsPath)
	}

	log.Println("Starting catalog import...")
	log.Printf("Catalog file: %s", *trainsPath)

	records, err := catalog.ParseFile(*trainsPath)
	if err != nil {
		log.Fatalf("Failed to parse catalog: %v", err)
	}
	log.Printf("Parsed %d trains", len(records))

	if *dryRun {
		for _, rec := range records {
			log.Printf("  %s %s: %d stops, classes %v", rec.ID, rec.Name, len(rec.Stops), classList(rec))
		}
		log.Println("Dry run complete, nothing written")
		return
	}

	// Initialize database connection
	if _, err := db.GetDB(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	start := time.Now()

	if err := runImport(ctx, records); err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("Import completed in %s", time.Since(start))
}

func classList(rec catalog.TrainRecord) []models.TravelClass {
	classes := make([]models.TravelClass, 0, len(rec.Capacities))
	for class := range rec.Capacities {
		classes = append(classes, class)
	}
	return classes
}

// runImport writes the whole catalog in one transaction so a partial
// import never becomes visible.
func runImport(ctx context.Context, records []catalog.TrainRecord) error {
	pool, err := db.GetDB()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		if err := importTrain(ctx, tx, rec); err != nil {
			return fmt.Errorf("failed to import train %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Imported %d trains", len(records))
	return nil
}

func importTrain(ctx context.Context, tx pgx.Tx, rec catalog.TrainRecord) error {
	// Upsert the train itself, then replace its child rows wholesale
	_, err := tx.Exec(ctx, `
		INSERT INTO train (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name
	`, rec.ID, rec.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert train: %w", err)
	}

	for _, table := range []string{"train_class", "train_day", "train_stop"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE train_id = $1", table), rec.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := importClasses(ctx, tx, rec); err != nil {
		return err
	}
	if err := importDays(ctx, tx, rec); err != nil {
		return err
	}
	return importStops(ctx, tx, rec)
}

func importClasses(ctx context.Context, tx pgx.Tx, rec catalog.TrainRecord) error {
	batch := &pgx.Batch{}

	for class, capacity := range rec.Capacities {
		batch.Queue(`
			INSERT INTO train_class (train_id, class, base_fare, capacity)
			VALUES ($1, $2, $3, $4)
		`, rec.ID, string(class), rec.BaseFares[class], capacity)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert class %d: %w", i, err)
		}
	}

	return nil
}

func importDays(ctx context.Context, tx pgx.Tx, rec catalog.TrainRecord) error {
	batch := &pgx.Batch{}

	for _, day := range rec.RunningDays {
		batch.Queue(`
			INSERT INTO train_day (train_id, day)
			VALUES ($1, $2)
		`, rec.ID, catalog.WeekdayAbbrev(day))
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert running day %d: %w", i, err)
		}
	}

	return nil
}

func importStops(ctx context.Context, tx pgx.Tx, rec catalog.TrainRecord) error {
	batch := &pgx.Batch{}

	for seq, stop := range rec.Stops {
		batch.Queue(`
			INSERT INTO train_stop (train_id, seq, code, name, arrival, departure, distance)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, rec.ID, seq, stop.Code, stop.Name, stop.Arrival.String(), stop.Departure.String(), stop.Distance)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert stop %d: %w", i, err)
		}
	}

	return nil
}
