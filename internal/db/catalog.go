package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/railbook/railbook_core/internal/catalog"
	"github.com/railbook/railbook_core/internal/models"
)

// LoadTrains reads the static train catalog from Postgres and returns
// it as catalog records, ordered by train id. The catalog tables hold
// reference data only; bookings never touch the database.
func LoadTrains(ctx context.Context, pool *pgxpool.Pool) ([]catalog.TrainRecord, error) {
	byID := make(map[string]*catalog.TrainRecord)
	var order []string

	rows, err := pool.Query(ctx, `SELECT id, name FROM train ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load trains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			log.Printf("Warning: failed to scan train: %v", err)
			continue
		}
		byID[id] = &catalog.TrainRecord{
			ID:         id,
			Name:       name,
			BaseFares:  make(map[models.TravelClass]float64),
			Capacities: make(map[models.TravelClass]int),
		}
		order = append(order, id)
	}
	rows.Close()

	if err := loadClasses(ctx, pool, byID); err != nil {
		return nil, err
	}
	if err := loadRunningDays(ctx, pool, byID); err != nil {
		return nil, err
	}
	if err := loadStops(ctx, pool, byID); err != nil {
		return nil, err
	}

	records := make([]catalog.TrainRecord, 0, len(order))
	for _, id := range order {
		rec := byID[id]
		if len(rec.Stops) == 0 {
			log.Printf("Warning: train %s has no stops, skipping", id)
			continue
		}
		records = append(records, *rec)
	}

	log.Printf("Loaded %d trains from database", len(records))
	return records, nil
}

func loadClasses(ctx context.Context, pool *pgxpool.Pool, byID map[string]*catalog.TrainRecord) error {
	rows, err := pool.Query(ctx, `
		SELECT train_id, class, base_fare, capacity
		FROM train_class
	`)
	if err != nil {
		return fmt.Errorf("failed to load train classes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trainID, class string
		var baseFare float64
		var capacity int
		if err := rows.Scan(&trainID, &class, &baseFare, &capacity); err != nil {
			log.Printf("Warning: failed to scan train class: %v", err)
			continue
		}
		rec, ok := byID[trainID]
		if !ok {
			continue
		}
		rec.BaseFares[models.TravelClass(class)] = baseFare
		rec.Capacities[models.TravelClass(class)] = capacity
	}
	return nil
}

func loadRunningDays(ctx context.Context, pool *pgxpool.Pool, byID map[string]*catalog.TrainRecord) error {
	rows, err := pool.Query(ctx, `SELECT train_id, day FROM train_day`)
	if err != nil {
		return fmt.Errorf("failed to load running days: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trainID, day string
		if err := rows.Scan(&trainID, &day); err != nil {
			log.Printf("Warning: failed to scan running day: %v", err)
			continue
		}
		rec, ok := byID[trainID]
		if !ok {
			continue
		}
		weekday, err := catalog.ParseWeekday(day)
		if err != nil {
			log.Printf("Warning: train %s: %v", trainID, err)
			continue
		}
		rec.RunningDays = append(rec.RunningDays, weekday)
	}
	return nil
}

func loadStops(ctx context.Context, pool *pgxpool.Pool, byID map[string]*catalog.TrainRecord) error {
	rows, err := pool.Query(ctx, `
		SELECT train_id, code, name, arrival, departure, distance
		FROM train_stop
		ORDER BY train_id, seq
	`)
	if err != nil {
		return fmt.Errorf("failed to load stops: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trainID, code, name, arrival, departure string
		var distance int
		if err := rows.Scan(&trainID, &code, &name, &arrival, &departure, &distance); err != nil {
			log.Printf("Warning: failed to scan stop: %v", err)
			continue
		}
		rec, ok := byID[trainID]
		if !ok {
			continue
		}
		arr, err := models.ParseTimeOfDay(arrival)
		if err != nil {
			log.Printf("Warning: train %s stop %s: %v", trainID, code, err)
			continue
		}
		dep, err := models.ParseTimeOfDay(departure)
		if err != nil {
			log.Printf("Warning: train %s stop %s: %v", trainID, code, err)
			continue
		}
		rec.Stops = append(rec.Stops, models.Stop{
			Code:      code,
			Name:      name,
			Arrival:   arr,
			Departure: dep,
			Distance:  distance,
		})
	}
	return nil
}
