package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/railbook/railbook_core/internal/booking"
	"github.com/railbook/railbook_core/internal/catalog"
	"github.com/railbook/railbook_core/internal/models"
	"github.com/railbook/railbook_core/internal/train"
)

// loadgen drives the booking engine in-process: it loads a catalog,
// then hammers it with concurrent book/cancel cycles and reports the
// outcome counts and the final seat inventory.
func main() {
	trainsPath := flag.String("trains", "trains.csv", "Path to the train catalog CSV")
	workers := flag.Int("workers", 16, "Concurrent workers")
	rounds := flag.Int("rounds", 50, "Book/cancel rounds per worker")
	cancelPct := flag.Int("cancel-pct", 60, "Percent of successful bookings to cancel")
	class := flag.String("class", string(models.ClassSleeper), "Travel class to book")

	flag.Parse()

	records, err := catalog.ParseFile(*trainsPath)
	if err != nil {
		log.Fatalf("Failed to parse catalog: %v", err)
	}
	if len(records) == 0 {
		log.Fatal("Catalog contains no trains")
	}

	registry := train.NewRegistry()
	for _, rec := range records {
		registry.Add(rec.Train())
	}
	log.Printf("Loaded %d trains", registry.Len())

	engine := booking.NewEngine(registry)
	travelClass := models.TravelClass(*class)

	var booked, cancelled, soldOut, otherFail int64

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(worker) + time.Now().UnixNano()))
			userID := fmt.Sprintf("loadgen-%d", worker)

			for round := 0; round < *rounds; round++ {
				rec := records[rng.Intn(len(records))]
				if len(rec.Stops) < 2 {
					continue
				}
				src := rec.Stops[0].Code
				dst := rec.Stops[len(rec.Stops)-1].Code
				date := nextRunningDay(rec)

				passengers := []models.Passenger{
					{Name: fmt.Sprintf("pax-%d-%d-a", worker, round)},
					{Name: fmt.Sprintf("pax-%d-%d-b", worker, round)},
				}

				b, err := engine.BookTickets(rec.ID, userID, passengers, travelClass, src, dst, date, false)
				if err != nil {
					if booking.KindOf(err) == booking.KindInsufficientCapacity {
						atomic.AddInt64(&soldOut, 1)
					} else {
						atomic.AddInt64(&otherFail, 1)
					}
					continue
				}
				atomic.AddInt64(&booked, 1)

				if rng.Intn(100) < *cancelPct {
					if engine.CancelBooking(userID, b.ID, nil) {
						atomic.AddInt64(&cancelled, 1)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	elapsed := time.Since(start)
	total := int64(*workers) * int64(*rounds)

	fmt.Printf("\n%d attempts in %s (%.0f/s)\n", total, elapsed, float64(total)/elapsed.Seconds())
	fmt.Printf("  booked:    %d\n", booked)
	fmt.Printf("  cancelled: %d\n", cancelled)
	fmt.Printf("  sold out:  %d\n", soldOut)
	if otherFail > 0 {
		fmt.Printf("  failed:    %d\n", otherFail)
	}

	fmt.Println("\nRemaining inventory:")
	for _, tr := range registry.All() {
		for _, cls := range tr.Classes() {
			fmt.Printf("  %s %s %s: %d/%d free\n", tr.ID, tr.Name, cls, tr.FreeSeats(cls), tr.Capacity(cls))
		}
	}

	if otherFail > 0 {
		os.Exit(1)
	}
}

// nextRunningDay finds the first date from tomorrow on which the train
// runs, so bookings never fail the running-day check.
func nextRunningDay(rec catalog.TrainRecord) time.Time {
	runs := make(map[time.Weekday]bool, len(rec.RunningDays))
	for _, d := range rec.RunningDays {
		runs[d] = true
	}

	date := time.Now().AddDate(0, 0, 1)
	for i := 0; i < 7; i++ {
		if runs[date.Weekday()] {
			return date
		}
		date = date.AddDate(0, 0, 1)
	}
	return date
}
