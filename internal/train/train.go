package train

import (
	"time"

	"github.com/railbook/railbook_core/internal/inventory"
	"github.com/railbook/railbook_core/internal/models"
)

// Train composes a route, per-class base fares, running weekdays and one
// seat pool per class. Route, fares and running days are read-only after
// construction; the seat pools are the only mutable state.
type Train struct {
	ID   string
	Name string

	stops       []models.Stop
	baseFares   map[models.TravelClass]float64
	runningDays map[time.Weekday]bool
	pools       map[models.TravelClass]*inventory.Pool
}

// New creates a train with one seat pool per entry in capacities
func New(id, name string, capacities map[models.TravelClass]int) *Train {
	pools := make(map[models.TravelClass]*inventory.Pool, len(capacities))
	for class, capacity := range capacities {
		pools[class] = inventory.NewPool(capacity)
	}
	return &Train{
		ID:          id,
		Name:        name,
		baseFares:   make(map[models.TravelClass]float64),
		runningDays: make(map[time.Weekday]bool),
		pools:       pools,
	}
}

// AddStop appends a stop to the route. Stops must be added in traversal
// order with non-decreasing distance; call this only during load.
func (t *Train) AddStop(s models.Stop) {
	t.stops = append(t.stops, s)
}

// SetBaseFares merges per-class fares (per 100 distance units)
func (t *Train) SetBaseFares(fares map[models.TravelClass]float64) {
	for class, fare := range fares {
		t.baseFares[class] = fare
	}
}

// SetRunningDays merges weekdays the train operates on
func (t *Train) SetRunningDays(days []time.Weekday) {
	for _, d := range days {
		t.runningDays[d] = true
	}
}

// Serves reports whether the train travels from sourceCode to
// destinationCode: both codes must appear on the route, with the source
// strictly before the destination. A reversed or identical pair is not
// served.
func (t *Train) Serves(sourceCode, destinationCode string) bool {
	sourceIdx, destIdx := -1, -1
	for i, stop := range t.stops {
		if stop.Code == sourceCode {
			sourceIdx = i
		}
		if stop.Code == destinationCode {
			destIdx = i
		}
	}
	return sourceIdx != -1 && destIdx != -1 && sourceIdx < destIdx
}

// RunsOn reports whether the train operates on the given weekday
func (t *Train) RunsOn(day time.Weekday) bool {
	return t.runningDays[day]
}

// Fare computes base fare for the class times the distance between the
// two stops, per 100 distance units. Callers must check Serves first;
// the result is undefined for codes not on the route or out of order.
func (t *Train) Fare(class models.TravelClass, sourceCode, destinationCode string) float64 {
	var sourceDist, destDist int
	for _, stop := range t.stops {
		if stop.Code == sourceCode {
			sourceDist = stop.Distance
		}
		if stop.Code == destinationCode {
			destDist = stop.Distance
		}
	}
	return t.baseFares[class] * float64(destDist-sourceDist) / 100.0
}

// AssignSeats takes count seats from the class's pool. An unknown class
// behaves like an empty pool.
func (t *Train) AssignSeats(class models.TravelClass, count int) ([]string, error) {
	pool, ok := t.pools[class]
	if !ok {
		return nil, inventory.ErrInsufficient
	}
	return pool.Assign(count)
}

// ReleaseSeats returns seats to the class's pool
func (t *Train) ReleaseSeats(class models.TravelClass, seats []string) {
	if pool, ok := t.pools[class]; ok {
		pool.Release(seats)
	}
}

// FreeSeats returns the number of unassigned seats for a class
func (t *Train) FreeSeats(class models.TravelClass) int {
	if pool, ok := t.pools[class]; ok {
		return pool.Free()
	}
	return 0
}

// Capacity returns the configured seat count for a class
func (t *Train) Capacity(class models.TravelClass) int {
	if pool, ok := t.pools[class]; ok {
		return pool.Capacity()
	}
	return 0
}

// Classes returns the travel classes this train carries
func (t *Train) Classes() []models.TravelClass {
	classes := make([]models.TravelClass, 0, len(t.pools))
	for class := range t.pools {
		classes = append(classes, class)
	}
	return classes
}

// Schedule returns a copy of the route's stops in traversal order
func (t *Train) Schedule() []models.Stop {
	stops := make([]models.Stop, len(t.stops))
	copy(stops, t.stops)
	return stops
}

// DepartureTime returns the departure time at the first stop
func (t *Train) DepartureTime() models.TimeOfDay {
	if len(t.stops) == 0 {
		return 0
	}
	return t.stops[0].Departure
}

// ArrivalTime returns the arrival time at the last stop
func (t *Train) ArrivalTime() models.TimeOfDay {
	if len(t.stops) == 0 {
		return 0
	}
	return t.stops[len(t.stops)-1].Arrival
}

// Summary builds the search-result view of the train
func (t *Train) Summary() models.TrainSummary {
	return models.TrainSummary{
		ID:        t.ID,
		Name:      t.Name,
		Departure: t.DepartureTime(),
		Arrival:   t.ArrivalTime(),
		Stops:     len(t.stops),
	}
}
