package booking

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/railbook/railbook_core/internal/models"
	"github.com/railbook/railbook_core/internal/train"
)

// Tatkal bookings are only accepted while the daily window is open,
// checked against the booking-attempt clock (not the travel date).
const (
	tatkalOpen      = models.TimeOfDay(10 * 60) // inclusive
	tatkalClose     = models.TimeOfDay(12 * 60) // exclusive
	tatkalSurcharge = 1.30
)

// Metrics receives booking outcome counts. Implementations must be
// safe for concurrent use; a nil Metrics disables reporting.
type Metrics interface {
	BookingConfirmed(seats int)
	BookingFailed(reason string)
	BookingCancelled(seatsReleased int, removed bool)
	BookingObserve(d time.Duration)
}

// EventPublisher receives confirmed bookings and cancellations after
// they have been committed to the ledger.
type EventPublisher interface {
	BookingConfirmed(b *models.Booking)
	BookingCancelled(b *models.Booking, seatsReleased []string)
}

// Engine orchestrates train lookup, tatkal validation, seat
// assignment, fare computation and the reservation ledger.
//
// Seat assignment and release for a given (train, class) pair are
// serialized by a per-pair mutex, so unrelated trains and classes book
// concurrently while no seat can ever be handed out twice. The ledger
// has its own lock, always taken inside a seat lock.
type Engine struct {
	registry *train.Registry

	seatMu    sync.Mutex
	seatLocks map[string]*sync.Mutex // trainID|class

	ledgerMu sync.RWMutex
	ledger   map[string][]*models.Booking // userID -> bookings, insertion order

	now     func() time.Time
	metrics Metrics
	events  EventPublisher
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the wall clock used for the tatkal window check
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics attaches an outcome metrics sink
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEvents attaches a post-commit event publisher
func WithEvents(p EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// NewEngine creates an engine over the given train registry
func NewEngine(registry *train.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		seatLocks: make(map[string]*sync.Mutex),
		ledger:    make(map[string][]*models.Booking),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the train registry the engine serves
func (e *Engine) Registry() *train.Registry {
	return e.registry
}

// seatLock returns the mutex serializing seat operations for one
// (train, class) pair, creating it on first use.
func (e *Engine) seatLock(trainID string, class models.TravelClass) *sync.Mutex {
	key := trainID + "|" + string(class)

	e.seatMu.Lock()
	defer e.seatMu.Unlock()

	lock, ok := e.seatLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.seatLocks[key] = lock
	}
	return lock
}

// SearchTrains returns trains that serve the source/destination pair
// and run on the travel date's weekday. Seat availability is not
// checked: a returned train may still fail to book. The scan is
// lock-free and may observe inventory mid-booking.
func (e *Engine) SearchTrains(sourceCode, destinationCode string, date time.Time, class models.TravelClass) []*train.Train {
	var matches []*train.Train
	for _, tr := range e.registry.All() {
		if tr.Serves(sourceCode, destinationCode) && tr.RunsOn(date.Weekday()) {
			matches = append(matches, tr)
		}
	}
	return matches
}

// SortTrainsByDepartureTime stably sorts by first-stop departure
func (e *Engine) SortTrainsByDepartureTime(trains []*train.Train, ascending bool) {
	train.SortByDeparture(trains, ascending)
}

// SortTrainsByArrivalTime stably sorts by last-stop arrival
func (e *Engine) SortTrainsByArrivalTime(trains []*train.Train, ascending bool) {
	train.SortByArrival(trains, ascending)
}

// BookTickets reserves one seat per passenger on the given train and
// returns the confirmed booking. Failures are *Error values whose Kind
// distinguishes unknown trains, closed tatkal windows, unserved routes
// and exhausted capacity; nothing is retried internally.
func (e *Engine) BookTickets(trainID, userID string, passengers []models.Passenger, class models.TravelClass,
	sourceCode, destinationCode string, travelDate time.Time, isTatkal bool) (*models.Booking, error) {

	if len(passengers) == 0 {
		return nil, fmt.Errorf("at least one passenger is required")
	}

	tr, ok := e.registry.Get(trainID)
	if !ok {
		e.reportFailure(KindNotFound)
		return nil, newError(KindNotFound, "train %s not found", trainID)
	}

	if !tr.Serves(sourceCode, destinationCode) {
		e.reportFailure(KindInvalidRoute)
		return nil, newError(KindInvalidRoute, "train %s does not serve %s -> %s", trainID, sourceCode, destinationCode)
	}

	if isTatkal {
		now := e.now()
		clock := models.TimeOfDay(now.Hour()*60 + now.Minute())
		if clock < tatkalOpen || clock >= tatkalClose {
			e.reportFailure(KindTatkalWindow)
			return nil, newError(KindTatkalWindow,
				"tatkal booking is only allowed between %s and %s", tatkalOpen, tatkalClose)
		}
	}

	start := time.Now()
	b, err := e.reserve(tr, userID, passengers, class, sourceCode, destinationCode, travelDate, isTatkal)
	if err != nil {
		e.reportFailure(KindOf(err))
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.BookingConfirmed(len(b.Seats))
		e.metrics.BookingObserve(time.Since(start))
	}
	if e.events != nil {
		e.events.BookingConfirmed(b)
	}
	return b, nil
}

// reserve runs the critical section: seat assignment, pricing and
// ledger insertion happen under the (train, class) lock with no
// external I/O, so a partially applied booking cannot exist.
func (e *Engine) reserve(tr *train.Train, userID string, passengers []models.Passenger, class models.TravelClass,
	sourceCode, destinationCode string, travelDate time.Time, isTatkal bool) (*models.Booking, error) {

	lock := e.seatLock(tr.ID, class)
	lock.Lock()
	defer lock.Unlock()

	seats, err := tr.AssignSeats(class, len(passengers))
	if err != nil {
		return nil, newError(KindInsufficientCapacity,
			"train %s has fewer than %d free %s seats", tr.ID, len(passengers), class)
	}

	fare := tr.Fare(class, sourceCode, destinationCode)
	if isTatkal {
		fare *= tatkalSurcharge
	}

	booked := make([]models.Passenger, len(passengers))
	for i, p := range passengers {
		booked[i] = models.Passenger{Name: p.Name, Seat: seats[i]}
	}

	b := &models.Booking{
		ID:              uuid.NewString(),
		TrainID:         tr.ID,
		UserID:          userID,
		Passengers:      booked,
		Class:           class,
		SourceCode:      sourceCode,
		DestinationCode: destinationCode,
		TravelDate:      travelDate,
		Seats:           seats,
		Fare:            fare,
		Tatkal:          isTatkal,
	}

	e.ledgerMu.Lock()
	e.ledger[userID] = append(e.ledger[userID], b)
	e.ledgerMu.Unlock()

	return b, nil
}

// CancelBooking cancels a whole booking, or just the named passengers,
// releasing their seats back to the train's pool. It returns true once
// a booking with the given ID was located for the user, false
// otherwise; absence is a normal outcome, not an error. With duplicate
// passenger names the first match is cancelled.
func (e *Engine) CancelBooking(userID, bookingID string, passengerNames []string) bool {
	e.ledgerMu.RLock()
	var trainID string
	var class models.TravelClass
	found := false
	for _, b := range e.ledger[userID] {
		if b.ID == bookingID {
			trainID, class = b.TrainID, b.Class
			found = true
			break
		}
	}
	e.ledgerMu.RUnlock()

	if !found {
		return false
	}

	b, released, removed, ok := e.cancelLocked(userID, bookingID, trainID, class, passengerNames)
	if !ok {
		return false
	}

	if e.metrics != nil {
		e.metrics.BookingCancelled(len(released), removed)
	}
	if e.events != nil {
		e.events.BookingCancelled(b, released)
	}
	return true
}

// cancelLocked performs the cancellation under the seat and ledger
// locks, in the same order booking takes them. The removed result is
// true when the booking itself left the ledger.
func (e *Engine) cancelLocked(userID, bookingID, trainID string, class models.TravelClass, passengerNames []string) (*models.Booking, []string, bool, bool) {
	lock := e.seatLock(trainID, class)
	lock.Lock()
	defer lock.Unlock()

	e.ledgerMu.Lock()
	defer e.ledgerMu.Unlock()

	bookings := e.ledger[userID]
	idx := -1
	for i, b := range bookings {
		if b.ID == bookingID {
			idx = i
			break
		}
	}
	if idx == -1 {
		// Removed by a concurrent cancellation
		return nil, nil, false, false
	}
	b := bookings[idx]

	tr, ok := e.registry.Get(b.TrainID)
	if !ok {
		return nil, nil, false, false
	}

	var released []string
	removed := false
	if len(passengerNames) == 0 {
		released = b.Seats
		tr.ReleaseSeats(b.Class, released)
		e.ledger[userID] = append(bookings[:idx], bookings[idx+1:]...)
		removed = true
	} else {
		released = b.RemovePassengers(passengerNames)
		tr.ReleaseSeats(b.Class, released)
		if len(b.Passengers) == 0 {
			e.ledger[userID] = append(bookings[:idx], bookings[idx+1:]...)
			removed = true
		}
	}

	return b, released, removed, true
}

// GetBookings returns the user's bookings in insertion order. Unknown
// users get an empty result.
func (e *Engine) GetBookings(userID string) []*models.Booking {
	e.ledgerMu.RLock()
	defer e.ledgerMu.RUnlock()

	bookings := e.ledger[userID]
	result := make([]*models.Booking, len(bookings))
	copy(result, bookings)
	return result
}

// GetTrainSchedule returns the train's stops in traversal order, or an
// empty slice for unknown trains.
func (e *Engine) GetTrainSchedule(trainID string) []models.Stop {
	tr, ok := e.registry.Get(trainID)
	if !ok {
		return []models.Stop{}
	}
	return tr.Schedule()
}

func (e *Engine) reportFailure(kind Kind) {
	if e.metrics != nil {
		e.metrics.BookingFailed(string(kind))
	}
}
