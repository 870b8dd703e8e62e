package booking

import (
	"sync"
	"testing"
	"time"

	"github.com/railbook/railbook_core/internal/models"
	"github.com/railbook/railbook_core/internal/train"
	"github.com/stretchr/testify/assert"
)

// 2026-09-01 is a Tuesday
var travelDate = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func clockAt(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, 8, 29, hour, minute, 0, 0, time.UTC)
	}
}

func newTestRegistry(capacity int) *train.Registry {
	tr := train.New("T1", "Test Express", map[models.TravelClass]int{
		models.ClassSleeper: capacity,
	})
	tr.SetBaseFares(map[models.TravelClass]float64{
		models.ClassSleeper: 500,
	})
	tr.SetRunningDays([]time.Weekday{time.Tuesday, time.Saturday})
	tr.AddStop(models.Stop{Code: "SRC", Name: "Source", Distance: 0})
	tr.AddStop(models.Stop{Code: "MID", Name: "Midway", Distance: 120})
	tr.AddStop(models.Stop{Code: "DST", Name: "Destination", Distance: 200})

	reg := train.NewRegistry()
	reg.Add(tr)
	return reg
}

func passengers(names ...string) []models.Passenger {
	out := make([]models.Passenger, len(names))
	for i, n := range names {
		out[i] = models.Passenger{Name: n}
	}
	return out
}

func TestBookTickets(t *testing.T) {
	t.Run("Assigns the lowest free seats in passenger order", func(t *testing.T) {
		reg := newTestRegistry(5)
		e := NewEngine(reg)

		b, err := e.BookTickets("T1", "U1", passengers("Asha", "Ravi"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, b.Seats)
		assert.Equal(t, "1", b.Passengers[0].Seat)
		assert.Equal(t, "2", b.Passengers[1].Seat)
		assert.NotEmpty(t, b.ID)

		tr, _ := reg.Get("T1")
		assert.Equal(t, 3, tr.FreeSeats(models.ClassSleeper))
	})

	t.Run("Fare is base times distance over 100", func(t *testing.T) {
		e := NewEngine(newTestRegistry(5))

		b, err := e.BookTickets("T1", "U1", passengers("Asha"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)
		assert.InDelta(t, 1000.0, b.Fare, 1e-9)
	})

	t.Run("Tatkal adds a 30 percent surcharge inside the window", func(t *testing.T) {
		e := NewEngine(newTestRegistry(5), WithClock(clockAt(10, 30)))

		b, err := e.BookTickets("T1", "U1", passengers("Asha"), models.ClassSleeper,
			"SRC", "DST", travelDate, true)
		assert.NoError(t, err)
		assert.True(t, b.Tatkal)
		assert.InDelta(t, 1300.0, b.Fare, 1e-9)
	})

	t.Run("Tatkal outside the window fails and consumes no seats", func(t *testing.T) {
		reg := newTestRegistry(5)
		e := NewEngine(reg, WithClock(clockAt(14, 0)))

		_, err := e.BookTickets("T1", "U1", passengers("Asha"), models.ClassSleeper,
			"SRC", "DST", travelDate, true)
		assert.Equal(t, KindTatkalWindow, KindOf(err))

		tr, _ := reg.Get("T1")
		assert.Equal(t, 5, tr.FreeSeats(models.ClassSleeper))
		assert.Empty(t, e.GetBookings("U1"))
	})

	t.Run("Tatkal window boundaries", func(t *testing.T) {
		book := func(hour, minute int) error {
			e := NewEngine(newTestRegistry(5), WithClock(clockAt(hour, minute)))
			_, err := e.BookTickets("T1", "U1", passengers("Asha"), models.ClassSleeper,
				"SRC", "DST", travelDate, true)
			return err
		}

		assert.NoError(t, book(10, 0))                            // open is inclusive
		assert.NoError(t, book(11, 59))                           // last minute inside
		assert.Equal(t, KindTatkalWindow, KindOf(book(12, 0)))    // close is exclusive
		assert.Equal(t, KindTatkalWindow, KindOf(book(9, 59)))    // before open
	})

	t.Run("Unknown train fails with not found", func(t *testing.T) {
		e := NewEngine(newTestRegistry(5))

		_, err := e.BookTickets("T9", "U1", passengers("Asha"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("Unserved pair fails with invalid route", func(t *testing.T) {
		e := NewEngine(newTestRegistry(5))

		_, err := e.BookTickets("T1", "U1", passengers("Asha"), models.ClassSleeper,
			"DST", "SRC", travelDate, false)
		assert.Equal(t, KindInvalidRoute, KindOf(err))
	})

	t.Run("Exhausted capacity fails and leaves inventory unchanged", func(t *testing.T) {
		reg := newTestRegistry(5)
		e := NewEngine(reg)

		_, err := e.BookTickets("T1", "U1", passengers("A", "B"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)

		_, err = e.BookTickets("T1", "U2", passengers("C", "D", "E", "F"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.Equal(t, KindInsufficientCapacity, KindOf(err))

		tr, _ := reg.Get("T1")
		assert.Equal(t, 3, tr.FreeSeats(models.ClassSleeper))
	})

	t.Run("Rejects empty passenger list", func(t *testing.T) {
		e := NewEngine(newTestRegistry(5))

		_, err := e.BookTickets("T1", "U1", nil, models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.Error(t, err)
		assert.Equal(t, Kind(""), KindOf(err))
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("Full cancellation releases all seats and removes the booking", func(t *testing.T) {
		reg := newTestRegistry(5)
		e := NewEngine(reg)

		b, err := e.BookTickets("T1", "U1", passengers("Asha", "Ravi"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)

		assert.True(t, e.CancelBooking("U1", b.ID, nil))

		tr, _ := reg.Get("T1")
		assert.Equal(t, 5, tr.FreeSeats(models.ClassSleeper))
		assert.Empty(t, e.GetBookings("U1"))
	})

	t.Run("Partial cancellation by name releases only that seat", func(t *testing.T) {
		reg := newTestRegistry(5)
		e := NewEngine(reg)

		b, err := e.BookTickets("T1", "U1", passengers("Asha", "Ravi", "Maya"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)

		assert.True(t, e.CancelBooking("U1", b.ID, []string{"Ravi"}))

		got := e.GetBookings("U1")
		assert.Len(t, got, 1)
		assert.Len(t, got[0].Passengers, 2)
		assert.Equal(t, []string{"1", "3"}, got[0].Seats)

		tr, _ := reg.Get("T1")
		assert.Equal(t, 3, tr.FreeSeats(models.ClassSleeper))
	})

	t.Run("Cancelling the last passenger removes the booking", func(t *testing.T) {
		reg := newTestRegistry(5)
		e := NewEngine(reg)

		b, err := e.BookTickets("T1", "U1", passengers("Asha"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)

		assert.True(t, e.CancelBooking("U1", b.ID, []string{"Asha"}))
		assert.Empty(t, e.GetBookings("U1"))

		tr, _ := reg.Get("T1")
		assert.Equal(t, 5, tr.FreeSeats(models.ClassSleeper))
	})

	t.Run("One-by-one cancellation matches whole-booking cancellation", func(t *testing.T) {
		reg := newTestRegistry(5)
		e := NewEngine(reg)

		b, err := e.BookTickets("T1", "U1", passengers("Asha", "Ravi", "Maya"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)

		for _, name := range []string{"Asha", "Ravi", "Maya"} {
			assert.True(t, e.CancelBooking("U1", b.ID, []string{name}))
		}

		tr, _ := reg.Get("T1")
		assert.Equal(t, 5, tr.FreeSeats(models.ClassSleeper))
		assert.Empty(t, e.GetBookings("U1"))
	})

	t.Run("Duplicate names cancel the first match", func(t *testing.T) {
		reg := newTestRegistry(5)
		e := NewEngine(reg)

		b, err := e.BookTickets("T1", "U1", passengers("Asha", "Asha"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)

		assert.True(t, e.CancelBooking("U1", b.ID, []string{"Asha"}))

		got := e.GetBookings("U1")
		assert.Len(t, got, 1)
		assert.Equal(t, []string{"2"}, got[0].Seats)
	})

	t.Run("Unknown user or booking is false, not an error", func(t *testing.T) {
		e := NewEngine(newTestRegistry(5))

		assert.False(t, e.CancelBooking("NOBODY", "some-id", nil))

		_, err := e.BookTickets("T1", "U1", passengers("Asha"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)
		assert.False(t, e.CancelBooking("U1", "wrong-id", nil))
	})
}

func TestSearchTrains(t *testing.T) {
	reg := newTestRegistry(5)
	e := NewEngine(reg)

	t.Run("Matches serving trains on a running day", func(t *testing.T) {
		got := e.SearchTrains("SRC", "DST", travelDate, models.ClassSleeper)
		assert.Len(t, got, 1)
		assert.Equal(t, "T1", got[0].ID)
	})

	t.Run("Excludes non-running weekdays", func(t *testing.T) {
		wednesday := travelDate.AddDate(0, 0, 1)
		assert.Empty(t, e.SearchTrains("SRC", "DST", wednesday, models.ClassSleeper))
	})

	t.Run("Excludes reversed pairs", func(t *testing.T) {
		assert.Empty(t, e.SearchTrains("DST", "SRC", travelDate, models.ClassSleeper))
	})

	t.Run("Does not check seat availability", func(t *testing.T) {
		_, err := e.BookTickets("T1", "U1", passengers("A", "B", "C", "D", "E"), models.ClassSleeper,
			"SRC", "DST", travelDate, false)
		assert.NoError(t, err)

		got := e.SearchTrains("SRC", "DST", travelDate, models.ClassSleeper)
		assert.Len(t, got, 1)
	})
}

func TestGetTrainSchedule(t *testing.T) {
	e := NewEngine(newTestRegistry(5))

	t.Run("Returns stops in order", func(t *testing.T) {
		stops := e.GetTrainSchedule("T1")
		assert.Len(t, stops, 3)
		assert.Equal(t, "SRC", stops[0].Code)
		assert.Equal(t, "DST", stops[2].Code)
	})

	t.Run("Unknown train yields empty schedule", func(t *testing.T) {
		assert.Empty(t, e.GetTrainSchedule("T9"))
	})
}

func TestConcurrentBooking(t *testing.T) {
	const capacity = 20
	const workers = 50

	reg := newTestRegistry(capacity)
	e := NewEngine(reg)

	var wg sync.WaitGroup
	seatCh := make(chan string, capacity*2)
	var successCount, failureCount int64
	var countMu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			b, err := e.BookTickets("T1", "U1", passengers("P"), models.ClassSleeper,
				"SRC", "DST", travelDate, false)
			countMu.Lock()
			defer countMu.Unlock()
			if err != nil {
				assert.Equal(t, KindInsufficientCapacity, KindOf(err))
				failureCount++
				return
			}
			successCount++
			seatCh <- b.Seats[0]
		}(i)
	}
	wg.Wait()
	close(seatCh)

	// Exactly capacity bookings succeed and every seat is unique
	assert.Equal(t, int64(capacity), successCount)
	assert.Equal(t, int64(workers-capacity), failureCount)

	seen := make(map[string]bool)
	for seat := range seatCh {
		assert.False(t, seen[seat], "seat %s assigned twice", seat)
		seen[seat] = true
	}
	assert.Len(t, seen, capacity)

	// Seat conservation: free + held = capacity
	tr, _ := reg.Get("T1")
	held := 0
	for _, b := range e.GetBookings("U1") {
		held += len(b.Seats)
	}
	assert.Equal(t, capacity, tr.FreeSeats(models.ClassSleeper)+held)
}

func TestConcurrentBookAndCancel(t *testing.T) {
	const capacity = 10
	const rounds = 25

	reg := newTestRegistry(capacity)
	e := NewEngine(reg)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			user := "U" + string(rune('A'+worker))
			for r := 0; r < rounds; r++ {
				b, err := e.BookTickets("T1", user, passengers("P1", "P2"), models.ClassSleeper,
					"SRC", "DST", travelDate, false)
				if err != nil {
					continue
				}
				e.CancelBooking(user, b.ID, nil)
			}
		}(i)
	}
	wg.Wait()

	// All seats must be back and every ledger drained
	tr, _ := reg.Get("T1")
	assert.Equal(t, capacity, tr.FreeSeats(models.ClassSleeper))
	for i := 0; i < 8; i++ {
		assert.Empty(t, e.GetBookings("U"+string(rune('A'+i))))
	}
}
