package train

import (
	"testing"
	"time"

	"github.com/railbook/railbook_core/internal/models"
	"github.com/stretchr/testify/assert"
)

func newTestTrain(id string, stops ...models.Stop) *Train {
	t := New(id, "Test Express", map[models.TravelClass]int{
		models.ClassSleeper: 5,
	})
	t.SetBaseFares(map[models.TravelClass]float64{
		models.ClassSleeper: 500,
	})
	t.SetRunningDays([]time.Weekday{time.Monday, time.Friday})
	for _, s := range stops {
		t.AddStop(s)
	}
	return t
}

func mustTime(t *testing.T, s string) models.TimeOfDay {
	t.Helper()
	tod, err := models.ParseTimeOfDay(s)
	assert.NoError(t, err)
	return tod
}

func TestServes(t *testing.T) {
	tr := newTestTrain("T1",
		models.Stop{Code: "NDLS", Name: "New Delhi", Distance: 0},
		models.Stop{Code: "CNB", Name: "Kanpur", Distance: 440},
		models.Stop{Code: "BCT", Name: "Mumbai Central", Distance: 1380},
	)

	t.Run("True when source precedes destination", func(t *testing.T) {
		assert.True(t, tr.Serves("NDLS", "BCT"))
		assert.True(t, tr.Serves("NDLS", "CNB"))
		assert.True(t, tr.Serves("CNB", "BCT"))
	})

	t.Run("False for reversed pair", func(t *testing.T) {
		assert.False(t, tr.Serves("BCT", "NDLS"))
	})

	t.Run("False for identical pair", func(t *testing.T) {
		assert.False(t, tr.Serves("NDLS", "NDLS"))
	})

	t.Run("False when a code is not on the route", func(t *testing.T) {
		assert.False(t, tr.Serves("NDLS", "MAS"))
		assert.False(t, tr.Serves("MAS", "BCT"))
	})
}

func TestRunsOn(t *testing.T) {
	tr := newTestTrain("T1")

	assert.True(t, tr.RunsOn(time.Monday))
	assert.True(t, tr.RunsOn(time.Friday))
	assert.False(t, tr.RunsOn(time.Sunday))
}

func TestFare(t *testing.T) {
	tr := newTestTrain("T1",
		models.Stop{Code: "A", Distance: 0},
		models.Stop{Code: "B", Distance: 200},
		models.Stop{Code: "C", Distance: 350},
	)

	t.Run("Base 500 over 200 km yields 1000", func(t *testing.T) {
		assert.InDelta(t, 1000.0, tr.Fare(models.ClassSleeper, "A", "B"), 1e-9)
	})

	t.Run("Intermediate segment uses distance difference", func(t *testing.T) {
		assert.InDelta(t, 750.0, tr.Fare(models.ClassSleeper, "B", "C"), 1e-9)
	})
}

func TestSeatDelegation(t *testing.T) {
	tr := newTestTrain("T1")

	t.Run("Assign and release round-trip", func(t *testing.T) {
		seats, err := tr.AssignSeats(models.ClassSleeper, 2)
		assert.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, seats)
		assert.Equal(t, 3, tr.FreeSeats(models.ClassSleeper))

		tr.ReleaseSeats(models.ClassSleeper, seats)
		assert.Equal(t, 5, tr.FreeSeats(models.ClassSleeper))
	})

	t.Run("Unknown class behaves as empty pool", func(t *testing.T) {
		_, err := tr.AssignSeats(models.ClassAC1, 1)
		assert.Error(t, err)
		assert.Equal(t, 0, tr.Capacity(models.ClassAC1))
	})
}

func TestSchedule(t *testing.T) {
	tr := newTestTrain("T1",
		models.Stop{Code: "A", Distance: 0},
		models.Stop{Code: "B", Distance: 100},
	)

	schedule := tr.Schedule()
	assert.Len(t, schedule, 2)

	// Mutating the copy must not touch the train's route
	schedule[0].Code = "Z"
	assert.Equal(t, "A", tr.Schedule()[0].Code)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Add(newTestTrain("T2"))
	reg.Add(newTestTrain("T1"))

	t.Run("Lookup by ID", func(t *testing.T) {
		tr, ok := reg.Get("T1")
		assert.True(t, ok)
		assert.Equal(t, "T1", tr.ID)

		_, ok = reg.Get("T9")
		assert.False(t, ok)
	})

	t.Run("All preserves insertion order", func(t *testing.T) {
		all := reg.All()
		assert.Len(t, all, 2)
		assert.Equal(t, "T2", all[0].ID)
		assert.Equal(t, "T1", all[1].ID)
	})

	t.Run("Re-adding replaces without duplicating", func(t *testing.T) {
		reg.Add(newTestTrain("T1"))
		assert.Equal(t, 2, reg.Len())
	})
}

func TestSorting(t *testing.T) {
	early := newTestTrain("EARLY",
		models.Stop{Code: "A", Departure: mustTime(t, "06:00")},
		models.Stop{Code: "B", Arrival: mustTime(t, "12:00")},
	)
	late := newTestTrain("LATE",
		models.Stop{Code: "A", Departure: mustTime(t, "18:00")},
		models.Stop{Code: "B", Arrival: mustTime(t, "23:30")},
	)
	mid := newTestTrain("MID",
		models.Stop{Code: "A", Departure: mustTime(t, "11:15")},
		models.Stop{Code: "B", Arrival: mustTime(t, "17:45")},
	)

	ids := func(trains []*Train) []string {
		out := make([]string, len(trains))
		for i, tr := range trains {
			out[i] = tr.ID
		}
		return out
	}

	t.Run("By departure ascending", func(t *testing.T) {
		trains := []*Train{late, early, mid}
		SortByDeparture(trains, true)
		assert.Equal(t, []string{"EARLY", "MID", "LATE"}, ids(trains))
	})

	t.Run("By departure descending", func(t *testing.T) {
		trains := []*Train{early, mid, late}
		SortByDeparture(trains, false)
		assert.Equal(t, []string{"LATE", "MID", "EARLY"}, ids(trains))
	})

	t.Run("By arrival ascending", func(t *testing.T) {
		trains := []*Train{late, mid, early}
		SortByArrival(trains, true)
		assert.Equal(t, []string{"EARLY", "MID", "LATE"}, ids(trains))
	})

	t.Run("Stable for equal keys", func(t *testing.T) {
		twin := newTestTrain("TWIN",
			models.Stop{Code: "A", Departure: mustTime(t, "06:00")},
			models.Stop{Code: "B", Arrival: mustTime(t, "12:00")},
		)
		trains := []*Train{early, twin, mid}
		SortByDeparture(trains, true)
		assert.Equal(t, []string{"EARLY", "TWIN", "MID"}, ids(trains))
	})
}
