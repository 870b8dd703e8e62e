package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TravelClass identifies a coach class on a train
type TravelClass string

const (
	ClassSleeper TravelClass = "SL"
	ClassAC3     TravelClass = "3A"
	ClassAC2     TravelClass = "2A"
	ClassAC1     TravelClass = "1A"
	ClassChair   TravelClass = "CC"
)

// TimeOfDay is a wall-clock time as minutes since midnight.
// Stop arrival/departure times have no date component, so a plain
// minute count is enough and keeps comparisons cheap.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}

	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}

	return TimeOfDay(hours*60 + minutes), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Before reports whether t is strictly earlier than other
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t < other
}

// MarshalJSON renders the time as "HH:MM"
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON parses an "HH:MM" JSON string
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Stop represents one scheduled halt on a train's route
type Stop struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Arrival   TimeOfDay `json:"arrival"`
	Departure TimeOfDay `json:"departure"`
	Distance  int       `json:"distance_km"` // cumulative from origin
}

// Passenger is one traveller on a booking. Seat is empty until the
// booking engine assigns one.
type Passenger struct {
	Name string `json:"name"`
	Seat string `json:"seat,omitempty"`
}

// Booking is a confirmed reservation. It is immutable except for
// passenger removal during partial cancellation; Seats stays parallel
// to Passengers.
type Booking struct {
	ID              string      `json:"id"`
	TrainID         string      `json:"train_id"`
	UserID          string      `json:"user_id"`
	Passengers      []Passenger `json:"passengers"`
	Class           TravelClass `json:"class"`
	SourceCode      string      `json:"source"`
	DestinationCode string      `json:"destination"`
	TravelDate      time.Time   `json:"travel_date"`
	Seats           []string    `json:"seats"`
	Fare            float64     `json:"fare"`
	Tatkal          bool        `json:"tatkal"`
}

// RemovePassengers removes, for each given name, the first passenger
// with that name, and returns the seats that were freed up. Duplicate
// names in a booking resolve to the first match; names with no match
// are ignored.
func (b *Booking) RemovePassengers(names []string) []string {
	var released []string

	for _, name := range names {
		for i, p := range b.Passengers {
			if p.Name == name {
				released = append(released, b.Seats[i])
				b.Passengers = append(b.Passengers[:i], b.Passengers[i+1:]...)
				b.Seats = append(b.Seats[:i], b.Seats[i+1:]...)
				break
			}
		}
	}

	return released
}

// TrainSummary is the search-result view of a train
type TrainSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Departure TimeOfDay `json:"departure"` // first stop
	Arrival   TimeOfDay `json:"arrival"`   // last stop
	Stops     int       `json:"stops"`
}
