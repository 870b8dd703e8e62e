// Package catalog loads static train definitions from the delimited
// catalog format: one CSV record per train with six fields — id, name,
// class::fare pairs, class::capacity pairs, running-day abbreviations
// and stop specs — where lists use ';' between entries and '::' within
// an entry.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/railbook/railbook_core/internal/models"
	"github.com/railbook/railbook_core/internal/train"
)

const (
	pairSep  = ";"
	fieldSep = "::"
)

// TrainRecord is one parsed catalog row, before a Train is built
type TrainRecord struct {
	ID          string
	Name        string
	BaseFares   map[models.TravelClass]float64
	Capacities  map[models.TravelClass]int
	RunningDays []time.Weekday
	Stops       []models.Stop
}

// Train builds a ready-to-register train from the record
func (r TrainRecord) Train() *train.Train {
	t := train.New(r.ID, r.Name, r.Capacities)
	t.SetBaseFares(r.BaseFares)
	t.SetRunningDays(r.RunningDays)
	for _, s := range r.Stops {
		t.AddStop(s)
	}
	return t
}

// ParseFile parses a catalog file
func ParseFile(path string) ([]TrainRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseReader(file)
}

// ParseReader parses catalog records from a reader. The first line is
// a header and is skipped; malformed rows are logged and skipped.
func ParseReader(reader io.Reader) ([]TrainRecord, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	if _, err := csvReader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var records []TrainRecord
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: skipping malformed catalog row: %v", err)
			continue
		}

		rec, err := parseRecord(row)
		if err != nil {
			log.Printf("Warning: skipping train row: %v", err)
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

func parseRecord(row []string) (TrainRecord, error) {
	if len(row) != 6 {
		return TrainRecord{}, fmt.Errorf("expected 6 fields, got %d", len(row))
	}

	id := strings.TrimSpace(row[0])
	name := strings.TrimSpace(row[1])
	if id == "" || name == "" {
		return TrainRecord{}, fmt.Errorf("train id and name are required")
	}

	fares, err := parseClassFares(row[2])
	if err != nil {
		return TrainRecord{}, fmt.Errorf("train %s: %w", id, err)
	}

	capacities, err := parseClassCapacities(row[3])
	if err != nil {
		return TrainRecord{}, fmt.Errorf("train %s: %w", id, err)
	}

	days, err := ParseRunningDays(row[4])
	if err != nil {
		return TrainRecord{}, fmt.Errorf("train %s: %w", id, err)
	}

	stops, err := parseStops(row[5])
	if err != nil {
		return TrainRecord{}, fmt.Errorf("train %s: %w", id, err)
	}

	return TrainRecord{
		ID:          id,
		Name:        name,
		BaseFares:   fares,
		Capacities:  capacities,
		RunningDays: days,
		Stops:       stops,
	}, nil
}

func parseClassFares(input string) (map[models.TravelClass]float64, error) {
	fares := make(map[models.TravelClass]float64)
	for _, pair := range strings.Split(input, pairSep) {
		parts := strings.Split(pair, fieldSep)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid class fare pair: %q", pair)
		}
		fare, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fare in %q: %w", pair, err)
		}
		fares[models.TravelClass(strings.TrimSpace(parts[0]))] = fare
	}
	return fares, nil
}

func parseClassCapacities(input string) (map[models.TravelClass]int, error) {
	capacities := make(map[models.TravelClass]int)
	for _, pair := range strings.Split(input, pairSep) {
		parts := strings.Split(pair, fieldSep)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid class capacity pair: %q", pair)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || capacity < 0 {
			return nil, fmt.Errorf("invalid capacity in %q", pair)
		}
		capacities[models.TravelClass(strings.TrimSpace(parts[0]))] = capacity
	}
	return capacities, nil
}

// ParseWeekday maps a three-letter abbreviation to a weekday
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MON":
		return time.Monday, nil
	case "TUE":
		return time.Tuesday, nil
	case "WED":
		return time.Wednesday, nil
	case "THU":
		return time.Thursday, nil
	case "FRI":
		return time.Friday, nil
	case "SAT":
		return time.Saturday, nil
	case "SUN":
		return time.Sunday, nil
	}
	return 0, fmt.Errorf("invalid day: %q", s)
}

// WeekdayAbbrev is the inverse of ParseWeekday, used when writing the
// catalog out to storage.
func WeekdayAbbrev(d time.Weekday) string {
	return strings.ToUpper(d.String()[:3])
}

// ParseRunningDays parses a ';'-separated list of day abbreviations
func ParseRunningDays(input string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, s := range strings.Split(input, pairSep) {
		day, err := ParseWeekday(s)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// parseStops parses ';'-separated stop specs of the form
// code::name::arrival::departure::distance, validating that distance
// never decreases along the route.
func parseStops(input string) ([]models.Stop, error) {
	var stops []models.Stop
	lastDistance := -1

	for _, spec := range strings.Split(input, pairSep) {
		parts := strings.Split(spec, fieldSep)
		if len(parts) != 5 {
			return nil, fmt.Errorf("invalid stop spec: %q", spec)
		}

		arrival, err := models.ParseTimeOfDay(parts[2])
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", parts[0], err)
		}
		departure, err := models.ParseTimeOfDay(parts[3])
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", parts[0], err)
		}

		distance, err := strconv.Atoi(strings.TrimSpace(parts[4]))
		if err != nil || distance < 0 {
			return nil, fmt.Errorf("invalid distance in stop %q", spec)
		}
		if distance < lastDistance {
			return nil, fmt.Errorf("distance decreases at stop %q", parts[0])
		}
		lastDistance = distance

		stops = append(stops, models.Stop{
			Code:      strings.TrimSpace(parts[0]),
			Name:      strings.TrimSpace(parts[1]),
			Arrival:   arrival,
			Departure: departure,
			Distance:  distance,
		})
	}

	if len(stops) == 0 {
		return nil, fmt.Errorf("route needs at least one stop")
	}
	return stops, nil
}
