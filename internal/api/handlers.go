package api

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/railbook/railbook_core/internal/booking"
	"github.com/railbook/railbook_core/internal/cache"
	"github.com/railbook/railbook_core/internal/models"
)

// Server exposes the booking engine over HTTP
type Server struct {
	engine       *booking.Engine
	cacheEnabled bool
}

// NewServer creates the HTTP handler set. cacheEnabled controls
// whether search results go through Redis.
func NewServer(engine *booking.Engine, cacheEnabled bool) *Server {
	return &Server{engine: engine, cacheEnabled: cacheEnabled}
}

// SearchResponse is the /v2/trains/search response structure
type SearchResponse struct {
	Trains []models.TrainSummary `json:"trains"`
	Total  int                   `json:"total"`
}

// SearchTrains handles GET /v2/trains/search
func (s *Server) SearchTrains(c *fiber.Ctx) error {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required parameters: from and to",
		})
	}

	date, err := parseDate(c.Query("date"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid date: %v", err),
		})
	}

	class := models.TravelClass(c.Query("class", string(models.ClassSleeper)))

	sortBy := c.Query("sort")     // "", "departure" or "arrival"
	order := c.Query("order", "asc")
	if sortBy != "" && sortBy != "departure" && sortBy != "arrival" {
		return c.Status(400).JSON(fiber.Map{
			"error": "sort must be departure or arrival",
		})
	}
	if order != "asc" && order != "desc" {
		return c.Status(400).JSON(fiber.Map{
			"error": "order must be asc or desc",
		})
	}

	summaries, err := s.searchCached(c, from, to, date, class, sortBy, order)
	if err != nil {
		log.Printf("Search failed: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if summaries == nil {
		summaries = []models.TrainSummary{}
	}
	return c.JSON(SearchResponse{Trains: summaries, Total: len(summaries)})
}

// searchCached runs a search through the Redis cache with a SetNX
// lock to stop identical concurrent searches from stampeding.
func (s *Server) searchCached(c *fiber.Ctx, from, to string, date time.Time, class models.TravelClass, sortBy, order string) ([]models.TrainSummary, error) {
	if !s.cacheEnabled {
		return s.search(from, to, date, class, sortBy, order), nil
	}

	ctx := c.Context()
	cacheKey := cache.SearchKey(from, to, date.Weekday(), class, sortBy+":"+order)
	lockKey := cache.LockKey(cacheKey)

	cached, err := cache.GetSearch(ctx, cacheKey)
	if err == nil && cached != nil {
		return cached, nil
	}

	acquired, err := cache.AcquireLock(ctx, lockKey, 5*time.Second)
	if err != nil {
		log.Printf("Failed to acquire lock: %v", err)
		// Continue without lock (degrade gracefully)
	} else if !acquired {
		cached, err := cache.WaitForLock(ctx, cacheKey, 3*time.Second)
		if err == nil && cached != nil {
			return cached, nil
		}
		// If waiting failed, compute anyway
	}

	defer func() {
		if acquired {
			cache.ReleaseLock(ctx, lockKey)
		}
	}()

	summaries := s.search(from, to, date, class, sortBy, order)

	if err := cache.SetSearch(ctx, cacheKey, summaries, 5*time.Minute); err != nil {
		log.Printf("Failed to cache search: %v", err)
	}

	return summaries, nil
}

func (s *Server) search(from, to string, date time.Time, class models.TravelClass, sortBy, order string) []models.TrainSummary {
	trains := s.engine.SearchTrains(from, to, date, class)

	ascending := order != "desc"
	switch sortBy {
	case "departure":
		s.engine.SortTrainsByDepartureTime(trains, ascending)
	case "arrival":
		s.engine.SortTrainsByArrivalTime(trains, ascending)
	}

	summaries := make([]models.TrainSummary, 0, len(trains))
	for _, tr := range trains {
		summaries = append(summaries, tr.Summary())
	}
	return summaries
}

// BookingRequest is the POST /v2/bookings request body
type BookingRequest struct {
	TrainID     string             `json:"train_id"`
	UserID      string             `json:"user_id"`
	Passengers  []models.Passenger `json:"passengers"`
	Class       models.TravelClass `json:"class"`
	Source      string             `json:"source"`
	Destination string             `json:"destination"`
	TravelDate  string             `json:"travel_date"` // 2006-01-02
	Tatkal      bool               `json:"tatkal"`
}

// CreateBooking handles POST /v2/bookings
func (s *Server) CreateBooking(c *fiber.Ctx) error {
	var req BookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.TrainID == "" || req.UserID == "" || len(req.Passengers) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "train_id, user_id and at least one passenger are required",
		})
	}
	for _, p := range req.Passengers {
		if strings.TrimSpace(p.Name) == "" {
			return c.Status(400).JSON(fiber.Map{
				"error": "every passenger needs a name",
			})
		}
	}

	travelDate, err := parseDate(req.TravelDate)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid travel_date: %v", err),
		})
	}

	if req.Class == "" {
		req.Class = models.ClassSleeper
	}

	b, err := s.engine.BookTickets(req.TrainID, req.UserID, req.Passengers, req.Class,
		req.Source, req.Destination, travelDate, req.Tatkal)
	if err != nil {
		return c.Status(bookingStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
			"kind":  string(booking.KindOf(err)),
		})
	}

	return c.Status(201).JSON(b)
}

// CancelRequest is the DELETE /v2/bookings/:id request body. With an
// empty passenger list the whole booking is cancelled.
type CancelRequest struct {
	UserID     string   `json:"user_id"`
	Passengers []string `json:"passengers"`
}

// CancelBooking handles DELETE /v2/bookings/:id
func (s *Server) CancelBooking(c *fiber.Ctx) error {
	bookingID := c.Params("id")

	var req CancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}
	if req.UserID == "" {
		req.UserID = c.Query("user_id")
	}
	if req.UserID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	if !s.engine.CancelBooking(req.UserID, bookingID, req.Passengers) {
		return c.Status(404).JSON(fiber.Map{
			"error": "booking not found",
		})
	}

	return c.JSON(fiber.Map{
		"cancelled": true,
	})
}

// BookingsResponse is the GET /v2/users/:id/bookings response
type BookingsResponse struct {
	Bookings []*models.Booking `json:"bookings"`
	Total    int               `json:"total"`
}

// UserBookings handles GET /v2/users/:id/bookings
func (s *Server) UserBookings(c *fiber.Ctx) error {
	bookings := s.engine.GetBookings(c.Params("id"))
	return c.JSON(BookingsResponse{Bookings: bookings, Total: len(bookings)})
}

// ScheduleResponse is the GET /v2/trains/:id/schedule response
type ScheduleResponse struct {
	TrainID string        `json:"train_id"`
	Name    string        `json:"name"`
	Stops   []models.Stop `json:"stops"`
}

// TrainSchedule handles GET /v2/trains/:id/schedule
func (s *Server) TrainSchedule(c *fiber.Ctx) error {
	id := c.Params("id")

	tr, ok := s.engine.Registry().Get(id)
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": "train not found",
		})
	}

	return c.JSON(ScheduleResponse{
		TrainID: tr.ID,
		Name:    tr.Name,
		Stops:   s.engine.GetTrainSchedule(id),
	})
}

// Health handles GET /health
func (s *Server) Health(c *fiber.Ctx) error {
	status := "healthy"
	httpStatus := 200

	redisStatus := "disabled"
	if s.cacheEnabled {
		redisStatus = "ok"
		if err := cache.HealthCheck(c.Context()); err != nil {
			redisStatus = err.Error()
			status = "degraded"
		}
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"trains": s.engine.Registry().Len(),
		"checks": fiber.Map{
			"redis": redisStatus,
		},
	})
}

// bookingStatus maps a booking failure to an HTTP status code
func bookingStatus(err error) int {
	switch booking.KindOf(err) {
	case booking.KindNotFound:
		return 404
	case booking.KindInvalidRoute:
		return 400
	case booking.KindTatkalWindow:
		return 403
	case booking.KindInsufficientCapacity:
		return 409
	default:
		return 400
	}
}

// parseDate parses a YYYY-MM-DD date, defaulting to today
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", s)
}
