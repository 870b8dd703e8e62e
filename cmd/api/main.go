package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/railbook/railbook_core/internal/api"
	"github.com/railbook/railbook_core/internal/booking"
	"github.com/railbook/railbook_core/internal/cache"
	"github.com/railbook/railbook_core/internal/catalog"
	"github.com/railbook/railbook_core/internal/config"
	"github.com/railbook/railbook_core/internal/db"
	"github.com/railbook/railbook_core/internal/events"
	"github.com/railbook/railbook_core/internal/metrics"
	"github.com/railbook/railbook_core/internal/middleware"
	"github.com/railbook/railbook_core/internal/train"
)

func main() {
	log.Println("Starting RailBook API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Load the train catalog into the in-memory registry
	registry, err := loadRegistry(cfg)
	if err != nil {
		log.Fatalf("Failed to load train catalog: %v", err)
	}
	log.Printf("✓ Loaded %d trains", registry.Len())

	// Redis is optional: without it searches skip the cache and the
	// booking rate limiter is disabled.
	cacheEnabled := true
	rdb, err := cache.GetClient()
	if err != nil {
		log.Printf("⚠ Redis unavailable, running without cache: %v", err)
		cacheEnabled = false
	} else {
		defer cache.Close()
		log.Println("✓ Redis connection established")
	}

	collector := metrics.NewCollector()
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = collector.Serve(cfg.MetricsAddr)
	}

	opts := []booking.Option{booking.WithMetrics(collector)}

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, cfg.LogEventSubjects, collector)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		opts = append(opts, booking.WithEvents(publisher))
		log.Println("✓ NATS connection established")
	}

	engine := booking.NewEngine(registry, opts...)
	server := api.NewServer(engine, cacheEnabled)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "RailBook API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID",
	}))

	// Routes
	app.Get("/health", server.Health)
	app.Get("/v2/trains/search", server.SearchTrains)
	app.Get("/v2/trains/:id/schedule", server.TrainSchedule)
	app.Get("/v2/users/:id/bookings", server.UserBookings)

	if cacheEnabled {
		app.Post("/v2/bookings", middleware.BookingRateLimit(rdb, middleware.DefaultLimits), server.CreateBooking)
	} else {
		app.Post("/v2/bookings", server.CreateBooking)
	}
	app.Delete("/v2/bookings/:id", server.CancelBooking)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	addr := fmt.Sprintf(":%s", cfg.APIPort)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		if metricsSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsSrv.Shutdown(ctx)
		}
	}()

	// Start server
	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📍 Train search: http://localhost%s/v2/trains/search?from=NDLS&to=BCT", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadRegistry builds the train registry from either the catalog file
// or the database, depending on CATALOG_SOURCE.
func loadRegistry(cfg *config.Config) (*train.Registry, error) {
	var records []catalog.TrainRecord
	var err error

	switch cfg.CatalogSource {
	case "db":
		pool, dbErr := db.GetDB()
		if dbErr != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", dbErr)
		}
		records, err = db.LoadTrains(context.Background(), pool)
	default:
		records, err = catalog.ParseFile(cfg.TrainsFile)
	}
	if err != nil {
		return nil, err
	}

	registry := train.NewRegistry()
	for _, rec := range records {
		registry.Add(rec.Train())
	}
	return registry, nil
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
