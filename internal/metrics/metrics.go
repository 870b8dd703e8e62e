package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the reservation service's Prometheus metrics on a
// private registry. It satisfies both the booking engine's Metrics
// interface and the event publisher's PublisherMetrics interface.
type Collector struct {
	reg *prometheus.Registry

	BookingsTotal      prometheus.Counter
	BookingFailures    *prometheus.CounterVec // reason label
	CancellationsTotal prometheus.Counter

	SeatsAssigned  prometheus.Counter
	SeatsReleased  prometheus.Counter
	ActiveBookings prometheus.Gauge

	BookDuration prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

// NewCollector creates and registers all metrics
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		BookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railbook_bookings_total",
			Help: "Total confirmed bookings.",
		}),
		BookingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railbook_booking_failures_total",
			Help: "Total failed booking attempts by reason.",
		}, []string{"reason"}),
		CancellationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railbook_cancellations_total",
			Help: "Total full or partial cancellations.",
		}),
		SeatsAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railbook_seats_assigned_total",
			Help: "Total seats handed out to confirmed bookings.",
		}),
		SeatsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railbook_seats_released_total",
			Help: "Total seats returned by cancellations.",
		}),
		ActiveBookings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railbook_active_bookings",
			Help: "Bookings currently held in the ledger.",
		}),
		BookDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "railbook_book_duration_seconds",
			Help:    "Duration of the booking critical section.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railbook_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railbook_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railbook_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.BookingsTotal, c.BookingFailures, c.CancellationsTotal,
		c.SeatsAssigned, c.SeatsReleased, c.ActiveBookings,
		c.BookDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)

	return c
}

// Booking engine Metrics interface

func (c *Collector) BookingConfirmed(seats int) {
	c.BookingsTotal.Inc()
	c.SeatsAssigned.Add(float64(seats))
	c.ActiveBookings.Inc()
}

func (c *Collector) BookingFailed(reason string) {
	if reason == "" {
		reason = "invalid_request"
	}
	c.BookingFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) BookingCancelled(seatsReleased int, removed bool) {
	c.CancellationsTotal.Inc()
	c.SeatsReleased.Add(float64(seatsReleased))
	if removed {
		c.ActiveBookings.Dec()
	}
}

func (c *Collector) BookingObserve(d time.Duration) {
	c.BookDuration.Observe(d.Seconds())
}

// Event publisher PublisherMetrics interface

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
