// Package events publishes booking lifecycle messages to NATS so
// downstream consumers (notifications, analytics) can react without
// coupling to the booking engine.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/railbook/railbook_core/internal/models"
)

// PublisherMetrics receives publish outcome counts
type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

// Publisher sends booking events over a NATS connection. It satisfies
// the booking engine's EventPublisher interface.
type Publisher struct {
	nc          *nats.Conn
	logSubjects bool
	metrics     PublisherMetrics
}

// NewPublisher connects to NATS with reconnect handlers wired into the
// metrics sink.
func NewPublisher(url string, logSubjects bool, m PublisherMetrics) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("railbook-api"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &Publisher{nc: nc, logSubjects: logSubjects, metrics: m}, nil
}

// Close drains and closes the connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// BookingMessage is the wire format for booking events
type BookingMessage struct {
	Event           string    `json:"event"` // booked | cancelled
	BookingID       string    `json:"bookingId"`
	TrainID         string    `json:"trainId"`
	UserID          string    `json:"userId"`
	Class           string    `json:"class"`
	SourceCode      string    `json:"source"`
	DestinationCode string    `json:"destination"`
	TravelDate      time.Time `json:"travelDate"`
	Seats           []string  `json:"seats"`
	Fare            float64   `json:"fare"`
	Tatkal          bool      `json:"tatkal"`
	Timestamp       time.Time `json:"timestamp"`
}

// BookingConfirmed publishes a booked event for a confirmed booking
func (p *Publisher) BookingConfirmed(b *models.Booking) {
	p.publish("booked", b, b.Seats)
}

// BookingCancelled publishes a cancelled event carrying the seats that
// were released (all of them for a full cancellation).
func (p *Publisher) BookingCancelled(b *models.Booking, seatsReleased []string) {
	p.publish("cancelled", b, seatsReleased)
}

func (p *Publisher) publish(event string, b *models.Booking, seats []string) {
	subject := fmt.Sprintf("bookings.%s.%s", subjectToken(b.TrainID), event)

	msg := BookingMessage{
		Event:           event,
		BookingID:       b.ID,
		TrainID:         b.TrainID,
		UserID:          b.UserID,
		Class:           string(b.Class),
		SourceCode:      b.SourceCode,
		DestinationCode: b.DestinationCode,
		TravelDate:      b.TravelDate,
		Seats:           seats,
		Fare:            b.Fare,
		Tatkal:          b.Tatkal,
		Timestamp:       time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal booking event: %v", err)
		return
	}

	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}

	err = p.nc.Publish(subject, data)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		log.Printf("failed to publish booking event: %v", err)
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
