// Package notify fans domain events out to per-producer notification
// subjects. Each incoming event is handled on its own with no state kept
// between events.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/josh-kwaku/marketplace-payments/internal/domain"
	"github.com/josh-kwaku/marketplace-payments/internal/logging"
	"github.com/josh-kwaku/marketplace-payments/internal/metrics"
)

var envelopeNamespace = uuid.MustParse("7d3c5a0e-4f55-4b53-9c0c-1f9a6a2e8b41")

var errMissingRecipient = errors.New("missing recipient id")

type publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type Delivery struct {
	RecipientID string
	Subject     string
	EnvelopeID  uuid.UUID
}

type Failure struct {
	RecipientID string
	Subject     string
	Err         error
}

// Report lists what happened to every recipient of one source event, in
// recipient order.
type Report struct {
	Source    string
	Delivered []Delivery
	Failed    []Failure
}

func (r Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("recipient %q: %w", f.RecipientID, f.Err))
	}
	return fmt.Errorf("%s: %d of %d recipients failed: %w",
		r.Source, len(r.Failed), len(r.Failed)+len(r.Delivered), errors.Join(errs...))
}

type Dispatcher struct {
	events publisher
	logger *slog.Logger
}

func NewDispatcher(events publisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{events: events, logger: logger}
}

// OrderCreated notifies every producer listed on the order. The list is used
// as given: no reordering and no deduplication.
func (d *Dispatcher) OrderCreated(ctx context.Context, ev domain.OrderCreatedEvent) Report {
	summary := domain.OrderSummary{
		OrderID:     ev.OrderID,
		ClientName:  ev.ClientName,
		Address:     ev.Address,
		TotalAmount: ev.TotalAmount,
		ItemCount:   ev.ItemCount,
		OrderDate:   ev.OrderDate,
	}
	return d.fanOut(ctx, domain.NotificationNewOrder, "order:"+ev.OrderID, ev.ProducerIDs, summary)
}

// LowStock notifies the single producer that owns the offer.
func (d *Dispatcher) LowStock(ctx context.Context, ev domain.LowStockEvent) Report {
	alert := domain.StockAlert{
		ProductOfferID:    ev.ProductOfferID,
		AvailableQuantity: ev.AvailableQuantity,
		MinimumThreshold:  ev.MinimumThreshold,
	}
	source := "offer:" + ev.ProductOfferID + ":" + strconv.Itoa(ev.AvailableQuantity)
	return d.fanOut(ctx, domain.NotificationLowStock, source, []string{ev.ProducerID}, alert)
}

func (d *Dispatcher) fanOut(ctx context.Context, typ domain.NotificationType, source string, recipients []string, payload any) Report {
	log := logging.FromContext(ctx).With("notification_type", typ, "source", source)
	report := Report{Source: source}

	if len(recipients) == 0 {
		log.Warn("event has no recipients")
		return report
	}

	for i, recipientID := range recipients {
		subject := domain.ProducerSubject(recipientID)

		if recipientID == "" {
			report.Failed = append(report.Failed, Failure{RecipientID: recipientID, Subject: subject, Err: errMissingRecipient})
			metrics.FanOutEnvelopes.WithLabelValues(string(typ), "failed").Inc()
			log.Error("skipping empty recipient id", "position", i)
			continue
		}

		envelope := domain.NotificationEnvelope{
			ID:          EnvelopeID(typ, source, i, recipientID),
			Type:        typ,
			RecipientID: recipientID,
			Payload:     payload,
		}

		if err := d.events.Publish(ctx, subject, envelope); err != nil {
			report.Failed = append(report.Failed, Failure{RecipientID: recipientID, Subject: subject, Err: err})
			metrics.FanOutEnvelopes.WithLabelValues(string(typ), "failed").Inc()
			log.Error("failed to notify producer", "recipient_id", recipientID, "subject", subject, "error", err)
			continue
		}

		report.Delivered = append(report.Delivered, Delivery{RecipientID: recipientID, Subject: subject, EnvelopeID: envelope.ID})
		metrics.FanOutEnvelopes.WithLabelValues(string(typ), "ok").Inc()
	}

	log.Info("fan-out complete",
		"recipients", len(recipients),
		"delivered", len(report.Delivered),
		"failed", len(report.Failed),
	)
	return report
}

// EnvelopeID is stable for a given source event and recipient slot, so a
// re-delivered envelope can be recognised downstream. The position keeps two
// slots for the same producer distinct.
func EnvelopeID(typ domain.NotificationType, source string, position int, recipientID string) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%d|%s", typ, source, position, recipientID)
	return uuid.NewSHA1(envelopeNamespace, []byte(name))
}
