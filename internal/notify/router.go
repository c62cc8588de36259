package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/josh-kwaku/marketplace-payments/internal/bus"
	"github.com/josh-kwaku/marketplace-payments/internal/domain"
	"github.com/josh-kwaku/marketplace-payments/internal/logging"
)

type HandlerFunc func(ctx context.Context, body []byte) error

// Router is the subject to handler table. It is filled once at startup and
// then handed to a subscriber.
type Router struct {
	routes map[string]HandlerFunc
	order  []string
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]HandlerFunc)}
}

func (r *Router) Register(subject string, h HandlerFunc) error {
	if _, exists := r.routes[subject]; exists {
		return fmt.Errorf("Register: subject %q already has a handler", subject)
	}
	r.routes[subject] = h
	r.order = append(r.order, subject)
	return nil
}

func (r *Router) Subjects() []string {
	return append([]string(nil), r.order...)
}

func (r *Router) Dispatch(ctx context.Context, msg bus.Message) error {
	h, ok := r.routes[msg.Subject]
	if !ok {
		return fmt.Errorf("Dispatch: no handler for subject %q", msg.Subject)
	}
	ctx = logging.With(ctx, "subject", msg.Subject)
	return h(ctx, msg.Body)
}

// Run subscribes every registered subject and returns once all
// subscriptions are live.
func (r *Router) Run(ctx context.Context, sub bus.Subscriber) error {
	for _, subject := range r.order {
		if err := sub.Subscribe(ctx, subject, r.Dispatch); err != nil {
			return fmt.Errorf("Run: %w", err)
		}
	}
	return nil
}

// Routes builds the dispatcher's routing table.
func Routes(d *Dispatcher) (*Router, error) {
	r := NewRouter()
	if err := r.Register(domain.SubjectOrderCreated, d.handleOrderCreated); err != nil {
		return nil, err
	}
	if err := r.Register(domain.SubjectLowStock, d.handleLowStock); err != nil {
		return nil, err
	}
	return r, nil
}

func (d *Dispatcher) handleOrderCreated(ctx context.Context, body []byte) error {
	var ev domain.OrderCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("handleOrderCreated: %w: %v", domain.ErrMalformedEvent, err)
	}
	ctx = logging.WithLogger(ctx, d.logger.With("subject", domain.SubjectOrderCreated, "order_id", ev.OrderID))
	return d.OrderCreated(ctx, ev).Err()
}

func (d *Dispatcher) handleLowStock(ctx context.Context, body []byte) error {
	var ev domain.LowStockEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("handleLowStock: %w: %v", domain.ErrMalformedEvent, err)
	}
	ctx = logging.WithLogger(ctx, d.logger.With("subject", domain.SubjectLowStock, "product_offer_id", ev.ProductOfferID))
	return d.LowStock(ctx, ev).Err()
}
