// Package notify delivers shop events to people and systems outside the
// conversation that caused them: administrators, customers whose order
// changed, and downstream consumers on Kafka.
package notify

import (
	"context"
	"errors"

	"github.com/m3rciful/shopbot/internal/flow"
	"github.com/m3rciful/shopbot/internal/shop"
)

// Multi fans every event out to all notifiers. Failures are joined; one
// failing notifier does not stop the others.
type Multi []flow.Notifier

var _ flow.Notifier = Multi(nil)

func (m Multi) OrderPlaced(ctx context.Context, order *shop.Order, customer *shop.User) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.OrderPlaced(ctx, order, customer))
	}
	return errors.Join(errs...)
}

func (m Multi) OrderStatusChanged(ctx context.Context, order *shop.Order, from shop.OrderStatus) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.OrderStatusChanged(ctx, order, from))
	}
	return errors.Join(errs...)
}

func (m Multi) Feedback(ctx context.Context, from *shop.User, text string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Feedback(ctx, from, text))
	}
	return errors.Join(errs...)
}
