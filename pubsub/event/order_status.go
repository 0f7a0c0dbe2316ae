package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"andiamo/entity"
	"andiamo/log"
)

// OnOrderStatusUpdatedHandler is the order status monitor: it reacts to
// order rows entering a fulfillable state and invokes the orchestrator.
// Delivery of the feed is at-least-once, so the whole handler has to be safe
// to run twice for the same order; the orchestrator's idempotency guard
// carries that guarantee.
func (h Handler) OnOrderStatusUpdatedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"OnOrderStatusUpdated",
		func(ctx context.Context, event *entity.OrderStatusUpdated_v1) error {
			logger := log.FromContext(ctx).WithField("order_id", event.OrderID)

			// Cheap pre-filter on the event payload; the orchestrator
			// re-validates against the freshly loaded row anyway.
			probe := entity.Order{Channel: event.Channel, Status: event.Status}
			if !probe.IsFulfillable() {
				logger.Debug("Ignoring non-fulfillable status update")
				return nil
			}

			logger.Info("Order reached fulfillable state, generating tickets")

			result, err := h.orchestrator.GenerateTicketsForOrder(ctx, event.OrderID)
			switch {
			case errors.Is(err, entity.ErrOrderNotFulfillable):
				// The trigger was stale; nothing to do.
				logger.Info("Order no longer fulfillable, skipping")
				return nil
			case errors.Is(err, entity.ErrMissingContact), errors.Is(err, entity.ErrNoLineItems):
				// Retrying cannot fix the order data; ack and leave the
				// follow-up to the operations dashboard.
				logger.WithError(err).Error("Order cannot be fulfilled")
				return nil
			case err != nil:
				return fmt.Errorf("fulfillment failed for order %s: %w", event.OrderID, err)
			}

			if !result.EmailSent {
				// Run completed with the failure captured in ticket statuses
				// and the delivery log; a retry would only hit the
				// idempotency guard.
				if result.Err != nil {
					logger.WithError(result.Err).Error("Fulfillment run completed with failures")
				}
				return nil
			}

			return h.eventBus.Publish(ctx, entity.OrderFulfilled_v1{
				Header:      entity.NewEventHeaderWithIdempotencyKey(event.Header.IdempotencyKey),
				OrderID:     event.OrderID,
				TicketCount: len(result.Tickets),
				EmailSent:   true,
			})
		},
	)
}
