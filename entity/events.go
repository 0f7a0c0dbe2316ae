package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// OrderStatusUpdated_v1 is emitted by the order-management side whenever an
// order row changes status. Delivery is at-least-once; the fulfillment
// handler must tolerate duplicates.
type OrderStatusUpdated_v1 struct {
	Header  EventHeader  `json:"header"`
	OrderID string       `json:"order_id"`
	Channel OrderChannel `json:"channel"`
	Status  OrderStatus  `json:"status"`
}

// TicketsCreated_v1 is published through the outbox in the same transaction
// as the ticket batch insert.
type TicketsCreated_v1 struct {
	Header    EventHeader `json:"header"`
	OrderID   string      `json:"order_id"`
	TicketIDs []string    `json:"ticket_ids"`
}

// OrderFulfilled_v1 is published after a run completes with a successful
// email send.
type OrderFulfilled_v1 struct {
	Header      EventHeader `json:"header"`
	OrderID     string      `json:"order_id"`
	TicketCount int         `json:"ticket_count"`
	EmailSent   bool        `json:"email_sent"`
}
