package entity

import "time"

type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// DeliveryLogEntry is an immutable audit record of one confirmation-email
// send attempt. Exactly one entry is appended per fulfillment run that
// reaches the send step, regardless of ticket count.
type DeliveryLogEntry struct {
	ID          int64          `json:"id" db:"id"`
	OrderID     string         `json:"order_id" db:"order_id"`
	Recipient   string         `json:"recipient" db:"recipient"`
	Subject     string         `json:"subject" db:"subject"`
	Status      DeliveryStatus `json:"status" db:"status"`
	ErrorDetail string         `json:"error_detail" db:"error_detail"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}
