package entity

import (
	"database/sql"
	"time"
)

type TicketStatus string

const (
	// TicketStatusPending - ticket row exists, no QR code yet.
	TicketStatusPending TicketStatus = "pending"
	// TicketStatusGenerated - QR code rendered and uploaded.
	TicketStatusGenerated TicketStatus = "generated"
	// TicketStatusDelivered - confirmation email send succeeded. Terminal.
	TicketStatusDelivered TicketStatus = "delivered"
	// TicketStatusFailed - QR generation or email delivery failed. Terminal.
	TicketStatusFailed TicketStatus = "failed"
)

type EmailDeliveryStatus string

const (
	EmailDeliverySent   EmailDeliveryStatus = "sent"
	EmailDeliveryFailed EmailDeliveryStatus = "failed"
)

type Ticket struct {
	TicketID            string         `json:"ticket_id" db:"ticket_id"`
	OrderID             string         `json:"order_id" db:"order_id"`
	LineItemID          string         `json:"line_item_id" db:"line_item_id"`
	Token               string         `json:"token" db:"token"`
	QRCodeURL           sql.NullString `json:"qr_code_url" db:"qr_code_url"`
	Status              TicketStatus   `json:"status" db:"status"`
	EmailDeliveryStatus sql.NullString `json:"email_delivery_status" db:"email_delivery_status"`
	DeliveredAt         sql.NullTime   `json:"delivered_at" db:"delivered_at"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
}

// CanTransitionTo enforces the ticket lifecycle:
// pending -> generated -> delivered|failed, pending -> failed.
// Delivered and failed are terminal.
func (t Ticket) CanTransitionTo(next TicketStatus) bool {
	switch t.Status {
	case TicketStatusPending:
		return next == TicketStatusGenerated || next == TicketStatusFailed
	case TicketStatusGenerated:
		return next == TicketStatusDelivered || next == TicketStatusFailed
	default:
		return false
	}
}
