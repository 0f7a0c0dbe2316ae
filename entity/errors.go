package entity

import "errors"

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotFulfillable  = errors.New("order is not in a fulfillable state")
	ErrMissingContact       = errors.New("order has no buyer contact address")
	ErrNoLineItems          = errors.New("order has no line items")
	ErrTicketCreationFailed = errors.New("ticket creation failed")
	ErrNoTicketsGenerated   = errors.New("no tickets could be generated")
	ErrFulfillmentConflict  = errors.New("fulfillment already in progress for this order")
)
