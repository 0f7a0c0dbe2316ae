package entity

type Money struct {
	Amount   string `json:"amount" db:"amount"`
	Currency string `json:"currency" db:"currency"`
}

type OrderChannel string

const (
	OrderChannelCashOnDelivery OrderChannel = "cod"
	OrderChannelOnline         OrderChannel = "online"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

type Order struct {
	OrderID       string       `json:"order_id" db:"order_id"`
	CustomerName  string       `json:"customer_name" db:"customer_name"`
	CustomerEmail string       `json:"customer_email" db:"customer_email"`
	CustomerPhone string       `json:"customer_phone" db:"customer_phone"`
	TotalAmount   string       `json:"total_amount" db:"total_amount"`
	TotalCurrency string       `json:"total_currency" db:"total_currency"`
	Channel       OrderChannel `json:"channel" db:"channel"`
	Status        OrderStatus  `json:"status" db:"status"`

	EventName      string `json:"event_name" db:"event_name"`
	EventDate      string `json:"event_date" db:"event_date"`
	EventLocation  string `json:"event_location" db:"event_location"`
	AmbassadorName string `json:"ambassador_name" db:"ambassador_name"`

	LineItems []OrderLineItem `json:"line_items" db:"-"`
}

type OrderLineItem struct {
	LineItemID string `json:"line_item_id" db:"line_item_id"`
	OrderID    string `json:"order_id" db:"order_id"`
	PassType   string `json:"pass_type" db:"pass_type"`
	Quantity   int    `json:"quantity" db:"quantity"`
	UnitAmount string `json:"unit_amount" db:"unit_amount"`
}

// IsFulfillable reports whether the order's channel/status combination
// makes it eligible for ticket issuance: cash-on-delivery orders once
// completed, online orders once paid.
func (o Order) IsFulfillable() bool {
	switch o.Channel {
	case OrderChannelCashOnDelivery:
		return o.Status == OrderStatusCompleted
	case OrderChannelOnline:
		return o.Status == OrderStatusPaid
	default:
		return false
	}
}

// TicketCount is the number of admission units the order entitles to,
// summed across line items.
func (o Order) TicketCount() int {
	var total int
	for _, item := range o.LineItems {
		total += item.Quantity
	}
	return total
}
