package entity

// RegistryEntry is the denormalized, read-optimized projection of a ticket
// used by the gate-validation path for single-lookup scans. It is keyed by
// the secure token and is never the source of truth.
type RegistryEntry struct {
	Token          string `redis:"token"`
	TicketID       string `redis:"ticket_id"`
	OrderID        string `redis:"order_id"`
	PassType       string `redis:"pass_type"`
	QRCodeURL      string `redis:"qr_code_url"`
	CustomerName   string `redis:"customer_name"`
	CustomerEmail  string `redis:"customer_email"`
	CustomerPhone  string `redis:"customer_phone"`
	EventName      string `redis:"event_name"`
	EventDate      string `redis:"event_date"`
	EventLocation  string `redis:"event_location"`
	AmbassadorName string `redis:"ambassador_name"`
}
