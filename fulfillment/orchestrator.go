package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"andiamo/email"
	"andiamo/entity"
	"andiamo/log"
	"andiamo/metrics"
)

// qrConcurrencyLimit bounds the per-ticket QR render/upload fan-out. Each
// ticket touches a disjoint row, so the limit is throughput tuning only.
const qrConcurrencyLimit = 4

type OrdersRepository interface {
	GetWithLineItems(ctx context.Context, orderID string) (entity.Order, error)
}

type TicketsRepository interface {
	CreateForOrder(ctx context.Context, orderID string, tickets []entity.Ticket) error
	FindByOrderID(ctx context.Context, orderID string) ([]entity.Ticket, error)
	MarkGenerated(ctx context.Context, ticketID string, qrCodeURL string) error
	MarkFailed(ctx context.Context, ticketID string) error
	MarkRunOutcome(ctx context.Context, ticketIDs []string, emailSent bool) error
}

type DeliveryLog interface {
	Append(ctx context.Context, entry entity.DeliveryLogEntry) error
}

// Registry is the best-effort gate-side index. Insert errors are logged and
// swallowed here so the contract lives in one place instead of scattered
// suppression in the run loop.
type Registry interface {
	Insert(ctx context.Context, entry entity.RegistryEntry) error
}

type QRRenderer interface {
	Render(ctx context.Context, token string) ([]byte, error)
}

type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Result is the outcome of one fulfillment run. Expected failures past the
// precondition checks are captured in Err instead of being raised: one bad
// ticket or one failed send never corrupts sibling records.
type Result struct {
	Tickets   []entity.Ticket
	EmailSent bool
	Err       error
}

func (r Result) Success() bool {
	return r.Err == nil
}

type Orchestrator struct {
	orders      OrdersRepository
	tickets     TicketsRepository
	deliveryLog DeliveryLog
	registry    Registry
	qr          QRRenderer
	storage     ObjectStorage
	mailer      Mailer
}

func NewOrchestrator(
	orders OrdersRepository,
	tickets TicketsRepository,
	deliveryLog DeliveryLog,
	registry Registry,
	qr QRRenderer,
	storage ObjectStorage,
	mailer Mailer,
) *Orchestrator {
	if orders == nil {
		panic("missing orders repository")
	}
	if tickets == nil {
		panic("missing tickets repository")
	}
	if deliveryLog == nil {
		panic("missing delivery log")
	}
	if registry == nil {
		panic("missing registry")
	}
	if qr == nil {
		panic("missing QR renderer")
	}
	if storage == nil {
		panic("missing object storage")
	}
	if mailer == nil {
		panic("missing mailer")
	}

	return &Orchestrator{
		orders:      orders,
		tickets:     tickets,
		deliveryLog: deliveryLog,
		registry:    registry,
		qr:          qr,
		storage:     storage,
		mailer:      mailer,
	}
}

// GenerateTicketsForOrder is the single fulfillment entry point, shared by
// the order-status monitor and the manual administrative trigger. It is safe
// to invoke more than once for the same order: a prior run's tickets are
// returned as-is with no further side effects.
func (o *Orchestrator) GenerateTicketsForOrder(ctx context.Context, orderID string) (Result, error) {
	logger := log.FromContext(ctx).WithField("order_id", orderID)

	order, err := o.orders.GetWithLineItems(ctx, orderID)
	if err != nil {
		return Result{}, err
	}

	// Re-validate against the freshly loaded row: the triggering event may
	// be stale by the time this run starts.
	if !order.IsFulfillable() {
		return Result{}, fmt.Errorf("%w: channel=%s status=%s", entity.ErrOrderNotFulfillable, order.Channel, order.Status)
	}
	existing, err := o.tickets.FindByOrderID(ctx, orderID)
	if err != nil {
		return Result{}, fmt.Errorf("could not check for existing tickets: %w", err)
	}
	if len(existing) > 0 {
		logger.WithField("tickets", len(existing)).Info("Order already fulfilled, returning existing tickets")
		return Result{Tickets: existing}, nil
	}

	if len(order.LineItems) == 0 {
		return Result{}, entity.ErrNoLineItems
	}
	if order.CustomerEmail == "" {
		return Result{}, entity.ErrMissingContact
	}

	tickets := buildTickets(order)

	err = o.tickets.CreateForOrder(ctx, orderID, tickets)
	if errors.Is(err, entity.ErrFulfillmentConflict) {
		// A concurrent invocation claimed the lock first; converge on its
		// tickets instead of failing the trigger.
		logger.Info("Concurrent fulfillment detected, returning winner's tickets")
		winners, findErr := o.tickets.FindByOrderID(ctx, orderID)
		if findErr != nil {
			return Result{}, fmt.Errorf("could not load tickets after conflict: %w", findErr)
		}
		return Result{Tickets: winners}, nil
	}
	if err != nil {
		metrics.FulfillmentRuns.WithLabelValues("ticket_creation_failed").Inc()
		return Result{}, fmt.Errorf("%w: %s", entity.ErrTicketCreationFailed, err)
	}

	tickets = o.generateQRCodes(ctx, order, tickets)

	generated := lo.Filter(tickets, func(t entity.Ticket, _ int) bool {
		return t.Status == entity.TicketStatusGenerated
	})
	if len(generated) == 0 {
		metrics.FulfillmentRuns.WithLabelValues("no_tickets_generated").Inc()
		return Result{Tickets: tickets, Err: entity.ErrNoTicketsGenerated}, nil
	}

	o.populateRegistry(ctx, order, generated)

	emailSent, sendErr := o.sendConfirmation(ctx, order, tickets)

	generatedIDs := lo.Map(generated, func(t entity.Ticket, _ int) string {
		return t.TicketID
	})
	if err := o.tickets.MarkRunOutcome(ctx, generatedIDs, emailSent); err != nil {
		logger.WithError(err).Error("Failed to update final ticket statuses")
	}
	tickets = applyRunOutcome(tickets, emailSent)

	if emailSent {
		metrics.FulfillmentRuns.WithLabelValues("fulfilled").Inc()
		return Result{Tickets: tickets, EmailSent: true}, nil
	}

	metrics.FulfillmentRuns.WithLabelValues("email_failed").Inc()
	return Result{Tickets: tickets, Err: fmt.Errorf("confirmation email failed: %w", sendErr)}, nil
}

// buildTickets creates one pending ticket per purchased unit across all line
// items, each with a fresh secure token.
func buildTickets(order entity.Order) []entity.Ticket {
	now := time.Now().UTC()

	tickets := make([]entity.Ticket, 0, order.TicketCount())
	for _, item := range order.LineItems {
		for i := 0; i < item.Quantity; i++ {
			tickets = append(tickets, entity.Ticket{
				TicketID:   uuid.NewString(),
				OrderID:    order.OrderID,
				LineItemID: item.LineItemID,
				Token:      entity.NewSecureToken(),
				Status:     entity.TicketStatusPending,
				CreatedAt:  now,
			})
		}
	}

	return tickets
}

// generateQRCodes runs the render/upload/update step for every ticket under
// bounded concurrency. Each ticket succeeds or fails independently; the
// returned slice carries the per-unit outcome in the ticket status.
func (o *Orchestrator) generateQRCodes(ctx context.Context, order entity.Order, tickets []entity.Ticket) []entity.Ticket {
	logger := log.FromContext(ctx).WithField("order_id", order.OrderID)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(qrConcurrencyLimit)

	for i := range tickets {
		i := i
		g.Go(func() error {
			ticket := tickets[i]
			url, err := o.generateOne(ctx, ticket)
			if err != nil {
				logger.WithError(err).WithField("ticket_id", ticket.TicketID).Error("QR generation failed")
				metrics.TicketsProcessed.WithLabelValues("failed").Inc()

				if markErr := o.tickets.MarkFailed(ctx, ticket.TicketID); markErr != nil {
					logger.WithError(markErr).WithField("ticket_id", ticket.TicketID).Error("Failed to mark ticket failed")
				}
				tickets[i].Status = entity.TicketStatusFailed
				return nil
			}

			metrics.TicketsProcessed.WithLabelValues("generated").Inc()
			tickets[i].Status = entity.TicketStatusGenerated
			tickets[i].QRCodeURL.String = url
			tickets[i].QRCodeURL.Valid = true
			return nil
		})
	}

	// Goroutines absorb their own failures, so Wait only synchronizes.
	_ = g.Wait()

	return tickets
}

func (o *Orchestrator) generateOne(ctx context.Context, ticket entity.Ticket) (string, error) {
	image, err := o.qr.Render(ctx, ticket.Token)
	if err != nil {
		return "", fmt.Errorf("could not render QR code: %w", err)
	}

	path := fmt.Sprintf("tickets/%s/%s.png", ticket.OrderID, ticket.Token)
	url, err := o.storage.Upload(ctx, path, image, "image/png")
	if err != nil {
		return "", fmt.Errorf("could not upload QR code: %w", err)
	}

	if err := o.tickets.MarkGenerated(ctx, ticket.TicketID, url); err != nil {
		return "", err
	}

	return url, nil
}

// populateRegistry inserts the denormalized gate-side entry for every
// generated ticket. Best-effort by contract: failures are logged and must
// never change ticket status or abort the run.
func (o *Orchestrator) populateRegistry(ctx context.Context, order entity.Order, generated []entity.Ticket) {
	logger := log.FromContext(ctx).WithField("order_id", order.OrderID)

	passTypes := lo.SliceToMap(order.LineItems, func(item entity.OrderLineItem) (string, string) {
		return item.LineItemID, item.PassType
	})

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(qrConcurrencyLimit)

	for _, ticket := range generated {
		ticket := ticket
		g.Go(func() error {
			entry := entity.RegistryEntry{
				Token:          ticket.Token,
				TicketID:       ticket.TicketID,
				OrderID:        order.OrderID,
				PassType:       passTypes[ticket.LineItemID],
				QRCodeURL:      ticket.QRCodeURL.String,
				CustomerName:   order.CustomerName,
				CustomerEmail:  order.CustomerEmail,
				CustomerPhone:  order.CustomerPhone,
				EventName:      order.EventName,
				EventDate:      order.EventDate,
				EventLocation:  order.EventLocation,
				AmbassadorName: order.AmbassadorName,
			}

			if err := o.registry.Insert(ctx, entry); err != nil {
				logger.WithError(err).WithField("ticket_id", ticket.TicketID).Error("Registry insert failed")
			}
			return nil
		})
	}

	_ = g.Wait()
}

// sendConfirmation composes and sends the single confirmation email, then
// appends exactly one delivery log entry with the outcome.
func (o *Orchestrator) sendConfirmation(ctx context.Context, order entity.Order, tickets []entity.Ticket) (bool, error) {
	logger := log.FromContext(ctx).WithField("order_id", order.OrderID)

	doc, err := email.Compose(order, tickets)
	if err != nil {
		// Composition is pure; a failure here is a bug, but it is still an
		// email failure from the run's point of view.
		o.appendDeliveryLog(ctx, order, "", entity.DeliveryStatusFailed, err)
		return false, err
	}

	sendErr := o.mailer.Send(ctx, order.CustomerEmail, doc.Subject, doc.HTML)
	if sendErr != nil {
		logger.WithError(sendErr).Error("Confirmation email send failed")
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		o.appendDeliveryLog(ctx, order, doc.Subject, entity.DeliveryStatusFailed, sendErr)
		return false, sendErr
	}

	metrics.EmailsSent.WithLabelValues("sent").Inc()
	o.appendDeliveryLog(ctx, order, doc.Subject, entity.DeliveryStatusSent, nil)
	return true, nil
}

func (o *Orchestrator) appendDeliveryLog(ctx context.Context, order entity.Order, subject string, status entity.DeliveryStatus, cause error) {
	entry := entity.DeliveryLogEntry{
		OrderID:   order.OrderID,
		Recipient: order.CustomerEmail,
		Subject:   subject,
		Status:    status,
	}
	if cause != nil {
		entry.ErrorDetail = cause.Error()
	}

	if err := o.deliveryLog.Append(ctx, entry); err != nil {
		log.FromContext(ctx).WithError(err).WithField("order_id", order.OrderID).Error("Failed to append delivery log entry")
	}
}

func applyRunOutcome(tickets []entity.Ticket, emailSent bool) []entity.Ticket {
	now := time.Now().UTC()

	for i := range tickets {
		if tickets[i].Status != entity.TicketStatusGenerated {
			continue
		}
		if emailSent {
			tickets[i].Status = entity.TicketStatusDelivered
			tickets[i].EmailDeliveryStatus.String = string(entity.EmailDeliverySent)
			tickets[i].EmailDeliveryStatus.Valid = true
			tickets[i].DeliveredAt.Time = now
			tickets[i].DeliveredAt.Valid = true
		} else {
			tickets[i].Status = entity.TicketStatusFailed
			tickets[i].EmailDeliveryStatus.String = string(entity.EmailDeliveryFailed)
			tickets[i].EmailDeliveryStatus.Valid = true
		}
	}

	return tickets
}
