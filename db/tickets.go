package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"andiamo/entity"
	"andiamo/pubsub/bus"
	"andiamo/pubsub/outbox"
)

type TicketsPostgresRepository struct {
	db *sqlx.DB
}

func NewTicketsPostgresRepository(db *sqlx.DB) *TicketsPostgresRepository {
	if db == nil {
		panic("db is nil")
	}
	return &TicketsPostgresRepository{db: db}
}

// CreateForOrder inserts the whole ticket batch in one transaction that also
// claims the per-order fulfillment lock. A concurrent run for the same order
// hits the lock's primary key and gets ErrFulfillmentConflict instead of
// racing the existence check. TicketsCreated_v1 is published through the
// outbox in the same transaction.
func (r *TicketsPostgresRepository) CreateForOrder(ctx context.Context, orderID string, tickets []entity.Ticket) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fulfillment_locks (order_id) VALUES ($1)
	`, orderID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return entity.ErrFulfillmentConflict
		}
		return fmt.Errorf("could not claim fulfillment lock: %w", err)
	}

	for _, ticket := range tickets {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO tickets (ticket_id, order_id, line_item_id, token, status, created_at)
			VALUES (:ticket_id, :order_id, :line_item_id, :token, :status, :created_at)
		`, ticket)
		if err != nil {
			return fmt.Errorf("could not insert ticket: %w", err)
		}
	}

	outboxPublisher, err := outbox.NewPublisherForTx(tx.Tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return err
	}

	err = eventBus.Publish(ctx, entity.TicketsCreated_v1{
		Header:  entity.NewEventHeader(),
		OrderID: orderID,
		TicketIDs: lo.Map(tickets, func(t entity.Ticket, _ int) string {
			return t.TicketID
		}),
	})
	if err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}

	return nil
}

func (r *TicketsPostgresRepository) FindByOrderID(ctx context.Context, orderID string) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT ticket_id, order_id, line_item_id, token, qr_code_url,
			status, email_delivery_status, delivered_at, created_at
		FROM tickets
		WHERE order_id = $1
		ORDER BY created_at, ticket_id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("could not find tickets for order %s: %w", orderID, err)
	}
	return tickets, nil
}

// MarkGenerated moves a pending ticket to generated and records the public
// QR code URL.
func (r *TicketsPostgresRepository) MarkGenerated(ctx context.Context, ticketID string, qrCodeURL string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = $1, qr_code_url = $2
		WHERE ticket_id = $3 AND status = $4
	`, entity.TicketStatusGenerated, qrCodeURL, ticketID, entity.TicketStatusPending)
	if err != nil {
		return fmt.Errorf("could not mark ticket %s generated: %w", ticketID, err)
	}

	return requireRowAffected(res, ticketID)
}

// MarkFailed moves a ticket to the terminal failed status. Used for QR
// generation failures; the sibling tickets are untouched.
func (r *TicketsPostgresRepository) MarkFailed(ctx context.Context, ticketID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = $1
		WHERE ticket_id = $2 AND status NOT IN ($3, $4)
	`, entity.TicketStatusFailed, ticketID, entity.TicketStatusDelivered, entity.TicketStatusFailed)
	if err != nil {
		return fmt.Errorf("could not mark ticket %s failed: %w", ticketID, err)
	}
	return nil
}

// MarkRunOutcome fans the email-send outcome out to every generated ticket
// of the run: delivered with a delivery timestamp on success, failed with
// email_delivery_status=failed otherwise.
func (r *TicketsPostgresRepository) MarkRunOutcome(ctx context.Context, ticketIDs []string, emailSent bool) error {
	if len(ticketIDs) == 0 {
		return nil
	}

	status := entity.TicketStatusFailed
	emailStatus := entity.EmailDeliveryFailed
	var deliveredAt sql.NullTime
	if emailSent {
		status = entity.TicketStatusDelivered
		emailStatus = entity.EmailDeliverySent
		deliveredAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	query, args, err := sqlx.In(`
		UPDATE tickets
		SET status = ?, email_delivery_status = ?, delivered_at = ?
		WHERE ticket_id IN (?)
	`, status, emailStatus, deliveredAt, ticketIDs)
	if err != nil {
		return fmt.Errorf("could not build outcome query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("could not mark run outcome: %w", err)
	}
	return nil
}

func requireRowAffected(res sql.Result, ticketID string) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ticket with ID %s not found or not pending", ticketID)
	}
	return nil
}
