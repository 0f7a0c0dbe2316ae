package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"andiamo/entity"
)

type DeliveryLogPostgresRepository struct {
	db *sqlx.DB
}

func NewDeliveryLogPostgresRepository(db *sqlx.DB) *DeliveryLogPostgresRepository {
	if db == nil {
		panic("db is nil")
	}
	return &DeliveryLogPostgresRepository{db: db}
}

// Append records one email-send attempt. The log is append-only; rows are
// never updated or deleted.
func (r *DeliveryLogPostgresRepository) Append(ctx context.Context, entry entity.DeliveryLogEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_log (order_id, recipient, subject, status, error_detail)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.OrderID, entry.Recipient, entry.Subject, entry.Status, entry.ErrorDetail)
	if err != nil {
		return fmt.Errorf("could not append delivery log entry: %w", err)
	}
	return nil
}

func (r *DeliveryLogPostgresRepository) FindByOrderID(ctx context.Context, orderID string) ([]entity.DeliveryLogEntry, error) {
	var entries []entity.DeliveryLogEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, order_id, recipient, subject, status, error_detail, created_at
		FROM delivery_log
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("could not find delivery log entries for order %s: %w", orderID, err)
	}
	return entries, nil
}
