package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"andiamo/entity"
)

type OrdersPostgresRepository struct {
	db *sqlx.DB
}

func NewOrdersPostgresRepository(db *sqlx.DB) *OrdersPostgresRepository {
	if db == nil {
		panic("db is nil")
	}
	return &OrdersPostgresRepository{db: db}
}

func (r *OrdersPostgresRepository) Store(ctx context.Context, order entity.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
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

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO orders (
			order_id, customer_name, customer_email, customer_phone,
			total_amount, total_currency, channel, status,
			event_name, event_date, event_location, ambassador_name
		)
		VALUES (
			:order_id, :customer_name, :customer_email, :customer_phone,
			:total_amount, :total_currency, :channel, :status,
			:event_name, :event_date, :event_location, :ambassador_name
		)
		ON CONFLICT (order_id) DO UPDATE SET status = EXCLUDED.status
	`, order)
	if err != nil {
		return fmt.Errorf("could not store order: %w", err)
	}

	for _, item := range order.LineItems {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO order_line_items (line_item_id, order_id, pass_type, quantity, unit_amount)
			VALUES (:line_item_id, :order_id, :pass_type, :quantity, :unit_amount)
			ON CONFLICT DO NOTHING
		`, item)
		if err != nil {
			return fmt.Errorf("could not store line item: %w", err)
		}
	}

	return nil
}

// GetWithLineItems loads the order together with its line items and the
// joined event/ambassador display data used by the email and the registry.
func (r *OrdersPostgresRepository) GetWithLineItems(ctx context.Context, orderID string) (entity.Order, error) {
	var order entity.Order
	err := r.db.GetContext(ctx, &order, `
		SELECT
			order_id, customer_name, customer_email, customer_phone,
			total_amount, total_currency, channel, status,
			event_name, event_date, event_location, ambassador_name
		FROM orders
		WHERE order_id = $1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.ErrOrderNotFound
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("could not get order: %w", err)
	}

	err = r.db.SelectContext(ctx, &order.LineItems, `
		SELECT line_item_id, order_id, pass_type, quantity, unit_amount
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY line_item_id
	`, orderID)
	if err != nil {
		return entity.Order{}, fmt.Errorf("could not get order line items: %w", err)
	}

	return order, nil
}
