package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

func InitializeDatabaseSchema(db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS orders (
			order_id VARCHAR(36) PRIMARY KEY,
			customer_name VARCHAR(255) NOT NULL,
			customer_email VARCHAR(255) NOT NULL DEFAULT '',
			customer_phone VARCHAR(64) NOT NULL DEFAULT '',
			total_amount VARCHAR(32) NOT NULL,
			total_currency VARCHAR(8) NOT NULL,
			channel VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			event_name VARCHAR(255) NOT NULL DEFAULT '',
			event_date VARCHAR(64) NOT NULL DEFAULT '',
			event_location VARCHAR(255) NOT NULL DEFAULT '',
			ambassador_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS order_line_items (
			line_item_id VARCHAR(36) PRIMARY KEY,
			order_id VARCHAR(36) NOT NULL REFERENCES orders (order_id),
			pass_type VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			unit_amount VARCHAR(32) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id VARCHAR(36) PRIMARY KEY,
			order_id VARCHAR(36) NOT NULL,
			line_item_id VARCHAR(36) NOT NULL,
			token VARCHAR(64) NOT NULL UNIQUE,
			qr_code_url VARCHAR(1024),
			status VARCHAR(16) NOT NULL,
			email_delivery_status VARCHAR(16),
			delivered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS tickets_order_id_idx ON tickets (order_id);

		CREATE TABLE IF NOT EXISTS fulfillment_locks (
			order_id VARCHAR(36) PRIMARY KEY,
			locked_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS delivery_log (
			id SERIAL PRIMARY KEY,
			order_id VARCHAR(36) NOT NULL,
			recipient VARCHAR(255) NOT NULL,
			subject VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL,
			error_detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS delivery_log_order_id_idx ON delivery_log (order_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}

	return nil
}
