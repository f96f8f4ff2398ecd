package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Themagician24/neo-kora/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OutboxEvent is one unpublished row of the outbox table. Events are
// written in the same transaction as the order they describe and published
// by the poller.
type OutboxEvent struct {
	ID          int
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type RepoInterface interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	MarkPaid(ctx context.Context, id, paymentID string) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	Close() error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsDirPath string) error {
	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsDirPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// CreateOrder inserts the order and its order-created outbox event in one
// transaction.
func (r *Repository) CreateOrder(ctx context.Context, o *Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":       o.ID,
		"session_id":     o.SessionID,
		"items":          o.Items,
		"total_price":    o.TotalPrice,
		"payment_method": o.PaymentMethod,
		"created_at":     o.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `INSERT INTO orders (id, session_id, items, shipping_address, payment_method,
	                expected_delivery_date, items_price, shipping_price, tax_price, total_price,
	                status, is_paid, created_at, updated_at)
	               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`
	if _, err = tx.ExecContext(ctx, orderQuery,
		o.ID,
		o.SessionID,
		itemsJSON,
		addressJSON,
		o.PaymentMethod,
		o.ExpectedDeliveryDate,
		o.ItemsPrice,
		o.ShippingPrice,
		o.TaxPrice,
		o.TotalPrice,
		o.Status,
		o.CreatedAt,
		o.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	outboxQuery := `INSERT INTO outbox_events (aggregate_id, event_type, payload, processed, created_at)
	                VALUES (?, 'order.created', ?, 0, ?)`
	if _, err = tx.ExecContext(ctx, outboxQuery, o.ID, payload, o.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id string) (*Order, error) {
	query := `SELECT id, session_id, items, shipping_address, payment_method,
	                 expected_delivery_date, items_price, shipping_price, tax_price, total_price,
	                 status, is_paid, paid_at, payment_id, created_at, updated_at
	          FROM orders WHERE id = ?`

	var (
		o           Order
		itemsJSON   []byte
		addressJSON []byte
		paidAt      sql.NullTime
		paymentID   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.SessionID, &itemsJSON, &addressJSON, &o.PaymentMethod,
		&o.ExpectedDeliveryDate, &o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&o.Status, &o.IsPaid, &paidAt, &paymentID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	var addr domain.ShippingAddress
	if err := json.Unmarshal(addressJSON, &addr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}
	o.ShippingAddress = addr
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	o.PaymentID = paymentID.String

	return &o, nil
}

// MarkPaid flags the order paid and records an order-paid outbox event.
func (r *Repository) MarkPaid(ctx context.Context, id, paymentID string) error {
	now := time.Now()
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":   id,
		"payment_id": paymentID,
		"paid_at":    now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET is_paid = 1, paid_at = ?, payment_id = ?, status = ?, updated_at = ? WHERE id = ?`,
		now, paymentID, StatusPaid, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, processed, created_at)
		 VALUES (?, 'order.paid', ?, 0, ?)`, id, payload, now); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment update: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events WHERE processed = 0 ORDER BY id LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
