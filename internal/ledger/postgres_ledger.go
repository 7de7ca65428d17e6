package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(ctx context.Context, cred *Credentials) (*PostgresLedger, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.PingContext(ctx); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &PostgresLedger{db: db}, nil
}

func (l *PostgresLedger) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(l.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
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

// RecordSubmission is idempotent: recording the same order id twice keeps the first row.
func (l *PostgresLedger) RecordSubmission(ctx context.Context, order domain.SubmittedOrder) error {
	status := order.Status
	if status == "" {
		status = domain.OrderStatusPending
	}

	query := `INSERT INTO submitted_orders (order_id, checkout_id, user_id, product_id, quantity, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	          ON CONFLICT (order_id) DO NOTHING`

	_, err := l.db.ExecContext(ctx, query,
		order.OrderID,
		order.CheckoutID,
		order.UserID,
		order.ProductID,
		order.Quantity,
		status)
	if err != nil {
		return fmt.Errorf("insert submitted order: %w", err)
	}
	return nil
}

func (l *PostgresLedger) MarkCompleted(ctx context.Context, orderID int64) error {
	query := `UPDATE submitted_orders SET status = $1, updated_at = NOW() WHERE order_id = $2`

	res, err := l.db.ExecContext(ctx, query, domain.OrderStatusCompleted, orderID)
	if err != nil {
		return fmt.Errorf("mark order completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark order completed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrOrderNotRecorded, orderID)
	}
	return nil
}

// ListPending returns orders that were created but never paid for, oldest first.
func (l *PostgresLedger) ListPending(ctx context.Context, userID int64) ([]domain.SubmittedOrder, error) {
	query := `SELECT order_id, checkout_id, user_id, product_id, quantity, status, created_at, updated_at
	          FROM submitted_orders WHERE user_id = $1 AND status = $2
	          ORDER BY created_at, order_id`

	rows, err := l.db.QueryContext(ctx, query, userID, domain.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("query pending orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.SubmittedOrder
	for rows.Next() {
		var o domain.SubmittedOrder
		if err := rows.Scan(
			&o.OrderID,
			&o.CheckoutID,
			&o.UserID,
			&o.ProductID,
			&o.Quantity,
			&o.Status,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pending order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending orders: %w", err)
	}
	return orders, nil
}

func (l *PostgresLedger) Close() error {
	return l.db.Close()
}
