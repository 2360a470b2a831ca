package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, order_number, restaurant_id, table_id, customer_name, status, priority,
	special_instructions, estimated_time_minutes, currency, tax_rate_percent::text, subtotal::text,
	tax::text, total_amount::text, version, created_at, updated_at, started_at, ready_at, served_at,
	completed_at`

// Create inserts the order, its lines and the first status log entry in
// one transaction.
func (r *OrderRepo) Create(ctx context.Context, o *order.Order) (err error) {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders
			(id, order_number, restaurant_id, table_id, customer_name, status, priority,
			 special_instructions, estimated_time_minutes, currency, tax_rate_percent, subtotal,
			 tax, total_amount, version, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12::numeric, $13::numeric,
			 $14::numeric, $15, $16, $17)`,
		o.ID, o.OrderNumber, o.RestaurantID, o.TableID, o.CustomerName, o.Status, o.Priority,
		o.SpecialInstructions, o.EstimatedTimeMinutes, o.Currency, o.TaxRatePercent.String(),
		o.Subtotal.String(), o.Tax.String(), o.TotalAmount.String(), o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range o.Items {
		modifiers := item.Modifiers
		if modifiers == nil {
			modifiers = []string{}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, position, menu_item_id, name, quantity, unit_price, modifiers)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`,
			o.ID, i, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice.String(), modifiers,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item %s: %w", item.Name, err)
		}
	}

	if err = logStatus(ctx, tx, o); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get order: %w", err)
	}

	items, err := r.items(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	if its, ok := items[o.ID]; ok {
		o.Items = its
	}
	return o, nil
}

func (r *OrderRepo) List(ctx context.Context, filter order.OrderFilter) ([]*order.Order, error) {
	where, args := orderWhere(filter)
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders`+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	defer rows.Close()

	var (
		result []*order.Order
		ids    []uuid.UUID
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot decode order: %w", err)
		}
		result = append(result, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	if len(ids) == 0 {
		return result, nil
	}

	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range result {
		if its, ok := items[o.ID]; ok {
			o.Items = its
		}
	}
	return result, nil
}

func orderWhere(f order.OrderFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if f.RestaurantID != uuid.Nil {
		args = append(args, f.RestaurantID)
		clauses = append(clauses, fmt.Sprintf("restaurant_id = $%d", len(args)))
	}
	if f.TableID != uuid.Nil {
		args = append(args, f.TableID)
		clauses = append(clauses, fmt.Sprintf("table_id = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		args = append(args, f.Statuses)
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *OrderRepo) items(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]order.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, menu_item_id, name, quantity, unit_price::text, modifiers
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("cannot load order items: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]order.Item, len(ids))
	for rows.Next() {
		var (
			orderID uuid.UUID
			item    order.Item
			price   string
		)
		if err := rows.Scan(&orderID, &item.MenuItemID, &item.Name, &item.Quantity, &price, &item.Modifiers); err != nil {
			return nil, fmt.Errorf("cannot decode order item: %w", err)
		}
		if item.UnitPrice, err = parseMoney(price); err != nil {
			return nil, err
		}
		result[orderID] = append(result[orderID], item)
	}
	return result, rows.Err()
}

// Update is guarded by the stored version and appends to the status log
// when the status changed.
func (r *OrderRepo) Update(ctx context.Context, o *order.Order, expectedVersion int) (err error) {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var previous string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 AND version = $2 FOR UPDATE`, o.ID, expectedVersion).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if qerr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); qerr != nil {
			return fmt.Errorf("cannot update order: %w", qerr)
		}
		if !exists {
			return fmt.Errorf("order %s: %w", o.ID, order.ErrNotFound)
		}
		return fmt.Errorf("order %s at version %d: %w", o.OrderNumber, expectedVersion, order.ErrVersionConflict)
	}
	if err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders SET status = $2, priority = $3, version = $4, updated_at = $5,
			started_at = $6, ready_at = $7, served_at = $8, completed_at = $9
		WHERE id = $1`,
		o.ID, o.Status, o.Priority, o.Version, o.UpdatedAt, o.StartedAt, o.ReadyAt, o.ServedAt, o.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}

	if previous != o.Status {
		if err = logStatus(ctx, tx, o); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("cannot delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, order.ErrNotFound)
	}
	return nil
}

func logStatus(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, version, changed_at)
		VALUES ($1, $2, $3, $4)`, o.ID, o.Status, o.Version, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o                         order.Order
		rate, sub, tax, total string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.RestaurantID, &o.TableID, &o.CustomerName, &o.Status, &o.Priority,
		&o.SpecialInstructions, &o.EstimatedTimeMinutes, &o.Currency, &rate, &sub, &tax, &total,
		&o.Version, &o.CreatedAt, &o.UpdatedAt, &o.StartedAt, &o.ReadyAt, &o.ServedAt, &o.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if o.TaxRatePercent, err = parseMoney(rate); err != nil {
		return nil, err
	}
	if o.Subtotal, err = parseMoney(sub); err != nil {
		return nil, err
	}
	if o.Tax, err = parseMoney(tax); err != nil {
		return nil, err
	}
	if o.TotalAmount, err = parseMoney(total); err != nil {
		return nil, err
	}
	o.Items = []order.Item{}
	return &o, nil
}
