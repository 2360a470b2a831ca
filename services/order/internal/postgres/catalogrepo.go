package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RestaurantRepo struct {
	pool *pgxpool.Pool
}

func NewRestaurantRepo(pool *pgxpool.Pool) *RestaurantRepo {
	return &RestaurantRepo{pool: pool}
}

const restaurantColumns = `id, name, tax_rate_percent::text, currency_symbol, prep_time_minutes, created_at, updated_at`

func (r *RestaurantRepo) Create(ctx context.Context, rest *order.Restaurant) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO restaurants (id, name, tax_rate_percent, currency_symbol, prep_time_minutes, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)`,
		rest.ID, rest.Name, rest.TaxRatePercent.String(), rest.CurrencySymbol, rest.PrepTimeMinutes, rest.CreatedAt, rest.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot create restaurant: %w", err)
	}
	return nil
}

func (r *RestaurantRepo) Get(ctx context.Context, id uuid.UUID) (*order.Restaurant, error) {
	rest, err := scanRestaurant(r.pool.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("restaurant %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get restaurant: %w", err)
	}
	return rest, nil
}

func (r *RestaurantRepo) List(ctx context.Context) ([]*order.Restaurant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+restaurantColumns+` FROM restaurants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("cannot list restaurants: %w", err)
	}
	defer rows.Close()

	var result []*order.Restaurant
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot decode restaurant: %w", err)
		}
		result = append(result, rest)
	}
	return result, rows.Err()
}

func (r *RestaurantRepo) Save(ctx context.Context, rest *order.Restaurant) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE restaurants SET name = $2, tax_rate_percent = $3::numeric, currency_symbol = $4,
			prep_time_minutes = $5, updated_at = $6
		WHERE id = $1`,
		rest.ID, rest.Name, rest.TaxRatePercent.String(), rest.CurrencySymbol, rest.PrepTimeMinutes, rest.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot update restaurant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restaurant %s: %w", rest.ID, order.ErrNotFound)
	}
	return nil
}

func scanRestaurant(row pgx.Row) (*order.Restaurant, error) {
	var (
		rest order.Restaurant
		rate string
	)
	if err := row.Scan(&rest.ID, &rest.Name, &rate, &rest.CurrencySymbol, &rest.PrepTimeMinutes, &rest.CreatedAt, &rest.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if rest.TaxRatePercent, err = parseMoney(rate); err != nil {
		return nil, err
	}
	return &rest, nil
}

type TableRepo struct {
	pool *pgxpool.Pool
}

func NewTableRepo(pool *pgxpool.Pool) *TableRepo {
	return &TableRepo{pool: pool}
}

const tableColumns = `id, restaurant_id, number, capacity, qr_code_ref, status, created_at, updated_at`

func (r *TableRepo) Create(ctx context.Context, t *order.Table) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tables (id, restaurant_id, number, capacity, qr_code_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.RestaurantID, t.Number, t.Capacity, t.QRCodeRef, t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot create table: %w", err)
	}
	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*order.Table, error) {
	var t order.Table
	err := r.pool.QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = $1`, id).
		Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Capacity, &t.QRCodeRef, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("table %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get table: %w", err)
	}
	return &t, nil
}

func (r *TableRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*order.Table, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tableColumns+` FROM tables WHERE restaurant_id = $1 ORDER BY number`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer rows.Close()

	var result []*order.Table
	for rows.Next() {
		var t order.Table
		if err := rows.Scan(&t.ID, &t.RestaurantID, &t.Number, &t.Capacity, &t.QRCodeRef, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("cannot decode table: %w", err)
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

func (r *TableRepo) Save(ctx context.Context, t *order.Table) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tables SET number = $2, capacity = $3, qr_code_ref = $4, status = $5, updated_at = $6
		WHERE id = $1`,
		t.ID, t.Number, t.Capacity, t.QRCodeRef, t.Status, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot update table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("table %s: %w", t.ID, order.ErrNotFound)
	}
	return nil
}

type MenuItemRepo struct {
	pool *pgxpool.Pool
}

func NewMenuItemRepo(pool *pgxpool.Pool) *MenuItemRepo {
	return &MenuItemRepo{pool: pool}
}

const menuItemColumns = `id, restaurant_id, name, description, price::text, image_ref, available, created_at, updated_at`

func (r *MenuItemRepo) Create(ctx context.Context, m *order.MenuItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO menu_items (id, restaurant_id, name, description, price, image_ref, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
		m.ID, m.RestaurantID, m.Name, m.Description, m.Price.String(), m.ImageRef, m.Available, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot create menu item: %w", err)
	}
	return nil
}

func (r *MenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*order.MenuItem, error) {
	m, err := scanMenuItem(r.pool.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("menu item %s: %w", id, order.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get menu item: %w", err)
	}
	return m, nil
}

func (r *MenuItemRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*order.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE restaurant_id = $1 ORDER BY name`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("cannot list menu items: %w", err)
	}
	defer rows.Close()

	var result []*order.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot decode menu item: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func scanMenuItem(row pgx.Row) (*order.MenuItem, error) {
	var (
		m     order.MenuItem
		price string
	)
	if err := row.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Description, &price, &m.ImageRef, &m.Available, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if m.Price, err = parseMoney(price); err != nil {
		return nil, err
	}
	return &m, nil
}
