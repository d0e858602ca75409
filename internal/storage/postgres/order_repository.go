package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const opTimeout = 5 * time.Second

// pgUniqueViolation — код ошибки PostgreSQL для нарушения уникальности.
const pgUniqueViolation = "23505"

// OrderRepository хранит заказы в PostgreSQL.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository создает репозиторий заказов поверх открытого Store.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{db: store.DB()}
}

var _ domain.OrderRepository = (*OrderRepository)(nil)

// Create сохраняет новый заказ вместе с позициями в одной транзакции.
func (r *OrderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	shipping := shippingColumns(order.ShippingInfo)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, status, currency, subtotal, tax, total,
			shipping_street, shipping_city, shipping_state, shipping_country, shipping_postal_code,
			tracking_company, tracking_number, estimated_delivery_date,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		order.ID, order.CustomerID, string(order.Status), order.Currency,
		order.Subtotal, order.Tax, order.Total,
		shipping.street, shipping.city, shipping.state, shipping.country, shipping.postalCode,
		shipping.trackingCompany, shipping.trackingNumber, shipping.estimatedDelivery,
		order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}

	if err := insertItems(ctx, tx, order.ID, order.Items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order tx: %w", err)
	}
	return nil
}

// Get возвращает заказ по идентификатору вместе с позициями.
func (r *OrderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, status, currency, subtotal, tax, total,
		       shipping_street, shipping_city, shipping_state, shipping_country, shipping_postal_code,
		       tracking_company, tracking_number, estimated_delivery_date,
		       version, created_at, updated_at
		FROM orders WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("query order %s: %w", id, err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

// ListByCustomer возвращает заказы клиента, отсортированные от новых к старым.
func (r *OrderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, customer_id, status, currency, subtotal, tax, total,
		       shipping_street, shipping_city, shipping_state, shipping_country, shipping_postal_code,
		       tracking_company, tracking_number, estimated_delivery_date,
		       version, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{customerID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// Save обновляет заказ с проверкой версии: UPDATE затрагивает строку только при
// совпадении version, иначе возвращается конфликт или not found.
func (r *OrderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	shipping := shippingColumns(order.ShippingInfo)
	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET
			customer_id = $1, status = $2, currency = $3,
			subtotal = $4, tax = $5, total = $6,
			shipping_street = $7, shipping_city = $8, shipping_state = $9,
			shipping_country = $10, shipping_postal_code = $11,
			tracking_company = $12, tracking_number = $13, estimated_delivery_date = $14,
			version = version + 1, updated_at = $15
		WHERE id = $16 AND version = $17
	`,
		order.CustomerID, string(order.Status), order.Currency,
		order.Subtotal, order.Tax, order.Total,
		shipping.street, shipping.city, shipping.state,
		shipping.country, shipping.postalCode,
		shipping.trackingCompany, shipping.trackingNumber, shipping.estimatedDelivery,
		order.UpdatedAt, order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order %s: %w", order.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated rows for order %s: %w", order.ID, err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order %s existence: %w", order.ID, err)
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	// Позиции неизменяемы после создания, но перезаписываем их для согласованности с агрегатом.
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("delete items of order %s: %w", order.ID, err)
	}
	if err := insertItems(ctx, tx, order.ID, order.Items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save order tx: %w", err)
	}
	return nil
}

// Delete удаляет заказ вместе с позициями (ON DELETE CASCADE).
func (r *OrderRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows for order %s: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, variant_id, qty, price, currency
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query items of order %s: %w", orderID, err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.VariantID, &item.Qty, &item.Price, &item.Currency); err != nil {
			return nil, fmt.Errorf("scan item of order %s: %w", orderID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items of order %s: %w", orderID, err)
	}

	return items, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, orderID string, items []domain.OrderItem) error {
	for i, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, variant_id, qty, price, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, orderID, i, item.ProductID, item.VariantID, item.Qty, item.Price, item.Currency)
		if err != nil {
			return fmt.Errorf("insert item %d of order %s: %w", i, orderID, err)
		}
	}
	return nil
}

type shippingRow struct {
	street            string
	city              string
	state             string
	country           string
	postalCode        string
	trackingCompany   string
	trackingNumber    string
	estimatedDelivery sql.NullTime
}

func shippingColumns(info *domain.ShippingInfo) shippingRow {
	if info == nil {
		return shippingRow{}
	}
	row := shippingRow{
		street:          info.ShippingAddress.Street,
		city:            info.ShippingAddress.City,
		state:           info.ShippingAddress.State,
		country:         info.ShippingAddress.Country,
		postalCode:      info.ShippingAddress.PostalCode,
		trackingCompany: info.TrackingCompany,
		trackingNumber:  info.TrackingNumber,
	}
	if info.EstimatedDeliveryDate != nil {
		row.estimatedDelivery = sql.NullTime{Time: *info.EstimatedDeliveryDate, Valid: true}
	}
	return row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order    domain.Order
		status   string
		shipping shippingRow
	)

	err := row.Scan(
		&order.ID, &order.CustomerID, &status, &order.Currency,
		&order.Subtotal, &order.Tax, &order.Total,
		&shipping.street, &shipping.city, &shipping.state, &shipping.country, &shipping.postalCode,
		&shipping.trackingCompany, &shipping.trackingNumber, &shipping.estimatedDelivery,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()

	info := &domain.ShippingInfo{
		ShippingAddress: domain.Address{
			Street:     shipping.street,
			City:       shipping.city,
			State:      shipping.state,
			Country:    shipping.country,
			PostalCode: shipping.postalCode,
		},
		TrackingCompany: shipping.trackingCompany,
		TrackingNumber:  shipping.trackingNumber,
	}
	if shipping.estimatedDelivery.Valid {
		estimated := shipping.estimatedDelivery.Time.UTC()
		info.EstimatedDeliveryDate = &estimated
	}
	if info.ShippingAddress != (domain.Address{}) || info.TrackingCompany != "" || info.TrackingNumber != "" || info.EstimatedDeliveryDate != nil {
		order.ShippingInfo = info
	}

	return order, nil
}
