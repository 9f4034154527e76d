package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/schoolshop/internal/model"
)

// OrderFilter ограничивает выборку заказов. Нулевые поля не применяются.
type OrderFilter struct {
	Status model.OrderStatus
	Limit  int
}

const orderColumns = `id, customer_name, phone, wilaya_code, wilaya_name, commune, address,
	subtotal, shipping_fee, grand_total, status, delivery_type, created_at`

// CreateOrder сохраняет заказ с позициями и обновляет складские счётчики товаров
// в одной транзакции. Остаток списывается только целиком, иначе транзакция
// откатывается с ErrInsufficientStock. Возвращает сохранённую запись с полями, назначенными БД.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, wrap("begin tx", err)
	}
	defer tx.Rollback(ctx)

	stored := *o
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, customer_name, phone, wilaya_code, wilaya_name, commune, address,
			subtotal, shipping_fee, grand_total, status, delivery_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, now()))
		 RETURNING id, created_at`,
		o.ID, o.CustomerName, o.Phone, o.WilayaCode, o.WilayaName, o.Commune, o.Address,
		o.Subtotal, o.ShippingFee, o.GrandTotal, string(o.Status), string(o.DeliveryType), nullTime(o),
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, wrap("insert order", err)
	}

	for i, it := range o.Items {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, position, product_id, product_name, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			stored.ID, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice,
		)
		if err != nil {
			return nil, wrap("insert order item", err)
		}

		if it.ProductID == nil {
			continue
		}
		tag, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, sales = sales + $2 WHERE id = $1 AND stock >= $2`,
			*it.ProductID, it.Quantity,
		)
		if err != nil {
			return nil, wrap("update product counters", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("%w: product %d", ErrInsufficientStock, *it.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrap("commit tx", err)
	}

	stored.Items = append([]model.OrderItem(nil), o.Items...)
	return &stored, nil
}

// ListOrders возвращает заказы, начиная с самых новых.
func (r *PostgresRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("select orders", err)
	}
	defer rows.Close()

	var (
		orders []model.Order
		ids    []uuid.UUID
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrap("scan order", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows error", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsByOrder(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

// GetOrder возвращает заказ с позициями.
func (r *PostgresRepository) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, wrap("get order", err)
	}

	items, err := r.itemsByOrder(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]

	return o, nil
}

// UpdateOrderStatus меняет статус заказа, если переход разрешён.
// Строка заказа блокируется, чтобы параллельные смены статуса не обошли проверку.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, wrap("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var from string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&from)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, wrap("lock order", err)
	}

	if err := model.CheckTransition(model.OrderStatus(from), to); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(to)); err != nil {
		return nil, wrap("update order status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrap("commit tx", err)
	}

	return r.GetOrder(ctx, id)
}

func (r *PostgresRepository) itemsByOrder(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, product_name, quantity, unit_price
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		ids,
	)
	if err != nil {
		return nil, wrap("select order items", err)
	}
	defer rows.Close()

	res := make(map[uuid.UUID][]model.OrderItem, len(ids))
	for rows.Next() {
		var (
			orderID uuid.UUID
			it      model.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, wrap("scan order item", err)
		}
		res[orderID] = append(res[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("rows error", err)
	}

	return res, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o            model.Order
		status       string
		deliveryType string
	)
	err := row.Scan(&o.ID, &o.CustomerName, &o.Phone, &o.WilayaCode, &o.WilayaName, &o.Commune, &o.Address,
		&o.Subtotal, &o.ShippingFee, &o.GrandTotal, &status, &deliveryType, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	o.DeliveryType = model.DeliveryType(deliveryType)
	return &o, nil
}

func nullTime(o *model.Order) any {
	if o.CreatedAt.IsZero() {
		return nil
	}
	return o.CreatedAt
}
