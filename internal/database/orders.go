package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (order_no, order_type, create_time, total_amount,
                    table_num, has_room_fee, takeout_time, takeout_address, phone, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, order_no, order_type, create_time, update_time, total_amount,
          table_num, has_room_fee, takeout_time, takeout_address, phone, status
`

type CreateOrderParams struct {
	OrderNo        string
	OrderType      string
	CreateTime     time.Time
	TotalAmount    pgtype.Numeric
	TableNum       pgtype.Text
	HasRoomFee     bool
	TakeoutTime    pgtype.Text
	TakeoutAddress pgtype.Text
	Phone          string
	Status         string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNo, arg.OrderType, arg.CreateTime, arg.TotalAmount,
		arg.TableNum, arg.HasRoomFee, arg.TakeoutTime, arg.TakeoutAddress,
		arg.Phone, arg.Status)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, dish_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, dish_id, quantity, unit_price
`

type CreateOrderItemParams struct {
	OrderID   int64
	DishID    int64
	Quantity  int32
	UnitPrice pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.DishID, arg.Quantity, arg.UnitPrice)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.UnitPrice)
	return i, err
}

const getOrderByNo = `
SELECT id, order_no, order_type, create_time, update_time, total_amount,
       table_num, has_room_fee, takeout_time, takeout_address, phone, status
FROM orders
WHERE order_no = $1
`

func (q *Queries) GetOrderByNo(ctx context.Context, orderNo string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNo, orderNo))
}

const listOrdersByPhone = `
SELECT id, order_no, order_type, create_time, update_time, total_amount,
       table_num, has_room_fee, takeout_time, takeout_address, phone, status
FROM orders
WHERE phone = $1
ORDER BY create_time DESC
`

func (q *Queries) ListOrdersByPhone(ctx context.Context, phone string) ([]Order, error) {
	return q.listOrders(ctx, listOrdersByPhone, phone)
}

const listOrdersByDate = `
SELECT id, order_no, order_type, create_time, update_time, total_amount,
       table_num, has_room_fee, takeout_time, takeout_address, phone, status
FROM orders
WHERE create_time::date = $1
ORDER BY create_time
`

func (q *Queries) ListOrdersByDate(ctx context.Context, day pgtype.Date) ([]Order, error) {
	return q.listOrders(ctx, listOrdersByDate, day)
}

func (q *Queries) listOrders(ctx context.Context, query string, arg any) ([]Order, error) {
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const deleteOrderByNo = `
DELETE FROM orders
WHERE order_no = $1
RETURNING id
`

func (q *Queries) DeleteOrderByNo(ctx context.Context, orderNo string) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, deleteOrderByNo, orderNo).Scan(&deleted)
	return deleted, err
}

// Per-field update queries. A generic "SET <field> = ..." cannot be
// parameterised, so each whitelisted field gets its own statement and
// UpdateOrderField dispatches on the validated field name.
const (
	updateOrderStatus = `
UPDATE orders SET status = $2, update_time = now() WHERE order_no = $1 RETURNING id`
	updateOrderPhone = `
UPDATE orders SET phone = $2, update_time = now() WHERE order_no = $1 RETURNING id`
	updateOrderTableNum = `
UPDATE orders SET table_num = $2, update_time = now() WHERE order_no = $1 RETURNING id`
	updateOrderTakeoutAddress = `
UPDATE orders SET takeout_address = $2, update_time = now() WHERE order_no = $1 RETURNING id`
	updateOrderTakeoutTime = `
UPDATE orders SET takeout_time = $2, update_time = now() WHERE order_no = $1 RETURNING id`
)

var orderFieldQueries = map[string]string{
	"status":          updateOrderStatus,
	"phone":           updateOrderPhone,
	"table_num":       updateOrderTableNum,
	"takeout_address": updateOrderTakeoutAddress,
	"takeout_time":    updateOrderTakeoutTime,
}

type UpdateOrderFieldParams struct {
	OrderNo string
	Field   string
	Value   string
}

func (q *Queries) UpdateOrderField(ctx context.Context, arg UpdateOrderFieldParams) (int64, error) {
	query, ok := orderFieldQueries[arg.Field]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	var updated int64
	err := q.db.QueryRow(ctx, query, arg.OrderNo, arg.Value).Scan(&updated)
	return updated, err
}

const listOrderItems = `
SELECT oi.dish_id, d.name, oi.quantity, oi.unit_price
FROM order_items oi
JOIN dishes d ON oi.dish_id = d.id
WHERE oi.order_id = $1
ORDER BY oi.id
`

func (q *Queries) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItemDetail, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItemDetail
	for rows.Next() {
		var it OrderItemDetail
		if err := rows.Scan(&it.DishID, &it.DishName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const getOrderItem = `
SELECT id, order_id, dish_id, quantity, unit_price
FROM order_items
WHERE order_id = $1 AND dish_id = $2
`

type GetOrderItemParams struct {
	OrderID int64
	DishID  int64
}

func (q *Queries) GetOrderItem(ctx context.Context, arg GetOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, getOrderItem, arg.OrderID, arg.DishID)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.UnitPrice)
	return i, err
}

const updateOrderItem = `
UPDATE order_items
SET quantity = $3, unit_price = $4
WHERE order_id = $1 AND dish_id = $2
RETURNING id
`

type UpdateOrderItemParams struct {
	OrderID   int64
	DishID    int64
	Quantity  int32
	UnitPrice pgtype.Numeric
}

func (q *Queries) UpdateOrderItem(ctx context.Context, arg UpdateOrderItemParams) (int64, error) {
	var updated int64
	err := q.db.QueryRow(ctx, updateOrderItem, arg.OrderID, arg.DishID, arg.Quantity, arg.UnitPrice).Scan(&updated)
	return updated, err
}

const deleteOrderItem = `
DELETE FROM order_items
WHERE order_id = $1 AND dish_id = $2
RETURNING id
`

type DeleteOrderItemParams struct {
	OrderID int64
	DishID  int64
}

func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) (int64, error) {
	var deleted int64
	err := q.db.QueryRow(ctx, deleteOrderItem, arg.OrderID, arg.DishID).Scan(&deleted)
	return deleted, err
}

const sumOrderItems = `
SELECT COALESCE(SUM(quantity * unit_price), 0)
FROM order_items
WHERE order_id = $1
`

func (q *Queries) SumOrderItems(ctx context.Context, orderID int64) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx, sumOrderItems, orderID).Scan(&total)
	return total, err
}

const updateOrderTotal = `
UPDATE orders
SET total_amount = $2, update_time = now()
WHERE id = $1
`

type UpdateOrderTotalParams struct {
	ID          int64
	TotalAmount pgtype.Numeric
}

func (q *Queries) UpdateOrderTotal(ctx context.Context, arg UpdateOrderTotalParams) error {
	_, err := q.db.Exec(ctx, updateOrderTotal, arg.ID, arg.TotalAmount)
	return err
}

const getSalesSummary = `
SELECT COUNT(*),
       COALESCE(SUM(total_amount), 0),
       COUNT(*) FILTER (WHERE order_type = 'takeout'),
       COUNT(*) FILTER (WHERE order_type = 'dinein'),
       COALESCE(SUM(total_amount) FILTER (WHERE order_type = 'takeout'), 0),
       COALESCE(SUM(total_amount) FILTER (WHERE order_type = 'dinein'), 0)
FROM orders
WHERE create_time::date = $1
`

type SalesSummaryRow struct {
	TotalOrders  int64
	TotalSales   pgtype.Numeric
	TakeoutCount int64
	DineInCount  int64
	TakeoutSales pgtype.Numeric
	DineInSales  pgtype.Numeric
}

func (q *Queries) GetSalesSummary(ctx context.Context, day pgtype.Date) (SalesSummaryRow, error) {
	var s SalesSummaryRow
	err := q.db.QueryRow(ctx, getSalesSummary, day).Scan(
		&s.TotalOrders, &s.TotalSales,
		&s.TakeoutCount, &s.DineInCount,
		&s.TakeoutSales, &s.DineInSales)
	return s, err
}

const listDishSales = `
SELECT d.name, SUM(oi.quantity), SUM(oi.unit_price * oi.quantity)
FROM order_items oi
JOIN dishes d ON oi.dish_id = d.id
JOIN orders o ON oi.order_id = o.id
WHERE o.create_time::date = $1
GROUP BY d.name
ORDER BY SUM(oi.unit_price * oi.quantity) DESC
`

type DishSalesRow struct {
	DishName string
	Quantity int64
	Amount   pgtype.Numeric
}

func (q *Queries) ListDishSales(ctx context.Context, day pgtype.Date) ([]DishSalesRow, error) {
	rows, err := q.db.Query(ctx, listDishSales, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DishSalesRow
	for rows.Next() {
		var r DishSalesRow
		if err := rows.Scan(&r.DishName, &r.Quantity, &r.Amount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNo, &o.OrderType, &o.CreateTime, &o.UpdateTime,
		&o.TotalAmount, &o.TableNum, &o.HasRoomFee, &o.TakeoutTime,
		&o.TakeoutAddress, &o.Phone, &o.Status)
	return o, err
}
