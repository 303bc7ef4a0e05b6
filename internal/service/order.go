package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/fulin-pos/panel/internal/database"
	"github.com/fulin-pos/panel/internal/enum"
)

const (
	orderNoPrefix     = "ORD"
	maxOrderNoRetries = 3
	orderTimeLayout   = "2006-01-02 15:04:05"
	orderNoTimeLayout = "20060102150405"
)

// Errors returned by the order service. Handlers map these to the
// panel's Chinese failure reasons.
var (
	ErrInvalidOrderType    = errors.New("无效的订单类型")
	ErrTableNumRequired    = errors.New("请输入餐桌号")
	ErrTakeoutTimeRequired = errors.New("请输入送餐时间")
	ErrTakeoutAddrRequired = errors.New("请输入送餐地址")
	ErrInvalidPhone        = errors.New("请输入有效的11位手机号")
	ErrNoItems             = errors.New("请选择至少一道菜品")
	ErrInvalidQuantity     = errors.New("数量必须大于0")
	ErrDishNotFound        = errors.New("菜品不存在")
	ErrOrderNotFound       = errors.New("订单不存在")
	ErrDuplicateItem       = errors.New("菜品已在订单中")
	ErrItemNotFound        = errors.New("订单中没有该菜品")
	ErrInvalidField        = errors.New("无效的修改字段")
	ErrInvalidStatus       = errors.New("无效的订单状态")
	ErrInvalidSearchType   = errors.New("无效的搜索类型")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetDish(ctx context.Context, id int64) (database.Dish, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderByNo(ctx context.Context, orderNo string) (database.Order, error)
	ListOrdersByPhone(ctx context.Context, phone string) ([]database.Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]database.OrderItemDetail, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (int64, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (int64, error)
	SumOrderItems(ctx context.Context, orderID int64) (pgtype.Numeric, error)
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) error
	UpdateOrderField(ctx context.Context, arg database.UpdateOrderFieldParams) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx), so the
// service can bind store instances to transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Clock yields order timestamps; satisfied by *clock.Clock.
type Clock interface {
	Now() time.Time
}

// CreateOrderRequest is the validated input for submitting an order.
type CreateOrderRequest struct {
	OrderType      string
	Phone          string
	TableNum       string
	HasRoomFee     bool
	TakeoutTime    string
	TakeoutAddress string
	Items          []CreateOrderItemRequest
}

// CreateOrderItemRequest is one (dish, quantity) pair.
type CreateOrderItemRequest struct {
	DishID   int64
	Quantity int32
}

// CreateOrderResult is the stored order plus its rendered summary.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItemDetail
	Info  string
}

// OrderSummary is one search hit: order number, type and the rendered
// human-readable summary text.
type OrderSummary struct {
	OrderNo string `json:"order_no"`
	Type    string `json:"type"`
	Info    string `json:"info"`
}

// OrderService owns order creation, search and editing. store is
// pool-bound for reads and single-statement updates; newStore binds
// fresh stores to transactions for the multi-statement paths.
type OrderService struct {
	pool       TxBeginner
	store      OrderStore
	newStore   NewOrderStore
	clock      Clock
	roomFee    decimal.Decimal
	takeoutFee decimal.Decimal
}

func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, clk Clock, roomFee, takeoutFee decimal.Decimal) *OrderService {
	return &OrderService{
		pool:       pool,
		store:      store,
		newStore:   newStore,
		clock:      clk,
		roomFee:    roomFee,
		takeoutFee: takeoutFee,
	}
}

// ValidPhone reports whether s is an 11-digit phone number.
func ValidPhone(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CreateOrder validates the draft, prices every item, totals the order
// with the type-specific surcharge, and stores everything atomically.
// Retries on order_no unique violations (two orders submitted within
// the same second can draw the same number).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if !enum.ValidOrderType(req.OrderType) {
		return nil, ErrInvalidOrderType
	}
	if !ValidPhone(req.Phone) {
		return nil, ErrInvalidPhone
	}

	switch req.OrderType {
	case enum.OrderTypeDineIn:
		if strings.TrimSpace(req.TableNum) == "" {
			return nil, ErrTableNumRequired
		}
	case enum.OrderTypeTakeout:
		if strings.TrimSpace(req.TakeoutTime) == "" {
			return nil, ErrTakeoutTimeRequired
		}
		if strings.TrimSpace(req.TakeoutAddress) == "" {
			return nil, ErrTakeoutAddrRequired
		}
	}

	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNoRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNoConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func isOrderNoConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_no_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	now := s.clock.Now()

	// Price each item at the dish's current discounted price.
	dishTotal := decimal.Zero
	var items []database.OrderItemDetail
	var itemParams []database.CreateOrderItemParams
	for _, item := range req.Items {
		dish, err := store.GetDish(ctx, item.DishID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrDishNotFound
			}
			return nil, fmt.Errorf("get dish %d: %w", item.DishID, err)
		}
		unitPrice := finalPrice(dish)
		dishTotal = dishTotal.Add(unitPrice.Mul(decimal.NewFromInt32(item.Quantity)))

		items = append(items, database.OrderItemDetail{
			DishID:    dish.ID,
			DishName:  dish.Name,
			Quantity:  item.Quantity,
			UnitPrice: decimalToNumeric(unitPrice),
		})
		itemParams = append(itemParams, database.CreateOrderItemParams{
			DishID:    dish.ID,
			Quantity:  item.Quantity,
			UnitPrice: decimalToNumeric(unitPrice),
		})
	}

	total := dishTotal.Add(s.surcharge(req.OrderType, req.HasRoomFee)).Round(2)

	params := database.CreateOrderParams{
		OrderNo:     s.newOrderNo(now),
		OrderType:   req.OrderType,
		CreateTime:  now,
		TotalAmount: decimalToNumeric(total),
		HasRoomFee:  req.OrderType == enum.OrderTypeDineIn && req.HasRoomFee,
		Phone:       req.Phone,
		Status:      enum.OrderStatusCompleted,
	}
	if req.OrderType == enum.OrderTypeDineIn {
		params.TableNum = pgtype.Text{String: strings.TrimSpace(req.TableNum), Valid: true}
	} else {
		params.TakeoutTime = pgtype.Text{String: strings.TrimSpace(req.TakeoutTime), Valid: true}
		params.TakeoutAddress = pgtype.Text{String: strings.TrimSpace(req.TakeoutAddress), Valid: true}
	}

	order, err := store.CreateOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for _, ip := range itemParams {
		ip.OrderID = order.ID
		if _, err := store.CreateOrderItem(ctx, ip); err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{
		Order: order,
		Items: items,
		Info:  s.RenderOrderInfo(order, items),
	}, nil
}

// newOrderNo builds ORD + seconds timestamp + 3 random digits.
func (s *OrderService) newOrderNo(now time.Time) string {
	return fmt.Sprintf("%s%s%03d", orderNoPrefix, now.Format(orderNoTimeLayout), 100+rand.Intn(900))
}

// surcharge is the fixed fee added on top of the dish total.
func (s *OrderService) surcharge(orderType string, hasRoomFee bool) decimal.Decimal {
	switch {
	case orderType == enum.OrderTypeTakeout:
		return s.takeoutFee
	case orderType == enum.OrderTypeDineIn && hasRoomFee:
		return s.roomFee
	}
	return decimal.Zero
}

// SearchOrders resolves a keyword by order number or phone and renders
// a summary per hit, newest first for phone searches.
// findOrders resolves a search into matching orders. An unmatched
// order number is an empty result, not an error.
func (s *OrderService) findOrders(ctx context.Context, searchType, keyword string) ([]database.Order, error) {
	if !enum.ValidSearchType(searchType) {
		return nil, ErrInvalidSearchType
	}
	if searchType == enum.SearchTypeOrderNo {
		order, err := s.store.GetOrderByNo(ctx, keyword)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("get order: %w", err)
		}
		return []database.Order{order}, nil
	}

	if !ValidPhone(keyword) {
		return nil, ErrInvalidPhone
	}
	orders, err := s.store.ListOrdersByPhone(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("list orders by phone: %w", err)
	}
	return orders, nil
}

func (s *OrderService) SearchOrders(ctx context.Context, searchType, keyword string) ([]OrderSummary, error) {
	store := s.store
	orders, err := s.findOrders(ctx, searchType, keyword)
	if err != nil {
		return nil, err
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		items, err := store.ListOrderItems(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		summaries = append(summaries, OrderSummary{
			OrderNo: o.OrderNo,
			Type:    o.OrderType,
			Info:    s.RenderOrderInfo(o, items),
		})
	}
	return summaries, nil
}

// OrderDetail is the full order view returned by the public query
// endpoint, items included.
type OrderDetail struct {
	OrderNo        string            `json:"order_no"`
	OrderType      string            `json:"order_type"`
	CreateTime     string            `json:"create_time"`
	TotalAmount    string            `json:"total_amount"`
	TableNum       string            `json:"table_num"`
	HasRoomFee     bool              `json:"has_room_fee"`
	TakeoutTime    string            `json:"takeout_time"`
	TakeoutAddress string            `json:"takeout_address"`
	Phone          string            `json:"phone"`
	Status         string            `json:"status"`
	Items          []OrderItemDetail `json:"items"`
}

// OrderItemDetail is one priced line of an order.
type OrderItemDetail struct {
	DishID    int64  `json:"dish_id"`
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// QueryOrders is the detailed variant of SearchOrders used by the
// customer-facing query page, which edits items in place.
func (s *OrderService) QueryOrders(ctx context.Context, searchType, keyword string) ([]OrderDetail, error) {
	orders, err := s.findOrders(ctx, searchType, keyword)
	if err != nil {
		return nil, err
	}

	details := make([]OrderDetail, 0, len(orders))
	for _, o := range orders {
		items, err := s.store.ListOrderItems(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		detail := OrderDetail{
			OrderNo:        o.OrderNo,
			OrderType:      o.OrderType,
			CreateTime:     o.CreateTime.Format(orderTimeLayout),
			TotalAmount:    numericToDecimal(o.TotalAmount).StringFixed(2),
			TableNum:       o.TableNum.String,
			HasRoomFee:     o.HasRoomFee,
			TakeoutTime:    o.TakeoutTime.String,
			TakeoutAddress: o.TakeoutAddress.String,
			Phone:          o.Phone,
			Status:         o.Status,
			Items:          make([]OrderItemDetail, 0, len(items)),
		}
		for _, it := range items {
			detail.Items = append(detail.Items, OrderItemDetail{
				DishID:    it.DishID,
				Name:      it.DishName,
				Quantity:  it.Quantity,
				UnitPrice: numericToDecimal(it.UnitPrice).StringFixed(2),
			})
		}
		details = append(details, detail)
	}
	return details, nil
}

// UpdateOrderField updates one whitelisted order field after
// field-specific validation.
func (s *OrderService) UpdateOrderField(ctx context.Context, orderNo, field, value string) error {
	if !enum.ValidOrderField(field) {
		return ErrInvalidField
	}
	if field == enum.OrderFieldStatus && !enum.ValidOrderStatus(value) {
		return ErrInvalidStatus
	}
	if field == enum.OrderFieldPhone && !ValidPhone(value) {
		return ErrInvalidPhone
	}

	_, err := s.store.UpdateOrderField(ctx, database.UpdateOrderFieldParams{
		OrderNo: orderNo,
		Field:   field,
		Value:   value,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("update order field: %w", err)
	}
	return nil
}

// AddOrderItem appends a dish to an existing order and re-totals it.
// A dish already present on the order is rejected; edit its quantity
// instead.
func (s *OrderService) AddOrderItem(ctx context.Context, orderNo string, dishID int64, quantity int32) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.editItemsTx(ctx, orderNo, func(store OrderStore, order database.Order) error {
		dish, err := store.GetDish(ctx, dishID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrDishNotFound
			}
			return err
		}
		if _, err := store.GetOrderItem(ctx, database.GetOrderItemParams{OrderID: order.ID, DishID: dishID}); err == nil {
			return ErrDuplicateItem
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		_, err = store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			DishID:    dishID,
			Quantity:  quantity,
			UnitPrice: decimalToNumeric(finalPrice(dish)),
		})
		return err
	})
}

// UpdateOrderItemQuantity changes an item's quantity, re-pricing it at
// the dish's current discounted price, and re-totals the order.
func (s *OrderService) UpdateOrderItemQuantity(ctx context.Context, orderNo string, dishID int64, quantity int32) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.editItemsTx(ctx, orderNo, func(store OrderStore, order database.Order) error {
		dish, err := store.GetDish(ctx, dishID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrDishNotFound
			}
			return err
		}
		_, err = store.UpdateOrderItem(ctx, database.UpdateOrderItemParams{
			OrderID:   order.ID,
			DishID:    dishID,
			Quantity:  quantity,
			UnitPrice: decimalToNumeric(finalPrice(dish)),
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return err
	})
}

// RemoveOrderItem deletes an item from an order and re-totals it.
func (s *OrderService) RemoveOrderItem(ctx context.Context, orderNo string, dishID int64) error {
	return s.editItemsTx(ctx, orderNo, func(store OrderStore, order database.Order) error {
		_, err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{OrderID: order.ID, DishID: dishID})
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return err
	})
}

// editItemsTx looks up the order, runs edit, recomputes the total from
// the surviving items plus the order's surcharge, and commits.
func (s *OrderService) editItemsTx(ctx context.Context, orderNo string, edit func(OrderStore, database.Order) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderByNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}

	if err := edit(store, order); err != nil {
		return err
	}

	sum, err := store.SumOrderItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("sum order items: %w", err)
	}
	total := numericToDecimal(sum).Add(s.surcharge(order.OrderType, order.HasRoomFee)).Round(2)
	if err := store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:          order.ID,
		TotalAmount: decimalToNumeric(total),
	}); err != nil {
		return fmt.Errorf("update order total: %w", err)
	}

	return tx.Commit(ctx)
}

// RenderOrderInfo formats the order summary text shown to customers
// and staff. The layout is the panel's long-standing fixed format.
func (s *OrderService) RenderOrderInfo(order database.Order, items []database.OrderItemDetail) string {
	var lines []string
	for _, it := range items {
		amount := numericToDecimal(it.UnitPrice).Mul(decimal.NewFromInt32(it.Quantity))
		lines = append(lines, fmt.Sprintf("%s x %d = %s", it.DishName, it.Quantity, amount.StringFixed(2)))
	}
	itemInfo := "无菜品"
	if len(lines) > 0 {
		itemInfo = strings.Join(lines, "\n  - ")
	}

	var b strings.Builder
	if order.OrderType == enum.OrderTypeDineIn {
		roomFee := decimal.Zero
		hasFee := "否"
		if order.HasRoomFee {
			roomFee = s.roomFee
			hasFee = "是"
		}
		fmt.Fprintf(&b, "===== 到店订单 =====\n")
		fmt.Fprintf(&b, "订单编号：%s\n", order.OrderNo)
		fmt.Fprintf(&b, "下单时间：%s\n", order.CreateTime.Format(orderTimeLayout))
		fmt.Fprintf(&b, "餐桌号：%s\n", order.TableNum.String)
		fmt.Fprintf(&b, "手机号：%s\n", order.Phone)
		fmt.Fprintf(&b, "是否有包厢费：%s\n", hasFee)
		fmt.Fprintf(&b, "包厢费：%s元\n", roomFee.StringFixed(2))
	} else {
		fmt.Fprintf(&b, "===== 外卖订单 =====\n")
		fmt.Fprintf(&b, "订单编号：%s\n", order.OrderNo)
		fmt.Fprintf(&b, "下单时间：%s\n", order.CreateTime.Format(orderTimeLayout))
		fmt.Fprintf(&b, "送餐时间：%s\n", order.TakeoutTime.String)
		fmt.Fprintf(&b, "送餐地址：%s\n", order.TakeoutAddress.String)
		fmt.Fprintf(&b, "手机号：%s\n", order.Phone)
		fmt.Fprintf(&b, "外卖服务费：%s元\n", s.takeoutFee.StringFixed(2))
	}
	fmt.Fprintf(&b, "菜品明细：\n  - %s\n", itemInfo)
	fmt.Fprintf(&b, "订单总金额：%s元\n", numericToDecimal(order.TotalAmount).StringFixed(2))
	fmt.Fprintf(&b, "订单状态：%s\n", order.Status)
	fmt.Fprintf(&b, "===================")
	return b.String()
}

// --- Helpers ---

// finalPrice is the dish's discounted unit price, rounded to 2dp.
func finalPrice(d database.Dish) decimal.Decimal {
	return numericToDecimal(d.Price).Mul(numericToDecimal(d.Discount)).Round(2)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
