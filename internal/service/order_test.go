package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/fulin-pos/panel/internal/database"
	"github.com/fulin-pos/panel/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner and counts Begin calls.
type mockTxBeginner struct {
	tx     *mockTx
	err    error
	begins int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	m.begins++
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getDishFn         func(ctx context.Context, id int64) (database.Dish, error)
	createOrderFn     func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	getOrderByNoFn    func(ctx context.Context, orderNo string) (database.Order, error)
	listByPhoneFn     func(ctx context.Context, phone string) ([]database.Order, error)
	listOrderItemsFn  func(ctx context.Context, orderID int64) ([]database.OrderItemDetail, error)
	getOrderItemFn    func(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	updateOrderItemFn func(ctx context.Context, arg database.UpdateOrderItemParams) (int64, error)
	deleteOrderItemFn func(ctx context.Context, arg database.DeleteOrderItemParams) (int64, error)
	sumOrderItemsFn   func(ctx context.Context, orderID int64) (pgtype.Numeric, error)
	updateTotalFn     func(ctx context.Context, arg database.UpdateOrderTotalParams) error
	updateFieldFn     func(ctx context.Context, arg database.UpdateOrderFieldParams) (int64, error)
}

func (m *mockOrderStore) GetDish(ctx context.Context, id int64) (database.Dish, error) {
	return m.getDishFn(ctx, id)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderByNo(ctx context.Context, orderNo string) (database.Order, error) {
	return m.getOrderByNoFn(ctx, orderNo)
}
func (m *mockOrderStore) ListOrdersByPhone(ctx context.Context, phone string) ([]database.Order, error) {
	return m.listByPhoneFn(ctx, phone)
}
func (m *mockOrderStore) ListOrderItems(ctx context.Context, orderID int64) ([]database.OrderItemDetail, error) {
	return m.listOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
	return m.getOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (int64, error) {
	return m.updateOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (int64, error) {
	return m.deleteOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) SumOrderItems(ctx context.Context, orderID int64) (pgtype.Numeric, error) {
	return m.sumOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) error {
	return m.updateTotalFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderField(ctx context.Context, arg database.UpdateOrderFieldParams) (int64, error) {
	return m.updateFieldFn(ctx, arg)
}

// --- Test helpers ---

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func newTestService(store *mockOrderStore) (*OrderService, *mockTxBeginner) {
	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(db database.DBTX) OrderStore { return store }
	clk := fixedClock{t: time.Date(2026, 8, 30, 12, 30, 0, 0, time.Local)}
	roomFee, _ := decimal.NewFromString("20.00")
	takeoutFee, _ := decimal.NewFromString("5.00")
	return NewOrderService(pool, store, newStore, clk, roomFee, takeoutFee), pool
}

// defaultStore returns a mockOrderStore with sensible defaults for a
// basic dine-in order. Individual tests override what they care about.
func defaultStore(dishID int64) *mockOrderStore {
	return &mockOrderStore{
		getDishFn: func(ctx context.Context, id int64) (database.Dish, error) {
			if id != dishID {
				return database.Dish{}, pgx.ErrNoRows
			}
			return database.Dish{
				ID:       dishID,
				Name:     "红烧肉",
				Price:    makeNumeric("48.00"),
				Discount: makeNumeric("1.00"),
			}, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:             1,
				OrderNo:        arg.OrderNo,
				OrderType:      arg.OrderType,
				CreateTime:     arg.CreateTime,
				TotalAmount:    arg.TotalAmount,
				TableNum:       arg.TableNum,
				HasRoomFee:     arg.HasRoomFee,
				TakeoutTime:    arg.TakeoutTime,
				TakeoutAddress: arg.TakeoutAddress,
				Phone:          arg.Phone,
				Status:         arg.Status,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:        1,
				OrderID:   arg.OrderID,
				DishID:    arg.DishID,
				Quantity:  arg.Quantity,
				UnitPrice: arg.UnitPrice,
			}, nil
		},
	}
}

func dineInRequest(dishID int64) CreateOrderRequest {
	return CreateOrderRequest{
		OrderType: enum.OrderTypeDineIn,
		Phone:     "13800138000",
		TableNum:  "5",
		Items:     []CreateOrderItemRequest{{DishID: dishID, Quantity: 2}},
	}
}

// --- CreateOrder validation ---

func TestCreateOrder_InvalidPhone(t *testing.T) {
	svc, pool := newTestService(defaultStore(1))

	req := dineInRequest(1)
	req.Phone = "12345"

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("error: got %v, want ErrInvalidPhone", err)
	}
	if pool.begins != 0 {
		t.Errorf("expected no transaction, got %d begins", pool.begins)
	}
}

func TestCreateOrder_PhoneWithLetters(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	req := dineInRequest(1)
	req.Phone = "1380013800a"

	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("error: got %v, want ErrInvalidPhone", err)
	}
}

func TestCreateOrder_InvalidOrderType(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	req := dineInRequest(1)
	req.OrderType = "delivery"

	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrInvalidOrderType) {
		t.Fatalf("error: got %v, want ErrInvalidOrderType", err)
	}
}

func TestCreateOrder_MissingTableNum(t *testing.T) {
	svc, pool := newTestService(defaultStore(1))

	req := dineInRequest(1)
	req.TableNum = "   "

	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrTableNumRequired) {
		t.Fatalf("error: got %v, want ErrTableNumRequired", err)
	}
	if pool.begins != 0 {
		t.Errorf("expected no transaction, got %d begins", pool.begins)
	}
}

func TestCreateOrder_MissingTakeoutFields(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	req := CreateOrderRequest{
		OrderType: enum.OrderTypeTakeout,
		Phone:     "13800138000",
		Items:     []CreateOrderItemRequest{{DishID: 1, Quantity: 1}},
	}
	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrTakeoutTimeRequired) {
		t.Fatalf("error: got %v, want ErrTakeoutTimeRequired", err)
	}

	req.TakeoutTime = "18:30"
	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrTakeoutAddrRequired) {
		t.Fatalf("error: got %v, want ErrTakeoutAddrRequired", err)
	}
}

func TestCreateOrder_NoItems(t *testing.T) {
	svc, pool := newTestService(defaultStore(1))

	req := dineInRequest(1)
	req.Items = nil

	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrNoItems) {
		t.Fatalf("error: got %v, want ErrNoItems", err)
	}
	if pool.begins != 0 {
		t.Errorf("expected no transaction, got %d begins", pool.begins)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	req := dineInRequest(1)
	req.Items = []CreateOrderItemRequest{{DishID: 1, Quantity: 0}}

	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("error: got %v, want ErrInvalidQuantity", err)
	}
}

func TestCreateOrder_DishNotFound(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	req := dineInRequest(99)

	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrDishNotFound) {
		t.Fatalf("error: got %v, want ErrDishNotFound", err)
	}
}

// --- CreateOrder pricing ---

func TestCreateOrder_DineInTotalWithRoomFee(t *testing.T) {
	store := defaultStore(1)
	svc, pool := newTestService(store)

	req := dineInRequest(1)
	req.HasRoomFee = true

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	// 48.00 * 2 + 20.00 room fee
	if !numericEquals(result.Order.TotalAmount, "116.00") {
		t.Errorf("total: got %v, want 116.00", numericToDecimal(result.Order.TotalAmount))
	}
	if !pool.tx.committed {
		t.Error("expected transaction to be committed")
	}
}

func TestCreateOrder_TakeoutTotalIncludesFee(t *testing.T) {
	store := defaultStore(1)
	svc, _ := newTestService(store)

	req := CreateOrderRequest{
		OrderType:      enum.OrderTypeTakeout,
		Phone:          "13800138000",
		TakeoutTime:    "18:30",
		TakeoutAddress: "人民路1号",
		Items:          []CreateOrderItemRequest{{DishID: 1, Quantity: 1}},
	}

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	// 48.00 + 5.00 takeout fee
	if !numericEquals(result.Order.TotalAmount, "53.00") {
		t.Errorf("total: got %v, want 53.00", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestCreateOrder_DiscountedUnitPrice(t *testing.T) {
	store := defaultStore(1)
	store.getDishFn = func(ctx context.Context, id int64) (database.Dish, error) {
		return database.Dish{ID: 1, Name: "糖醋鱼", Price: makeNumeric("50.00"), Discount: makeNumeric("0.80")}, nil
	}
	var itemPrice pgtype.Numeric
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		itemPrice = arg.UnitPrice
		return database.OrderItem{ID: 1}, nil
	}
	svc, _ := newTestService(store)

	result, err := svc.CreateOrder(context.Background(), dineInRequest(1))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !numericEquals(itemPrice, "40.00") {
		t.Errorf("unit price: got %v, want 40.00", numericToDecimal(itemPrice))
	}
	// 40.00 * 2, no room fee
	if !numericEquals(result.Order.TotalAmount, "80.00") {
		t.Errorf("total: got %v, want 80.00", numericToDecimal(result.Order.TotalAmount))
	}
}

func TestCreateOrder_OrderNumberShape(t *testing.T) {
	store := defaultStore(1)
	svc, _ := newTestService(store)

	result, err := svc.CreateOrder(context.Background(), dineInRequest(1))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	no := result.Order.OrderNo
	if !strings.HasPrefix(no, "ORD20260830123000") {
		t.Errorf("order no %q should start with ORD + timestamp", no)
	}
	if len(no) != len("ORD")+14+3 {
		t.Errorf("order no %q has wrong length %d", no, len(no))
	}
}

func TestCreateOrder_RetryOnUniqueViolation(t *testing.T) {
	store := defaultStore(1)
	conflicts := 1
	orig := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		if conflicts > 0 {
			conflicts--
			return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_no_key"}
		}
		return orig(ctx, arg)
	}
	svc, pool := newTestService(store)

	if _, err := svc.CreateOrder(context.Background(), dineInRequest(1)); err != nil {
		t.Fatalf("create order after retry: %v", err)
	}
	if pool.begins != 2 {
		t.Errorf("begins: got %d, want 2", pool.begins)
	}
}

func TestCreateOrder_RetryExhausted(t *testing.T) {
	store := defaultStore(1)
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_no_key"}
	}
	svc, pool := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), dineInRequest(1))
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if pool.begins != maxOrderNoRetries {
		t.Errorf("begins: got %d, want %d", pool.begins, maxOrderNoRetries)
	}
}

func TestCreateOrder_OtherErrorNotRetried(t *testing.T) {
	store := defaultStore(1)
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, errors.New("connection lost")
	}
	svc, pool := newTestService(store)

	if _, err := svc.CreateOrder(context.Background(), dineInRequest(1)); err == nil {
		t.Fatal("expected error")
	}
	if pool.begins != 1 {
		t.Errorf("begins: got %d, want 1", pool.begins)
	}
}

// --- Order info rendering ---

func TestRenderOrderInfo_DineIn(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	order := database.Order{
		OrderNo:     "ORD20260830123000123",
		OrderType:   enum.OrderTypeDineIn,
		CreateTime:  time.Date(2026, 8, 30, 12, 30, 0, 0, time.Local),
		TotalAmount: makeNumeric("116.00"),
		TableNum:    pgtype.Text{String: "5", Valid: true},
		HasRoomFee:  true,
		Phone:       "13800138000",
		Status:      enum.OrderStatusCompleted,
	}
	items := []database.OrderItemDetail{
		{DishID: 1, DishName: "红烧肉", Quantity: 2, UnitPrice: makeNumeric("48.00")},
	}

	info := svc.RenderOrderInfo(order, items)

	for _, want := range []string{
		"===== 到店订单 =====",
		"订单编号：ORD20260830123000123",
		"下单时间：2026-08-30 12:30:00",
		"餐桌号：5",
		"是否有包厢费：是",
		"包厢费：20.00元",
		"红烧肉 x 2 = 96.00",
		"订单总金额：116.00元",
		"订单状态：completed",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("info missing %q:\n%s", want, info)
		}
	}
}

func TestRenderOrderInfo_Takeout(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	order := database.Order{
		OrderNo:        "ORD20260830123000456",
		OrderType:      enum.OrderTypeTakeout,
		CreateTime:     time.Date(2026, 8, 30, 18, 0, 0, 0, time.Local),
		TotalAmount:    makeNumeric("53.00"),
		TakeoutTime:    pgtype.Text{String: "18:30", Valid: true},
		TakeoutAddress: pgtype.Text{String: "人民路1号", Valid: true},
		Phone:          "13800138000",
		Status:         enum.OrderStatusCompleted,
	}

	info := svc.RenderOrderInfo(order, nil)

	for _, want := range []string{
		"===== 外卖订单 =====",
		"送餐时间：18:30",
		"送餐地址：人民路1号",
		"外卖服务费：5.00元",
		"无菜品",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("info missing %q:\n%s", want, info)
		}
	}
}

// --- SearchOrders ---

func TestSearchOrders_ByOrderNoNotFound(t *testing.T) {
	store := defaultStore(1)
	store.getOrderByNoFn = func(ctx context.Context, orderNo string) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)

	got, err := svc.SearchOrders(context.Background(), enum.SearchTypeOrderNo, "ORD123")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no hits, got %d", len(got))
	}
}

func TestSearchOrders_ByPhone(t *testing.T) {
	store := defaultStore(1)
	store.listByPhoneFn = func(ctx context.Context, phone string) ([]database.Order, error) {
		return []database.Order{
			{ID: 2, OrderNo: "ORDB", OrderType: enum.OrderTypeDineIn, TableNum: pgtype.Text{String: "3", Valid: true}, Phone: phone, Status: enum.OrderStatusCompleted, TotalAmount: makeNumeric("10.00")},
			{ID: 1, OrderNo: "ORDA", OrderType: enum.OrderTypeTakeout, Phone: phone, Status: enum.OrderStatusCompleted, TotalAmount: makeNumeric("20.00")},
		}, nil
	}
	store.listOrderItemsFn = func(ctx context.Context, orderID int64) ([]database.OrderItemDetail, error) {
		return nil, nil
	}
	svc, _ := newTestService(store)

	got, err := svc.SearchOrders(context.Background(), enum.SearchTypePhone, "13800138000")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("hits: got %d, want 2", len(got))
	}
	if got[0].OrderNo != "ORDB" || got[1].OrderNo != "ORDA" {
		t.Errorf("hit order wrong: %q, %q", got[0].OrderNo, got[1].OrderNo)
	}
}

func TestSearchOrders_InvalidPhoneKeyword(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	if _, err := svc.SearchOrders(context.Background(), enum.SearchTypePhone, "123"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("error: got %v, want ErrInvalidPhone", err)
	}
}

func TestSearchOrders_InvalidType(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	if _, err := svc.SearchOrders(context.Background(), "email", "x"); !errors.Is(err, ErrInvalidSearchType) {
		t.Fatalf("error: got %v, want ErrInvalidSearchType", err)
	}
}

// --- UpdateOrderField ---

func TestUpdateOrderField_Whitelist(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	if err := svc.UpdateOrderField(context.Background(), "ORD1", "total_amount", "0"); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("error: got %v, want ErrInvalidField", err)
	}
}

func TestUpdateOrderField_StatusValidated(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	if err := svc.UpdateOrderField(context.Background(), "ORD1", "status", "shipped"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("error: got %v, want ErrInvalidStatus", err)
	}
}

func TestUpdateOrderField_PhoneValidated(t *testing.T) {
	svc, _ := newTestService(defaultStore(1))

	if err := svc.UpdateOrderField(context.Background(), "ORD1", "phone", "abc"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("error: got %v, want ErrInvalidPhone", err)
	}
}

func TestUpdateOrderField_OrderNotFound(t *testing.T) {
	store := defaultStore(1)
	store.updateFieldFn = func(ctx context.Context, arg database.UpdateOrderFieldParams) (int64, error) {
		return 0, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)

	if err := svc.UpdateOrderField(context.Background(), "ORD1", "status", "pending"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("error: got %v, want ErrOrderNotFound", err)
	}
}

// --- Item editing ---

func itemEditStore() *mockOrderStore {
	store := defaultStore(1)
	store.getOrderByNoFn = func(ctx context.Context, orderNo string) (database.Order, error) {
		if orderNo != "ORD1" {
			return database.Order{}, pgx.ErrNoRows
		}
		return database.Order{ID: 7, OrderNo: "ORD1", OrderType: enum.OrderTypeDineIn, HasRoomFee: true}, nil
	}
	store.sumOrderItemsFn = func(ctx context.Context, orderID int64) (pgtype.Numeric, error) {
		return makeNumeric("96.00"), nil
	}
	store.updateTotalFn = func(ctx context.Context, arg database.UpdateOrderTotalParams) error {
		return nil
	}
	store.getOrderItemFn = func(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	store.updateOrderItemFn = func(ctx context.Context, arg database.UpdateOrderItemParams) (int64, error) {
		return 1, nil
	}
	store.deleteOrderItemFn = func(ctx context.Context, arg database.DeleteOrderItemParams) (int64, error) {
		return 1, nil
	}
	return store
}

func TestAddOrderItem_RecalculatesTotal(t *testing.T) {
	store := itemEditStore()
	var newTotal pgtype.Numeric
	store.updateTotalFn = func(ctx context.Context, arg database.UpdateOrderTotalParams) error {
		newTotal = arg.TotalAmount
		return nil
	}
	svc, _ := newTestService(store)

	if err := svc.AddOrderItem(context.Background(), "ORD1", 1, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	// 96.00 item sum + 20.00 room fee
	if !numericEquals(newTotal, "116.00") {
		t.Errorf("total: got %v, want 116.00", numericToDecimal(newTotal))
	}
}

func TestAddOrderItem_DuplicateRejected(t *testing.T) {
	store := itemEditStore()
	store.getOrderItemFn = func(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
		return database.OrderItem{ID: 1}, nil
	}
	svc, _ := newTestService(store)

	if err := svc.AddOrderItem(context.Background(), "ORD1", 1, 2); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("error: got %v, want ErrDuplicateItem", err)
	}
}

func TestAddOrderItem_OrderNotFound(t *testing.T) {
	svc, _ := newTestService(itemEditStore())

	if err := svc.AddOrderItem(context.Background(), "ORD404", 1, 2); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("error: got %v, want ErrOrderNotFound", err)
	}
}

func TestUpdateOrderItemQuantity_ZeroRejected(t *testing.T) {
	svc, pool := newTestService(itemEditStore())

	if err := svc.UpdateOrderItemQuantity(context.Background(), "ORD1", 1, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("error: got %v, want ErrInvalidQuantity", err)
	}
	if pool.begins != 0 {
		t.Errorf("expected no transaction, got %d begins", pool.begins)
	}
}

func TestUpdateOrderItemQuantity_ItemNotFound(t *testing.T) {
	store := itemEditStore()
	store.updateOrderItemFn = func(ctx context.Context, arg database.UpdateOrderItemParams) (int64, error) {
		return 0, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)

	if err := svc.UpdateOrderItemQuantity(context.Background(), "ORD1", 1, 3); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("error: got %v, want ErrItemNotFound", err)
	}
}

func TestRemoveOrderItem_RecalculatesTotal(t *testing.T) {
	store := itemEditStore()
	var newTotal pgtype.Numeric
	store.sumOrderItemsFn = func(ctx context.Context, orderID int64) (pgtype.Numeric, error) {
		return makeNumeric("0"), nil
	}
	store.updateTotalFn = func(ctx context.Context, arg database.UpdateOrderTotalParams) error {
		newTotal = arg.TotalAmount
		return nil
	}
	svc, _ := newTestService(store)

	if err := svc.RemoveOrderItem(context.Background(), "ORD1", 1); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	// empty order still carries its room fee
	if !numericEquals(newTotal, "20.00") {
		t.Errorf("total: got %v, want 20.00", numericToDecimal(newTotal))
	}
}

// --- ValidPhone ---

func TestValidPhone(t *testing.T) {
	cases := []struct {
		phone string
		want  bool
	}{
		{"13800138000", true},
		{"1380013800", false},
		{"138001380001", false},
		{"1380013800a", false},
		{"", false},
	}
	for _, c := range cases {
		if got := ValidPhone(c.phone); got != c.want {
			t.Errorf("ValidPhone(%q): got %v, want %v", c.phone, got, c.want)
		}
	}
}
