package export

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/fulin-pos/panel/internal/database"
	"github.com/fulin-pos/panel/internal/enum"
)

type mockStore struct {
	orders []database.Order
	items  map[int64][]database.OrderItemDetail
}

func (m *mockStore) ListOrdersByDate(ctx context.Context, day pgtype.Date) ([]database.Order, error) {
	return m.orders, nil
}

func (m *mockStore) ListOrderItems(ctx context.Context, orderID int64) ([]database.OrderItemDetail, error) {
	return m.items[orderID], nil
}

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func TestExportDate(t *testing.T) {
	store := &mockStore{
		orders: []database.Order{
			{
				ID:          1,
				OrderNo:     "ORD20260830120000123",
				OrderType:   enum.OrderTypeDineIn,
				CreateTime:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.Local),
				TotalAmount: makeNumeric("116.00"),
				TableNum:    pgtype.Text{String: "5", Valid: true},
				HasRoomFee:  true,
				Phone:       "13800138000",
				Status:      enum.OrderStatusCompleted,
			},
			{
				ID:             2,
				OrderNo:        "ORD20260830130000456",
				OrderType:      enum.OrderTypeTakeout,
				CreateTime:     time.Date(2026, 8, 30, 13, 0, 0, 0, time.Local),
				TotalAmount:    makeNumeric("53.00"),
				TakeoutTime:    pgtype.Text{String: "18:30", Valid: true},
				TakeoutAddress: pgtype.Text{String: "人民路1号", Valid: true},
				Phone:          "13900139000",
				Status:         enum.OrderStatusCompleted,
			},
		},
		items: map[int64][]database.OrderItemDetail{
			1: {{DishID: 1, DishName: "红烧肉", Quantity: 2, UnitPrice: makeNumeric("48.00")}},
		},
	}

	roomFee, _ := decimal.NewFromString("20.00")
	e := New(store, t.TempDir(), roomFee)

	path, err := e.ExportDate(context.Background(), time.Date(2026, 8, 30, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export file: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records: got %d, want 3 (header + 2 orders)", len(records))
	}
	if records[0][0] != "订单编号" || records[0][11] != "菜品明细" {
		t.Errorf("unexpected header: %v", records[0])
	}

	dinein := records[1]
	if dinein[0] != "ORD20260830120000123" || dinein[1] != "到店" {
		t.Errorf("dine-in row wrong: %v", dinein)
	}
	if dinein[5] != "是" || dinein[6] != "20.00" {
		t.Errorf("room fee columns wrong: %v", dinein)
	}
	if dinein[11] != "红烧肉 x 2 = 96.00" {
		t.Errorf("items column: got %q", dinein[11])
	}

	takeout := records[2]
	if takeout[1] != "外卖" || takeout[8] != "人民路1号" || takeout[11] != "" {
		t.Errorf("takeout row wrong: %v", takeout)
	}
}

func TestExportDate_EmptyDayStillWritesHeader(t *testing.T) {
	e := New(&mockStore{}, t.TempDir(), decimal.Zero)

	path, err := e.ExportDate(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export file: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records: got %d, want header only", len(records))
	}
}
