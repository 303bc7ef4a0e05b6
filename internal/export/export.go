// Package export writes the day's orders to CSV files, mirroring the
// spreadsheets the back office archives.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/fulin-pos/panel/internal/database"
	"github.com/fulin-pos/panel/internal/enum"
)

const dateLayout = "2006-01-02"

// Store defines the database methods the exporter needs.
type Store interface {
	ListOrdersByDate(ctx context.Context, day pgtype.Date) ([]database.Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]database.OrderItemDetail, error)
}

// Exporter writes per-date order CSV files into dir.
type Exporter struct {
	store   Store
	dir     string
	roomFee decimal.Decimal
}

func New(store Store, dir string, roomFee decimal.Decimal) *Exporter {
	return &Exporter{store: store, dir: dir, roomFee: roomFee}
}

var header = []string{
	"订单编号", "订单类型", "创建时间", "总金额(元)",
	"餐桌号", "是否有包厢费", "包厢费(元)", "送餐时间", "送餐地址",
	"手机号", "订单状态", "菜品明细",
}

// ExportDate writes every order created on day to
// <dir>/<YYYY-MM-DD>_orders.csv and returns the file path. A day with
// no orders still produces a file with just the header row.
func (e *Exporter) ExportDate(ctx context.Context, day time.Time) (string, error) {
	orders, err := e.store.ListOrdersByDate(ctx, pgtype.Date{Time: day, Valid: true})
	if err != nil {
		return "", fmt.Errorf("list orders: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(e.dir, day.Format(dateLayout)+"_orders.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, o := range orders {
		items, err := e.store.ListOrderItems(ctx, o.ID)
		if err != nil {
			return "", fmt.Errorf("list order items: %w", err)
		}
		if err := w.Write(e.record(o, items)); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Exporter) record(o database.Order, items []database.OrderItemDetail) []string {
	orderType := "外卖"
	if o.OrderType == enum.OrderTypeDineIn {
		orderType = "到店"
	}

	hasRoomFee := "否"
	roomFee := "0.00"
	if o.HasRoomFee {
		hasRoomFee = "是"
		roomFee = e.roomFee.StringFixed(2)
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		amount := numericDecimal(it.UnitPrice).Mul(decimal.NewFromInt32(it.Quantity))
		lines = append(lines, fmt.Sprintf("%s x %d = %s", it.DishName, it.Quantity, amount.StringFixed(2)))
	}

	return []string{
		o.OrderNo,
		orderType,
		o.CreateTime.Format("2006-01-02 15:04:05"),
		numericDecimal(o.TotalAmount).StringFixed(2),
		o.TableNum.String,
		hasRoomFee,
		roomFee,
		o.TakeoutTime.String,
		o.TakeoutAddress.String,
		o.Phone,
		o.Status,
		strings.Join(lines, ","),
	}
}

func numericDecimal(n pgtype.Numeric) decimal.Decimal {
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
