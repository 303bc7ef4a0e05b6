package handler_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fulin-pos/panel/internal/database"
	"github.com/fulin-pos/panel/internal/handler"
)

type mockSalesStore struct {
	summary   database.SalesSummaryRow
	dishSales []database.DishSalesRow
	gotDay    pgtype.Date
}

func (m *mockSalesStore) GetSalesSummary(_ context.Context, day pgtype.Date) (database.SalesSummaryRow, error) {
	m.gotDay = day
	return m.summary, nil
}

func (m *mockSalesStore) ListDishSales(_ context.Context, _ pgtype.Date) ([]database.DishSalesRow, error) {
	return m.dishSales, nil
}

func setupSalesRouter(store *mockSalesStore, now func() time.Time) *chi.Mux {
	h := handler.NewSalesHandler(store, now)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestSales_FullDay(t *testing.T) {
	store := &mockSalesStore{
		summary: database.SalesSummaryRow{
			TotalOrders:  4,
			TotalSales:   testNumeric(t, "400.00"),
			TakeoutCount: 1,
			DineInCount:  3,
			TakeoutSales: testNumeric(t, "100.00"),
			DineInSales:  testNumeric(t, "300.00"),
		},
		dishSales: []database.DishSalesRow{
			{DishName: "红烧肉", Quantity: 6, Amount: testNumeric(t, "288.00")},
			{DishName: "白米饭", Quantity: 8, Amount: testNumeric(t, "16.00")},
		},
	}
	router := setupSalesRouter(store, nil)

	rr := postForm(t, router, "/sales", url.Values{"date": {"2026-08-30"}})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["success"] != true {
		t.Fatalf("success: got %v, want true", resp["success"])
	}

	stats := resp["stats"].(map[string]interface{})
	if stats["date"] != "2026-08-30" {
		t.Errorf("date: got %v", stats["date"])
	}
	if stats["total_orders"] != float64(4) || stats["total_sales"] != float64(400) {
		t.Errorf("totals: got %v / %v", stats["total_orders"], stats["total_sales"])
	}

	takeout := stats["takeout"].(map[string]interface{})
	if takeout["count"] != float64(1) || takeout["sales"] != float64(100) {
		t.Errorf("takeout: got %v", takeout)
	}
	if takeout["ratio"] != float64(25) || takeout["sales_ratio"] != float64(25) {
		t.Errorf("takeout ratios: got %v / %v", takeout["ratio"], takeout["sales_ratio"])
	}
	dinein := stats["dinein"].(map[string]interface{})
	if dinein["ratio"] != float64(75) {
		t.Errorf("dinein ratio: got %v", dinein["ratio"])
	}

	dishes := stats["dish_stats"].(map[string]interface{})
	pork := dishes["红烧肉"].(map[string]interface{})
	if pork["quantity"] != float64(6) || pork["amount"] != float64(288) {
		t.Errorf("红烧肉 stats: got %v", pork)
	}
}

func TestSales_RatioRoundsToOneDecimal(t *testing.T) {
	store := &mockSalesStore{
		summary: database.SalesSummaryRow{
			TotalOrders:  3,
			TotalSales:   testNumeric(t, "300.00"),
			TakeoutCount: 1,
			DineInCount:  2,
			TakeoutSales: testNumeric(t, "100.00"),
			DineInSales:  testNumeric(t, "200.00"),
		},
	}
	router := setupSalesRouter(store, nil)

	rr := postForm(t, router, "/sales", url.Values{"date": {"2026-08-30"}})

	resp := decodeResponse(t, rr)
	stats := resp["stats"].(map[string]interface{})
	takeout := stats["takeout"].(map[string]interface{})
	// 1/3 as a percentage, one decimal
	if takeout["ratio"] != float64(33.3) {
		t.Errorf("ratio: got %v, want 33.3", takeout["ratio"])
	}
	dinein := stats["dinein"].(map[string]interface{})
	if dinein["ratio"] != float64(66.7) {
		t.Errorf("ratio: got %v, want 66.7", dinein["ratio"])
	}
}

func TestSales_EmptyDayYieldsNullStats(t *testing.T) {
	store := &mockSalesStore{}
	router := setupSalesRouter(store, nil)

	rr := postForm(t, router, "/sales", url.Values{"date": {"2026-08-30"}})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["success"] != true {
		t.Errorf("success: got %v, want true", resp["success"])
	}
	if stats, present := resp["stats"]; !present || stats != nil {
		t.Errorf("stats: got %v, want null", stats)
	}
}

func TestSales_DefaultsToToday(t *testing.T) {
	store := &mockSalesStore{}
	today := time.Date(2026, 8, 30, 15, 0, 0, 0, time.Local)
	router := setupSalesRouter(store, func() time.Time { return today })

	postForm(t, router, "/sales", nil)

	if got := store.gotDay.Time.Format("2006-01-02"); got != "2026-08-30" {
		t.Errorf("queried day: got %s, want 2026-08-30", got)
	}
}

func TestSales_InvalidDate(t *testing.T) {
	router := setupSalesRouter(&mockSalesStore{}, nil)

	rr := postForm(t, router, "/sales", url.Values{"date": {"not-a-date"}})

	wantFailure(t, rr, http.StatusBadRequest, "无效的日期")
}
