package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/fulin-pos/panel/internal/database"
)

// SalesStore defines the database methods needed by the sales handler.
type SalesStore interface {
	GetSalesSummary(ctx context.Context, day pgtype.Date) (database.SalesSummaryRow, error)
	ListDishSales(ctx context.Context, day pgtype.Date) ([]database.DishSalesRow, error)
}

// SalesHandler serves the daily sales statistics.
type SalesHandler struct {
	store SalesStore
	now   func() time.Time
}

// NewSalesHandler creates a new SalesHandler. now defaults to
// time.Now when nil.
func NewSalesHandler(store SalesStore, now func() time.Time) *SalesHandler {
	if now == nil {
		now = time.Now
	}
	return &SalesHandler{store: store, now: now}
}

// RegisterRoutes registers the sales endpoint; admin only.
func (h *SalesHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sales", h.Stats)
}

type typeStats struct {
	Count      int64   `json:"count"`
	Sales      float64 `json:"sales"`
	Ratio      float64 `json:"ratio"`
	SalesRatio float64 `json:"sales_ratio"`
}

type dishStats struct {
	Quantity int64   `json:"quantity"`
	Amount   float64 `json:"amount"`
}

type salesResponse struct {
	Date        string               `json:"date"`
	TotalOrders int64                `json:"total_orders"`
	TotalSales  float64              `json:"total_sales"`
	DishStats   map[string]dishStats `json:"dish_stats"`
	Takeout     typeStats            `json:"takeout"`
	DineIn      typeStats            `json:"dinein"`
}

// Stats returns the sales summary for the posted date, defaulting to
// today. A day without orders yields stats: null, which the stats
// page renders as its empty state.
func (h *SalesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	dateStr := r.PostFormValue("date")
	if dateStr == "" {
		dateStr = h.now().Format("2006-01-02")
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的日期")
		return
	}

	pgDay := pgtype.Date{Time: day, Valid: true}
	summary, err := h.store.GetSalesSummary(r.Context(), pgDay)
	if err != nil {
		log.Printf("ERROR: sales summary: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	if summary.TotalOrders == 0 {
		writeSuccess(w, map[string]interface{}{"stats": nil})
		return
	}

	dishRows, err := h.store.ListDishSales(r.Context(), pgDay)
	if err != nil {
		log.Printf("ERROR: dish sales: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"stats": buildSalesResponse(dateStr, summary, dishRows),
	})
}

func buildSalesResponse(dateStr string, s database.SalesSummaryRow, dishes []database.DishSalesRow) salesResponse {
	totalSales := numericDecimal(s.TotalSales)
	takeoutSales := numericDecimal(s.TakeoutSales)
	dineinSales := numericDecimal(s.DineInSales)

	resp := salesResponse{
		Date:        dateStr,
		TotalOrders: s.TotalOrders,
		TotalSales:  round2(totalSales),
		DishStats:   make(map[string]dishStats, len(dishes)),
		Takeout: typeStats{
			Count:      s.TakeoutCount,
			Sales:      round2(takeoutSales),
			Ratio:      ratio(decimal.NewFromInt(s.TakeoutCount), decimal.NewFromInt(s.TotalOrders)),
			SalesRatio: ratio(takeoutSales, totalSales),
		},
		DineIn: typeStats{
			Count:      s.DineInCount,
			Sales:      round2(dineinSales),
			Ratio:      ratio(decimal.NewFromInt(s.DineInCount), decimal.NewFromInt(s.TotalOrders)),
			SalesRatio: ratio(dineinSales, totalSales),
		},
	}
	for _, d := range dishes {
		resp.DishStats[d.DishName] = dishStats{
			Quantity: d.Quantity,
			Amount:   round2(numericDecimal(d.Amount)),
		}
	}
	return resp
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// ratio is part/whole as a percentage rounded to one decimal.
func ratio(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	f, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return f
}
