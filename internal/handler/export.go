package handler

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
)

// OrderExporter writes a day's orders to a CSV file and returns its
// path. Satisfied by *export.Exporter.
type OrderExporter interface {
	ExportDate(ctx context.Context, day time.Time) (string, error)
}

// ExportHandler serves the admin CSV export.
type ExportHandler struct {
	exporter OrderExporter
	now      func() time.Time
}

// NewExportHandler creates a new ExportHandler. now defaults to
// time.Now when nil.
func NewExportHandler(exporter OrderExporter, now func() time.Time) *ExportHandler {
	if now == nil {
		now = time.Now
	}
	return &ExportHandler{exporter: exporter, now: now}
}

// RegisterRoutes registers the export endpoint; admin only.
func (h *ExportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/export_orders", h.Export)
}

// Export writes the posted date's orders (default today) to a CSV
// file and reports where it landed.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
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

	path, err := h.exporter.ExportDate(r.Context(), day)
	if err != nil {
		log.Printf("ERROR: export orders: %v", err)
		writeFailure(w, http.StatusInternalServerError, "导出失败")
		return
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	writeSuccess(w, map[string]interface{}{
		"message": "订单已成功导出到：" + abs,
		"file":    abs,
	})
}
