package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	mw "github.com/fulin-pos/panel/internal/middleware"
	"github.com/fulin-pos/panel/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	SearchOrders(ctx context.Context, searchType, keyword string) ([]service.OrderSummary, error)
	QueryOrders(ctx context.Context, searchType, keyword string) ([]service.OrderDetail, error)
	UpdateOrderField(ctx context.Context, orderNo, field, value string) error
	AddOrderItem(ctx context.Context, orderNo string, dishID int64, quantity int32) error
	UpdateOrderItemQuantity(ctx context.Context, orderNo string, dishID int64, quantity int32) error
	RemoveOrderItem(ctx context.Context, orderNo string, dishID int64) error
}

// OrderDeleter is the single store method the admin delete needs.
type OrderDeleter interface {
	DeleteOrderByNo(ctx context.Context, orderNo string) (int64, error)
}

// OrderNotifier pushes a created order to the live admin feed.
type OrderNotifier interface {
	NotifyOrderCreated(summary service.OrderSummary)
}

// OrderHandler handles order submission, querying and editing.
type OrderHandler struct {
	svc      OrderServicer
	store    OrderDeleter
	notifier OrderNotifier
}

// NewOrderHandler creates a new OrderHandler. notifier may be nil.
func NewOrderHandler(svc OrderServicer, store OrderDeleter, notifier OrderNotifier) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterPublicRoutes registers the customer-facing order routes.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/submit_order", h.Submit)
	r.Post("/query_order", h.Query)
	r.Post("/update_order", h.UpdateField)
	r.Post("/order/add_item", h.AddItem)
	r.Post("/order/update_item", h.UpdateItem)
	r.Post("/order/delete_item", h.DeleteItem)
}

// RegisterAdminRoutes registers the authenticated order routes.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/order/search", h.AdminSearch)
	r.Post("/order/delete", h.AdminDelete)
	r.Post("/order/update", h.AdminUpdate)
}

// Submit creates an order from the ordering page's form: order_type,
// phone, the type-specific fields and repeated dish_id/quantity pairs.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	req := service.CreateOrderRequest{
		OrderType:      r.PostFormValue("order_type"),
		Phone:          strings.TrimSpace(r.PostFormValue("phone")),
		TableNum:       r.PostFormValue("table_num"),
		HasRoomFee:     r.PostFormValue("has_room_fee") == "1",
		TakeoutTime:    r.PostFormValue("takeout_time"),
		TakeoutAddress: r.PostFormValue("takeout_address"),
		Items:          parseItems(r),
	}

	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeOrderError(w, "create order", err)
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyOrderCreated(service.OrderSummary{
			OrderNo: result.Order.OrderNo,
			Type:    result.Order.OrderType,
			Info:    result.Info,
		})
	}

	writeSuccess(w, map[string]interface{}{
		"order_no":   result.Order.OrderNo,
		"order_info": result.Info,
	})
}

// parseItems zips the repeated dish_id/quantity fields. Rows that do
// not parse or carry a non-positive quantity are unchecked menu rows
// and get skipped, not rejected.
func parseItems(r *http.Request) []service.CreateOrderItemRequest {
	ids := r.PostForm["dish_id[]"]
	quantities := r.PostForm["quantity[]"]
	if len(ids) == 0 {
		ids = r.PostForm["dish_id"]
		quantities = r.PostForm["quantity"]
	}

	var items []service.CreateOrderItemRequest
	for i, idStr := range ids {
		if i >= len(quantities) {
			break
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(quantities[i])
		if err != nil || qty <= 0 {
			continue
		}
		items = append(items, service.CreateOrderItemRequest{DishID: id, Quantity: int32(qty)})
	}
	return items
}

// Query returns matching orders with full detail so the customer page
// can render and edit them in place.
func (h *OrderHandler) Query(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	keyword := strings.TrimSpace(r.PostFormValue("keyword"))
	if keyword == "" {
		writeFailure(w, http.StatusBadRequest, "请输入查询关键词")
		return
	}

	orders, err := h.svc.QueryOrders(r.Context(), r.PostFormValue("search_type"), keyword)
	if err != nil {
		h.writeOrderError(w, "query orders", err)
		return
	}

	// An empty result is not a success to the query page: it keys the
	// no-results rendering off the flag.
	if len(orders) == 0 {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"orders":  []service.OrderDetail{},
			"error":   "未找到相关订单",
		})
		return
	}

	writeSuccess(w, map[string]interface{}{"orders": orders})
}

// UpdateField is the customer-facing order field update.
func (h *OrderHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	orderNo := strings.TrimSpace(r.PostFormValue("order_no"))
	field := strings.TrimSpace(r.PostFormValue("field"))
	value := strings.TrimSpace(r.PostFormValue("new_value"))
	if orderNo == "" || field == "" || value == "" {
		writeFailure(w, http.StatusBadRequest, "参数不完整")
		return
	}

	if err := h.svc.UpdateOrderField(r.Context(), orderNo, field, value); err != nil {
		h.writeOrderError(w, "update order", err)
		return
	}
	writeSuccess(w, map[string]interface{}{"message": "订单修改成功"})
}

// AddItem appends a dish to an existing order.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderNo, dishID, qty, ok := parseItemForm(w, r, true)
	if !ok {
		return
	}
	if err := h.svc.AddOrderItem(r.Context(), orderNo, dishID, qty); err != nil {
		h.writeOrderError(w, "add order item", err)
		return
	}
	writeSuccess(w, map[string]interface{}{"message": "菜品添加成功"})
}

// UpdateItem changes the quantity of an order's dish.
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	orderNo, dishID, qty, ok := parseItemForm(w, r, true)
	if !ok {
		return
	}
	if err := h.svc.UpdateOrderItemQuantity(r.Context(), orderNo, dishID, qty); err != nil {
		h.writeOrderError(w, "update order item", err)
		return
	}
	writeSuccess(w, map[string]interface{}{"message": "菜品数量修改成功"})
}

// DeleteItem removes a dish from an order.
func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	orderNo, dishID, _, ok := parseItemForm(w, r, false)
	if !ok {
		return
	}
	if err := h.svc.RemoveOrderItem(r.Context(), orderNo, dishID); err != nil {
		h.writeOrderError(w, "delete order item", err)
		return
	}
	writeSuccess(w, map[string]interface{}{"message": "菜品删除成功"})
}

// parseItemForm reads the shared order_no/dish_id/quantity form. It
// writes the failure response itself when the form is malformed.
func parseItemForm(w http.ResponseWriter, r *http.Request, needQty bool) (orderNo string, dishID int64, qty int32, ok bool) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	orderNo = strings.TrimSpace(r.PostFormValue("order_no"))
	if orderNo == "" {
		writeFailure(w, http.StatusBadRequest, "参数格式错误")
		return
	}
	id, err := strconv.ParseInt(r.PostFormValue("dish_id"), 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "参数格式错误")
		return
	}
	dishID = id

	if needQty {
		q, err := strconv.Atoi(r.PostFormValue("quantity"))
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "参数格式错误")
			return
		}
		qty = int32(q)
	}
	return orderNo, dishID, qty, true
}

// AdminSearch returns per-order summaries for the admin panel. An
// empty hit list is still a success; the panel renders its own
// no-results text.
func (h *OrderHandler) AdminSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	keyword := strings.TrimSpace(r.PostFormValue("keyword"))
	if keyword == "" {
		writeFailure(w, http.StatusBadRequest, "请输入搜索关键词")
		return
	}

	orders, err := h.svc.SearchOrders(r.Context(), r.PostFormValue("search_type"), keyword)
	if err != nil {
		h.writeOrderError(w, "search orders", err)
		return
	}
	if orders == nil {
		orders = []service.OrderSummary{}
	}
	writeSuccess(w, map[string]interface{}{"orders": orders})
}

// AdminDelete removes an order and its items.
func (h *OrderHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	orderNo := strings.TrimSpace(r.PostFormValue("order_no"))
	if orderNo == "" {
		writeFailure(w, http.StatusBadRequest, "请输入订单编号")
		return
	}

	deleted, err := h.store.DeleteOrderByNo(r.Context(), orderNo)
	if err != nil {
		log.Printf("ERROR: delete order: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}
	if deleted == 0 {
		writeFailure(w, http.StatusNotFound, "订单不存在")
		return
	}

	if claims := mw.ClaimsFromContext(r.Context()); claims != nil {
		log.Printf("admin %s deleted order %s", claims.Username, orderNo)
	}
	writeSuccess(w, nil)
}

// AdminUpdate is the admin order field update; the panel posts the
// field name as update_type.
func (h *OrderHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	orderNo := strings.TrimSpace(r.PostFormValue("order_no"))
	field := strings.TrimSpace(r.PostFormValue("update_type"))
	value := strings.TrimSpace(r.PostFormValue("new_value"))
	if orderNo == "" || field == "" || value == "" {
		writeFailure(w, http.StatusBadRequest, "参数不完整")
		return
	}

	if err := h.svc.UpdateOrderField(r.Context(), orderNo, field, value); err != nil {
		h.writeOrderError(w, "admin update order", err)
		return
	}
	writeSuccess(w, nil)
}

// writeOrderError maps service errors to a status and the error's own
// user-facing message; anything unrecognized is logged and masked.
func (h *OrderHandler) writeOrderError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrDishNotFound),
		errors.Is(err, service.ErrItemNotFound):
		writeFailure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateItem):
		writeFailure(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidOrderType),
		errors.Is(err, service.ErrTableNumRequired),
		errors.Is(err, service.ErrTakeoutTimeRequired),
		errors.Is(err, service.ErrTakeoutAddrRequired),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrNoItems),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidField),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidSearchType):
		writeFailure(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
	}
}
