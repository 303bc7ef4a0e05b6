package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/fulin-pos/panel/internal/database"
)

const maxUploadBytes = 16 << 20

// DishStore defines the database methods needed by dish handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DishStore interface {
	ListDishes(ctx context.Context) ([]database.Dish, error)
	GetDishByName(ctx context.Context, name string) (database.Dish, error)
	CreateDish(ctx context.Context, arg database.CreateDishParams) (database.Dish, error)
	UpdateDish(ctx context.Context, arg database.UpdateDishParams) (database.Dish, error)
	DeleteDish(ctx context.Context, id int64) (int64, error)
}

// DishHandler handles the menu CRUD endpoints.
type DishHandler struct {
	store     DishStore
	uploadDir string
}

// NewDishHandler creates a new DishHandler. uploadDir is where dish
// images land; the saved URL path is served under /static/uploads/.
func NewDishHandler(store DishStore, uploadDir string) *DishHandler {
	return &DishHandler{store: store, uploadDir: uploadDir}
}

// RegisterPublicRoutes registers the unauthenticated dish routes.
func (h *DishHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/get_all_dishes", h.List)
}

// RegisterAdminRoutes registers the authenticated dish routes.
func (h *DishHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/dish/add", h.Add)
	r.Post("/dish/update", h.Update)
	r.Post("/dish/delete", h.Delete)
}

type dishResponse struct {
	DishID     int64   `json:"dish_id"`
	Name       string  `json:"name"`
	Price      string  `json:"price"`
	Discount   string  `json:"discount"`
	FinalPrice string  `json:"final_price"`
	ImageURL   *string `json:"image_url"`
}

func toDishResponse(d database.Dish) dishResponse {
	price := numericDecimal(d.Price)
	discount := numericDecimal(d.Discount)
	resp := dishResponse{
		DishID:     d.ID,
		Name:       d.Name,
		Price:      price.StringFixed(2),
		Discount:   discount.String(),
		FinalPrice: price.Mul(discount).Round(2).StringFixed(2),
	}
	if d.ImageUrl.Valid {
		resp.ImageURL = &d.ImageUrl.String
	}
	return resp
}

// List returns every dish on the menu. The ordering and admin pages
// both re-fetch this list after a change instead of reloading.
func (h *DishHandler) List(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.store.ListDishes(r.Context())
	if err != nil {
		log.Printf("ERROR: list dishes: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	resp := make([]dishResponse, len(dishes))
	for i, d := range dishes {
		resp[i] = toDishResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Add creates a dish from a multipart form: name, price, discount and
// an optional dish_image file.
func (h *DishHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := parsePanelForm(r); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	if name == "" {
		writeFailure(w, http.StatusBadRequest, "请输入菜品名称")
		return
	}

	price, err := parsePrice(r.PostFormValue("price"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	discountStr := r.PostFormValue("discount")
	if discountStr == "" {
		discountStr = "1.0"
	}
	discount, err := parseDiscount(discountStr)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	// Check the name before inserting; the unique index still backstops
	// a concurrent add.
	if _, err := h.store.GetDishByName(r.Context(), name); err == nil {
		writeFailure(w, http.StatusConflict, "菜品名称已存在")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: get dish by name: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	imageURL, err := h.saveImage(r, "dish_image")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	dish, err := h.store.CreateDish(r.Context(), database.CreateDishParams{
		Name:     name,
		Price:    price,
		Discount: discount,
		ImageUrl: imageURL,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeFailure(w, http.StatusConflict, "菜品名称已存在")
			return
		}
		log.Printf("ERROR: create dish: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	writeSuccess(w, map[string]interface{}{"dish": toDishResponse(dish)})
}

// Update changes any subset of a dish's fields: new_name, new_price,
// new_discount and an optional new_image file. Absent fields keep
// their stored values.
func (h *DishHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := parsePanelForm(r); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	dishID, err := strconv.ParseInt(r.PostFormValue("dish_id"), 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的菜品ID")
		return
	}

	params := database.UpdateDishParams{ID: dishID}

	if name := strings.TrimSpace(r.PostFormValue("new_name")); name != "" {
		params.Name = pgtype.Text{String: name, Valid: true}
	}
	if s := r.PostFormValue("new_price"); s != "" {
		params.Price, err = parsePrice(s)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if s := r.PostFormValue("new_discount"); s != "" {
		params.Discount, err = parseDiscount(s)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	params.ImageUrl, err = h.saveImage(r, "new_image")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	dish, err := h.store.UpdateDish(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeFailure(w, http.StatusNotFound, "菜品不存在")
			return
		}
		if isUniqueViolation(err) {
			writeFailure(w, http.StatusConflict, "菜品名称已存在")
			return
		}
		log.Printf("ERROR: update dish: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	writeSuccess(w, map[string]interface{}{"dish": toDishResponse(dish)})
}

// Delete removes a dish from the menu.
func (h *DishHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := parsePanelForm(r); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	dishID, err := strconv.ParseInt(r.PostFormValue("dish_id"), 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的菜品ID")
		return
	}

	if _, err := h.store.DeleteDish(r.Context(), dishID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeFailure(w, http.StatusNotFound, "菜品不存在")
			return
		}
		if isForeignKeyViolation(err) {
			writeFailure(w, http.StatusConflict, "菜品已被订单引用，无法删除")
			return
		}
		log.Printf("ERROR: delete dish: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	writeSuccess(w, nil)
}

// --- Helpers ---

// parsePanelForm accepts both urlencoded and multipart bodies; the
// dish forms switch to multipart only when an image is attached.
func parsePanelForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxUploadBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

var (
	errInvalidPrice    = errors.New("价格必须大于0")
	errInvalidDiscount = errors.New("折扣必须在0-1之间")
	errBadImageType    = errors.New("不支持的图片格式")
)

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return pgtype.Numeric{}, errInvalidPrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, errInvalidPrice
	}
	return n, nil
}

func parseDiscount(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1)) {
		return pgtype.Numeric{}, errInvalidDiscount
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, errInvalidDiscount
	}
	return n, nil
}

func allowedImageExt(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}

// saveImage stores an uploaded image under uploadDir with a timestamp
// prefix and returns its public URL path. No file attached is not an
// error; the returned Text is simply invalid (NULL).
func (h *DishHandler) saveImage(r *http.Request, field string) (pgtype.Text, error) {
	if r.MultipartForm == nil {
		return pgtype.Text{}, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return pgtype.Text{}, nil
	}
	if err != nil {
		return pgtype.Text{}, err
	}
	defer file.Close()

	if !allowedImageExt(header.Filename) {
		return pgtype.Text{}, errBadImageType
	}

	name := fmt.Sprintf("%s_%s", time.Now().Format("20060102150405"), filepath.Base(header.Filename))
	if err := h.writeImage(file, name); err != nil {
		return pgtype.Text{}, err
	}
	return pgtype.Text{String: "/static/uploads/" + name, Valid: true}, nil
}

func (h *DishHandler) writeImage(src multipart.File, name string) error {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
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
