package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fulin-pos/panel/internal/config"
	"github.com/fulin-pos/panel/internal/database"
	"github.com/fulin-pos/panel/internal/export"
	"github.com/fulin-pos/panel/internal/handler"
	mw "github.com/fulin-pos/panel/internal/middleware"
	"github.com/fulin-pos/panel/internal/service"
	"github.com/fulin-pos/panel/internal/ws"
)

// New creates a Chi router with all application routes wired up. The
// customer-facing ordering routes are public; everything under /admin
// (except login) requires a valid admin token.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, clk service.Clock) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Dish images land in UploadDir and are served back under the
	// same path the stored image URLs point at.
	r.Handle("/static/uploads/*", http.StripPrefix("/static/uploads/",
		http.FileServer(http.Dir(cfg.UploadDir))))

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore, clk, cfg.RoomFee, cfg.TakeoutFee)

	dishHandler := handler.NewDishHandler(queries, cfg.UploadDir)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)

	// Public routes: ordering, querying and in-place order editing.
	dishHandler.RegisterPublicRoutes(r)
	orderHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	r.Route("/admin", func(r chi.Router) {
		// Login and refresh are the only unauthenticated admin routes.
		authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
		authHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			dishHandler.RegisterAdminRoutes(r)
			orderHandler.RegisterAdminRoutes(r)

			exporter := export.New(queries, cfg.ExportDir, cfg.RoomFee)
			handler.NewExportHandler(exporter, clk.Now).RegisterRoutes(r)
			handler.NewSalesHandler(queries, clk.Now).RegisterRoutes(r)
		})
	})

	return r
}
