package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fulin-pos/panel/internal/clock"
	"github.com/fulin-pos/panel/internal/config"
	"github.com/fulin-pos/panel/internal/database"
	"github.com/fulin-pos/panel/internal/export"
	"github.com/fulin-pos/panel/internal/router"
	"github.com/fulin-pos/panel/internal/ws"
)

func main() {
	cfg := config.Load()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)
	clk := clock.New(cfg.TimeAPIURL)

	hub := ws.NewHub()
	go hub.Run()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.New(cfg, queries, pool, hub, clk),
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown: %v", err)
	}

	// The back office expects the day's spreadsheet even when the
	// server goes down before closing time.
	exportToday(shutdownCtx, queries, cfg.ExportDir, cfg.RoomFee, clk.Now())
}

func exportToday(ctx context.Context, queries *database.Queries, dir string, roomFee decimal.Decimal, now time.Time) {
	path, err := export.New(queries, dir, roomFee).ExportDate(ctx, now)
	if err != nil {
		log.Printf("ERROR: export today's orders: %v", err)
		return
	}
	log.Printf("Exported today's orders to %s", path)
}
