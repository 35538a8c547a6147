package main // Entry point for the tracker daemon

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/openkiosk/container-tracker/internal/bus"
	"github.com/openkiosk/container-tracker/internal/config"
	"github.com/openkiosk/container-tracker/internal/console"
	"github.com/openkiosk/container-tracker/internal/database"
	"github.com/openkiosk/container-tracker/internal/handler"
	"github.com/openkiosk/container-tracker/internal/middleware"
	"github.com/openkiosk/container-tracker/internal/orchestrator"
	"github.com/openkiosk/container-tracker/internal/repository"
	"github.com/openkiosk/container-tracker/internal/router"
	"github.com/openkiosk/container-tracker/internal/view"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	// Ledger store
	var (
		db  *sql.DB
		err error
	)
	switch cfg.DBDriver {
	case "mysql":
		db, err = database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	default:
		db, err = database.OpenSQLite(cfg.DBPath)
	}
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := database.InitSchema(db, cfg.DBDriver); err != nil {
		log.Fatalf("init schema: %v", err)
	}
	repo := repository.NewLedgerRepo(db)

	// Message bus. An unreachable broker is fatal: running disconnected would
	// silently strand every remote front end.
	b, err := bus.Connect(cfg.BrokerURL, cfg.Exchange)
	if err != nil {
		log.Fatalf("connect to broker: %v", err)
	}
	defer func() { _ = b.Close() }()

	orch := orchestrator.New(repo, b, cfg.ResetDelay)
	if err := b.Subscribe(orch.HandleMessage); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	// Dashboard
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Print("redis unavailable, response cache and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = view.NewRenderer()
	e.Use(middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewResponseCache(config.LoadCacheConfig(), rdb))

	authEnabled := cfg.DashboardPasswordHash != ""
	guard := middleware.RequireSession(cfg.JWTSecret, authEnabled)
	var auth *handler.AuthHandler
	if authEnabled {
		auth = handler.NewAuthHandler(cfg.DashboardPasswordHash, cfg.JWTSecret, cfg.SessionTTLMin)
	}
	router.Register(e, handler.NewDashboardHandler(repo), auth, guard)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Operator console on stdin, same process as the orchestrator. Exiting
	// the menu shuts the whole daemon down.
	if cfg.ConsoleEnabled {
		go func() {
			console.New(orch, repo, os.Stdin, os.Stdout).Run(ctx)
			stop()
		}()
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s, exchange=%s)", addr, cfg.Env, cfg.DBDriver, cfg.Exchange)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := b.Close(); err != nil {
		log.Printf("bus close: %v", err)
	}
}
