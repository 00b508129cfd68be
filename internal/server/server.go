package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/coinjar/internal/blob"
	"github.com/dukerupert/coinjar/internal/config"
	"github.com/dukerupert/coinjar/internal/handler"
	"github.com/dukerupert/coinjar/internal/ledger"
	"github.com/dukerupert/coinjar/internal/middleware"
	"github.com/dukerupert/coinjar/internal/store"
	"github.com/dukerupert/coinjar/internal/trigger"
	ws "github.com/dukerupert/coinjar/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	childH      *handler.ChildHandler
	taskH       *handler.TaskHandler
	activityH   *handler.ActivityHandler
	ledgerH     *handler.LedgerHandler
	settingsH   *handler.SettingsHandler
	settlements *ledger.SettlementStore
	trigger     *trigger.Trigger
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New wires the stores, the ledger engine and the HTTP handlers. The
// settlement snapshot is loaded before New returns.
func New(ctx context.Context, db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	blobs, err := snapshotBackend(db, cfg)
	if err != nil {
		return nil, err
	}

	loc := cfg.Location()
	clock := func() time.Time { return time.Now().In(loc) }

	hub := ws.NewHub(logger.With("component", "websocket"))

	childStore := store.NewChildStore(db)
	taskStore := store.NewRewardTaskStore(db)
	activityStore := store.NewActivityStore(db)
	settingsStore := store.NewSettingsStore(db)

	settlements := ledger.NewSettlementStore(ctx, blobs, ledger.SnapshotKey, logger.With("component", "settlements"))
	scheduler := ledger.NewScheduler(settlements, activityStore, taskStore, childStore, settingsStore, logger.With("component", "scheduler"))
	rollover := ledger.NewRolloverTracker(settingsStore, logger.With("component", "rollover"))
	trig := trigger.New(rollover, scheduler, hub, clock, cfg.TriggerInterval, logger.With("component", "trigger"))

	return &Server{
		db:          db,
		hub:         hub,
		childH:      handler.NewChildHandler(childStore, hub, logger.With("component", "child")),
		taskH:       handler.NewTaskHandler(taskStore, hub, logger.With("component", "task")),
		activityH:   handler.NewActivityHandler(activityStore, childStore, taskStore, hub, clock, logger.With("component", "activity")),
		ledgerH:     handler.NewLedgerHandler(settlements, activityStore, taskStore, childStore, trig, hub, clock, logger.With("component", "ledger")),
		settingsH:   handler.NewSettingsHandler(settingsStore, hub, logger.With("component", "settings")),
		settlements: settlements,
		trigger:     trig,
		rateLimiter: middleware.NewRateLimiter(10, time.Minute),
		logger:      logger,
	}, nil
}

// snapshotBackend picks where the settlement snapshot lives and wraps it in
// encryption when a passphrase is configured.
func snapshotBackend(db *sql.DB, cfg *config.Config) (blob.Store, error) {
	var (
		backend blob.Store
		err     error
	)
	switch cfg.SnapshotBackend {
	case config.BackendFile:
		backend, err = blob.NewFileStore(cfg.SnapshotDir)
	case config.BackendS3:
		backend, err = blob.NewS3Store(cfg.S3)
	default:
		backend = store.NewBlobStore(db)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s snapshot backend: %w", cfg.SnapshotBackend, err)
	}

	if cfg.SnapshotPassphrase == "" {
		return backend, nil
	}
	enc, err := blob.NewEncrypted(backend, cfg.SnapshotPassphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypt snapshot backend: %w", err)
	}
	return enc, nil
}

// Trigger returns the rollover and auto-settlement trigger.
func (s *Server) Trigger() *trigger.Trigger {
	return s.trigger
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.HandleFunc("POST /api/children", s.childH.Create)
	mux.HandleFunc("PUT /api/children/{id}", s.childH.Update)
	mux.HandleFunc("DELETE /api/children/{id}", s.childH.Delete)

	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	mux.HandleFunc("POST /api/activities", s.activityH.Create)
	mux.HandleFunc("GET /api/activities", s.activityH.ListByDay)
	mux.HandleFunc("PUT /api/activities/{id}", s.activityH.Update)
	mux.HandleFunc("DELETE /api/activities/{id}", s.activityH.Delete)
	mux.HandleFunc("GET /api/children/{id}/activities", s.activityH.ListByChild)

	mux.HandleFunc("GET /api/children/{id}/earnings", s.ledgerH.Earnings)
	mux.HandleFunc("GET /api/children/{id}/arrears", s.ledgerH.Arrears)
	mux.HandleFunc("POST /api/children/{id}/arrears/settle", s.rateLimiter.Limit(s.ledgerH.SettleArrears))
	mux.HandleFunc("GET /api/children/{id}/settlements", s.ledgerH.Settlements)
	mux.HandleFunc("POST /api/settlements", s.rateLimiter.Limit(s.ledgerH.CreateSettlement))
	mux.HandleFunc("DELETE /api/settlements/{id}", s.ledgerH.DeleteSettlement)
	mux.HandleFunc("POST /api/settlements/auto", s.rateLimiter.Limit(s.ledgerH.RunAuto))
	mux.HandleFunc("GET /api/home", s.ledgerH.Home)
	mux.HandleFunc("GET /api/overview", s.ledgerH.Overview)

	mux.HandleFunc("GET /api/settings/payment", s.settingsH.GetPayment)
	mux.HandleFunc("PUT /api/settings/payment", s.settingsH.UpdatePayment)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, nil, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":      "ok",
		"settlements": len(s.settlements.FindAll()),
		"clients":     s.hub.ClientCount(),
	}
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status["status"] = "degraded"
		status["error"] = "database unreachable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
