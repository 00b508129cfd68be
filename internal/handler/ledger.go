package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/coinjar/internal/ledger"
	"github.com/dukerupert/coinjar/internal/model"
	"github.com/dukerupert/coinjar/internal/store"
	"github.com/dukerupert/coinjar/internal/trigger"
	"github.com/dukerupert/coinjar/internal/websocket"
)

// Firer runs the rollover check and auto-settlement on demand.
type Firer interface {
	Fire(ctx context.Context) (trigger.Result, error)
}

// LedgerHandler serves earnings, arrears and settlements.
type LedgerHandler struct {
	settlements *ledger.SettlementStore
	activities  *store.ActivityStore
	tasks       *store.RewardTaskStore
	children    *store.ChildStore
	trigger     Firer
	hub         *websocket.Hub
	now         Clock
	logger      *slog.Logger
}

func NewLedgerHandler(settlements *ledger.SettlementStore, as *store.ActivityStore, ts *store.RewardTaskStore, cs *store.ChildStore, trig Firer, hub *websocket.Hub, now Clock, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		settlements: settlements,
		activities:  as,
		tasks:       ts,
		children:    cs,
		trigger:     trig,
		hub:         hub,
		now:         now,
		logger:      logger,
	}
}

// child resolves the {id} path value, writing the error response itself.
func (h *LedgerHandler) child(w http.ResponseWriter, r *http.Request) (*model.Child, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	child, err := h.children.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return nil, false
	}
	if child == nil {
		writeError(w, http.StatusNotFound, "child not found")
		return nil, false
	}
	return child, true
}

// Earnings returns the amount earned and current streak for this month.
func (h *LedgerHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	child, ok := h.child(w, r)
	if !ok {
		return
	}
	now := h.now()

	earnings, err := h.monthEarnings(r.Context(), child.ID, now)
	if err != nil {
		h.logger.Error("compute earnings", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute earnings")
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}

func (h *LedgerHandler) monthEarnings(ctx context.Context, childID int64, now time.Time) (model.Earnings, error) {
	var (
		records []model.ActivityRecord
		tasks   []model.RewardTask
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		records, err = h.activities.FindByChildInMonth(gctx, childID, now)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = h.tasks.FindAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Earnings{}, err
	}
	return ledger.Compute(records, tasks, now), nil
}

type arrearsResponse struct {
	Periods          []model.UnpaidPeriod `json:"periods"`
	TotalOutstanding int                  `json:"total_outstanding"`
}

func (h *LedgerHandler) arrears(ctx context.Context, childID int64, now time.Time) (arrearsResponse, error) {
	var (
		records []model.ActivityRecord
		tasks   []model.RewardTask
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		records, err = h.activities.FindByChild(gctx, childID)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = h.tasks.FindAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return arrearsResponse{}, err
	}

	periods := ledger.DetectArrears(childID, records, h.settlements.FindByChild(childID), tasks, now)
	if periods == nil {
		periods = []model.UnpaidPeriod{}
	}
	return arrearsResponse{Periods: periods, TotalOutstanding: ledger.TotalOutstanding(periods)}, nil
}

// Arrears lists closed months that were paid short.
func (h *LedgerHandler) Arrears(w http.ResponseWriter, r *http.Request) {
	child, ok := h.child(w, r)
	if !ok {
		return
	}
	resp, err := h.arrears(r.Context(), child.ID, h.now())
	if err != nil {
		h.logger.Error("detect arrears", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to detect arrears")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type settleArrearsFailure struct {
	Error  string               `json:"error"`
	Paid   []model.Settlement   `json:"paid"`
	Failed []model.UnpaidPeriod `json:"failed"`
}

// SettleArrears pays every outstanding period of a child in full. A period
// that cannot be paid does not stop the others; if any fail the response is
// a 500 listing what was paid and what was not.
func (h *LedgerHandler) SettleArrears(w http.ResponseWriter, r *http.Request) {
	child, ok := h.child(w, r)
	if !ok {
		return
	}
	now := h.now()

	resp, err := h.arrears(r.Context(), child.ID, now)
	if err != nil {
		h.logger.Error("detect arrears", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to detect arrears")
		return
	}

	paid := []model.Settlement{}
	var failed []model.UnpaidPeriod
	for _, p := range resp.Periods {
		_, existed := h.settlements.FindByChildAndMonth(child.ID, p.Month, p.Year)
		st, err := h.settlements.AddPayment(r.Context(), child.ID, p.Month, p.Year, p.Outstanding, nil, now)
		if err != nil {
			h.logger.Error("settle arrears", "child_id", child.ID, "month", p.Month, "year", p.Year, "error", err)
			failed = append(failed, p)
			continue
		}
		h.announce(st, existed)
		paid = append(paid, st)
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusInternalServerError, settleArrearsFailure{
			Error:  "failed to settle some arrears",
			Paid:   paid,
			Failed: failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, paid)
}

func (h *LedgerHandler) announce(st model.Settlement, existed bool) {
	action := "created"
	if existed {
		action = "updated"
	}
	broadcast(h.hub, websocket.SettlementMessage(action, st))
}

// Settlements lists a child's settlements, most recently paid first.
func (h *LedgerHandler) Settlements(w http.ResponseWriter, r *http.Request) {
	child, ok := h.child(w, r)
	if !ok {
		return
	}
	settlements := h.settlements.FindByChild(child.ID)
	if settlements == nil {
		settlements = []model.Settlement{}
	}
	writeJSON(w, http.StatusOK, settlements)
}

type settlementRequest struct {
	ChildID int64   `json:"child_id"`
	Month   int     `json:"month"`
	Year    int     `json:"year"`
	Amount  int     `json:"amount"`
	Note    *string `json:"note"`
}

// CreateSettlement records a manual payment. Paying a month that already
// has a settlement adds to its amount.
func (h *LedgerHandler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Note != nil {
		note := strings.TrimSpace(*req.Note)
		req.Note = &note
		if note == "" {
			req.Note = nil
		}
	}

	child, err := h.children.GetByID(r.Context(), req.ChildID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return
	}
	if child == nil {
		writeError(w, http.StatusBadRequest, "child not found")
		return
	}

	_, existed := h.settlements.FindByChildAndMonth(req.ChildID, req.Month, req.Year)
	st, err := h.settlements.AddPayment(r.Context(), req.ChildID, req.Month, req.Year, req.Amount, req.Note, h.now())
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "amount must be >= 0")
		return
	case errors.Is(err, ledger.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "month must be 1-12 and year at least 1")
		return
	case err != nil:
		h.logger.Error("add payment", "child_id", req.ChildID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settlement")
		return
	}

	h.announce(st, existed)
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, status, st)
}

func (h *LedgerHandler) DeleteSettlement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, ok := h.settlements.FindByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "settlement not found")
		return
	}

	err := h.settlements.Delete(r.Context(), id)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "settlement not found")
		return
	case err != nil:
		h.logger.Error("delete settlement", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete settlement")
		return
	}

	broadcast(h.hub, websocket.SettlementMessage("deleted", existing))
	w.WriteHeader(http.StatusNoContent)
}

// RunAuto runs the scheduler now and returns what it settled.
func (h *LedgerHandler) RunAuto(w http.ResponseWriter, r *http.Request) {
	res, err := h.trigger.Fire(r.Context())
	if err != nil {
		h.logger.Error("auto settlement", "error", err)
		writeError(w, http.StatusInternalServerError, "auto settlement failed")
		return
	}
	settled := res.Settled
	if settled == nil {
		settled = []model.SettlementResult{}
	}
	writeJSON(w, http.StatusOK, settled)
}

// Home is hit whenever the home view refreshes. It acknowledges a month
// rollover and runs the scheduler.
func (h *LedgerHandler) Home(w http.ResponseWriter, r *http.Request) {
	res, err := h.trigger.Fire(r.Context())
	if err != nil {
		h.logger.Error("home refresh", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	if res.Settled == nil {
		res.Settled = []model.SettlementResult{}
	}
	writeJSON(w, http.StatusOK, res)
}

type childSummary struct {
	Child            model.Child    `json:"child"`
	Earnings         model.Earnings `json:"earnings"`
	TotalOutstanding int            `json:"total_outstanding"`
}

// Overview summarizes every child for the dashboard.
func (h *LedgerHandler) Overview(w http.ResponseWriter, r *http.Request) {
	children, err := h.children.FindAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list children")
		return
	}
	now := h.now()

	out := make([]childSummary, len(children))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, c := range children {
		g.Go(func() error {
			earnings, err := h.monthEarnings(ctx, c.ID, now)
			if err != nil {
				return err
			}
			arrears, err := h.arrears(ctx, c.ID, now)
			if err != nil {
				return err
			}
			out[i] = childSummary{Child: c, Earnings: earnings, TotalOutstanding: arrears.TotalOutstanding}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error("overview", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build overview")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
