package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/coinjar/internal/model"
	"github.com/dukerupert/coinjar/internal/store"
	"github.com/dukerupert/coinjar/internal/websocket"
)

type ActivityHandler struct {
	activities *store.ActivityStore
	children   *store.ChildStore
	tasks      *store.RewardTaskStore
	hub        *websocket.Hub
	now        Clock
	logger     *slog.Logger
}

func NewActivityHandler(as *store.ActivityStore, cs *store.ChildStore, ts *store.RewardTaskStore, hub *websocket.Hub, now Clock, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activities: as, children: cs, tasks: ts, hub: hub, now: now, logger: logger}
}

// Create records a completed chore. completed_at defaults to now.
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildID     int64      `json:"child_id"`
		TaskID      int64      `json:"task_id"`
		CompletedAt *time.Time `json:"completed_at"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
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
	task, err := h.tasks.GetByID(r.Context(), req.TaskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil || !task.Active {
		writeError(w, http.StatusBadRequest, "task not found or inactive")
		return
	}

	completedAt := h.now()
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	record, err := h.activities.Create(r.Context(), child.ID, task.ID, completedAt)
	if err != nil {
		h.logger.Error("create activity", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record activity")
		return
	}

	broadcast(h.hub, websocket.NewMessage("activity", "created", record))
	writeJSON(w, http.StatusCreated, record)
}

// ListByChild returns a child's records, newest first. ?month=YYYY-MM limits
// the list to one calendar month.
func (h *ActivityHandler) ListByChild(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var records []model.ActivityRecord
	if month := r.URL.Query().Get("month"); month != "" {
		at, err := time.ParseInLocation("2006-01", month, h.now().Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		records, err = h.activities.FindByChildInMonth(r.Context(), id, at)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list activity")
			return
		}
	} else {
		records, err = h.activities.FindByChild(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list activity")
			return
		}
	}

	if records == nil {
		records = []model.ActivityRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ListByDay returns every child's records for one calendar day, given as
// ?date=YYYY-MM-DD, or today.
func (h *ActivityHandler) ListByDay(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	day := now
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := time.ParseInLocation("2006-01-02", s, now.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = d
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	records, err := h.activities.FindByDateRange(r.Context(), start, start.AddDate(0, 0, 1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	if records == nil {
		records = []model.ActivityRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Update moves a record to another task or time. Omitted fields keep their
// current value; a new task must exist and be active.
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.activities.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get activity")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "activity not found")
		return
	}

	var req struct {
		TaskID      *int64     `json:"task_id"`
		CompletedAt *time.Time `json:"completed_at"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	taskID := existing.TaskID
	if req.TaskID != nil && *req.TaskID != existing.TaskID {
		task, err := h.tasks.GetByID(r.Context(), *req.TaskID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get task")
			return
		}
		if task == nil || !task.Active {
			writeError(w, http.StatusBadRequest, "task not found or inactive")
			return
		}
		taskID = task.ID
	}
	completedAt := existing.CompletedAt
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	record, err := h.activities.Update(r.Context(), id, taskID, completedAt)
	if err != nil {
		h.logger.Error("update activity", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update activity")
		return
	}

	broadcast(h.hub, websocket.NewMessage("activity", "updated", record))
	writeJSON(w, http.StatusOK, record)
}

func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.activities.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get activity")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "activity not found")
		return
	}

	if err := h.activities.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete activity", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete activity")
		return
	}

	broadcast(h.hub, websocket.NewMessage("activity", "deleted", existing))
	w.WriteHeader(http.StatusNoContent)
}
