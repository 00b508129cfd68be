package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/coinjar/internal/ledger"
	"github.com/dukerupert/coinjar/internal/model"
	"github.com/dukerupert/coinjar/internal/store"
	"github.com/dukerupert/coinjar/internal/websocket"
)

type TaskHandler struct {
	store  *store.RewardTaskStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewTaskHandler(s *store.RewardTaskStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{store: s, hub: hub, logger: logger}
}

type taskRequest struct {
	Name   string `json:"name"`
	Rate   int    `json:"rate"`
	Active *bool  `json:"active"`
}

func (req *taskRequest) normalize() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Rate == 0 {
		req.Rate = model.DefaultRate
	}
	if req.Rate < 0 {
		return "rate must be positive"
	}
	return ""
}

func (req *taskRequest) active() bool {
	return req.Active == nil || *req.Active
}

// List returns the rate table. ?status=active or ?status=inactive filters it.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.FindAll(r.Context())
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	table := ledger.NewRateTable(tasks)
	switch r.URL.Query().Get("status") {
	case "active":
		tasks = table.Active()
	case "inactive":
		tasks = table.Inactive()
	case "":
	default:
		writeError(w, http.StatusBadRequest, "status must be active or inactive")
		return
	}
	if tasks == nil {
		tasks = []model.RewardTask{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.store.Create(r.Context(), req.Name, req.Rate, req.active())
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Update changes a task in place. Rates are looked up at computation time,
// so a new rate reprices every past record of the task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.store.Update(r.Context(), id, req.Name, req.Rate, req.active())
	if err != nil {
		h.logger.Error("update task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	broadcast(h.hub, websocket.NewMessage("task", "updated", task))
	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task. Its records keep counting at the default rate.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	broadcast(h.hub, websocket.NewMessage("task", "deleted", map[string]int64{"id": id}))
	w.WriteHeader(http.StatusNoContent)
}
