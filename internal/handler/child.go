package handler

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/dukerupert/coinjar/internal/model"
	"github.com/dukerupert/coinjar/internal/store"
	"github.com/dukerupert/coinjar/internal/websocket"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type ChildHandler struct {
	store  *store.ChildStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewChildHandler(s *store.ChildStore, hub *websocket.Hub, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{store: s, hub: hub, logger: logger}
}

type childRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
	CoinRate    int    `json:"coin_rate"`
}

// normalize trims and defaults req and returns a message if it is invalid.
func (req *childRequest) normalize() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Color == "" {
		req.Color = "#3B82F6"
	}
	if !hexColorRegexp.MatchString(req.Color) {
		return "color must be a hex color (e.g. #FF0000)"
	}
	if req.AvatarEmoji == "" {
		req.AvatarEmoji = "😀"
	}
	if req.CoinRate < 0 {
		return "coin_rate must be >= 0"
	}
	return ""
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	children, err := h.store.FindAll(r.Context())
	if err != nil {
		h.logger.Error("list children", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list children")
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	exists, err := h.store.NameExists(r.Context(), req.Name, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check name")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a child with that name already exists")
		return
	}

	child, err := h.store.Create(r.Context(), req.Name, req.Color, req.AvatarEmoji, req.CoinRate)
	if err != nil {
		h.logger.Error("create child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create child")
		return
	}
	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "child not found")
		return
	}

	var req childRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	exists, err := h.store.NameExists(r.Context(), req.Name, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check name")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a child with that name already exists")
		return
	}

	child, err := h.store.Update(r.Context(), id, req.Name, req.Color, req.AvatarEmoji, req.CoinRate)
	if err != nil {
		h.logger.Error("update child", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update child")
		return
	}
	writeJSON(w, http.StatusOK, child)
}

// Delete removes a child and its activity. Settlements already paid are
// kept in the ledger.
func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "child not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete child", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete child")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
