package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/coinjar/internal/store"
	"github.com/dukerupert/coinjar/internal/websocket"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, hub: hub, logger: logger}
}

func (h *SettingsHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settingsStore.PaymentConfig(r.Context())
	if err != nil {
		h.logger.Error("get payment settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdatePayment replaces the payment settings. Omitted fields keep their
// current values.
func (h *SettingsHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settingsStore.PaymentConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}

	var req struct {
		PaymentDayOfMonth     *int  `json:"payment_day_of_month"`
		AutoSettlementEnabled *bool `json:"auto_settlement_enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PaymentDayOfMonth != nil {
		if d := *req.PaymentDayOfMonth; d < 1 || d > 31 {
			writeError(w, http.StatusBadRequest, "payment_day_of_month must be 1-31")
			return
		}
		cfg.PaymentDayOfMonth = *req.PaymentDayOfMonth
	}
	if req.AutoSettlementEnabled != nil {
		cfg.AutoSettlementEnabled = *req.AutoSettlementEnabled
	}

	saved, err := h.settingsStore.SetPaymentConfig(r.Context(), cfg)
	if err != nil {
		h.logger.Error("save payment settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	broadcast(h.hub, websocket.NewMessage("settings", "updated", saved))
	writeJSON(w, http.StatusOK, saved)
}
