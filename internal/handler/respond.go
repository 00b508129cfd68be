package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/coinjar/internal/websocket"
)

// Clock returns the current time in the household's timezone.
type Clock func() time.Time

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func broadcast(hub *websocket.Hub, msg websocket.Message) {
	if hub != nil {
		hub.Broadcast(msg)
	}
}
