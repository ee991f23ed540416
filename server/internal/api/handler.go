package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/nexusboard/nexusboard/server/internal/registry"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads live membership from the connection registry.
type Handler struct {
	reg     *registry.Registry
	started time.Time
	now     func() time.Time
	mux     *http.ServeMux
}

// New creates a Handler wired to reg and registers all routes.
func New(reg *registry.Registry) http.Handler {
	h := &Handler{
		reg:     reg,
		started: time.Now(),
		now:     time.Now,
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/stats", h.stats)
	h.mux.HandleFunc("/api/v1/rooms/", h.room) // subtree, extracts {id}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		StartedAt:     h.started.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rooms, conns := h.reg.Stats()
	jsonResp(w, http.StatusOK, StatsResponse{Rooms: rooms, Connections: conns})
}

// room returns GET /api/v1/rooms/{id}. Rooms exist only while they have
// members, so an empty room is reported as not found.
func (h *Handler) room(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/rooms/")
	if id == "" || strings.Contains(id, "/") {
		jsonErr(w, http.StatusNotFound, "room not found")
		return
	}

	members := h.reg.MembersOf(id)
	if len(members) == 0 {
		jsonErr(w, http.StatusNotFound, "room not found")
		return
	}
	jsonResp(w, http.StatusOK, RoomResponse{RoomID: id, Members: members})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
