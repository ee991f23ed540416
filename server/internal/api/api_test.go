package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexusboard/nexusboard/server/internal/api"
	"github.com/nexusboard/nexusboard/server/internal/registry"
)

// --- test helpers -----------------------------------------------------------

type conn string

func (c conn) ID() string          { return string(c) }
func (c conn) Send(_ []byte) error { return nil }

// newRegistry registers one connection per id and joins it to room.
func newRegistry(t *testing.T, room string, ids ...string) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, id := range ids {
		if err := reg.Register(conn(id)); err != nil {
			t.Fatalf("Register(%q): %v", id, err)
		}
		if room != "" {
			if _, err := reg.Join(id, room); err != nil {
				t.Fatalf("Join(%q): %v", id, err)
			}
		}
	}
	return reg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth(t *testing.T) {
	h := api.New(registry.New())
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want ok", resp.Status)
	}
	if resp.StartedAt == "" {
		t.Error("started_at: missing")
	}
}

// --- /api/v1/stats ----------------------------------------------------------

func TestStats_Empty(t *testing.T) {
	rr := get(t, api.New(registry.New()), "/api/v1/stats")
	var resp api.StatsResponse
	decode(t, rr, &resp)
	if resp.Rooms != 0 || resp.Connections != 0 {
		t.Errorf("got %+v, want zeros", resp)
	}
}

func TestStats_CountsRoomsAndConnections(t *testing.T) {
	reg := newRegistry(t, "alpha", "c1", "c2")
	if err := reg.Register(conn("idle")); err != nil {
		t.Fatal(err)
	}
	rr := get(t, api.New(reg), "/api/v1/stats")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.StatsResponse
	decode(t, rr, &resp)
	if resp.Rooms != 1 {
		t.Errorf("rooms: got %d, want 1", resp.Rooms)
	}
	if resp.Connections != 3 {
		t.Errorf("connections: got %d, want 3", resp.Connections)
	}
}

// --- /api/v1/rooms/{id} -----------------------------------------------------

func TestRoom_Found(t *testing.T) {
	h := api.New(newRegistry(t, "alpha", "c2", "c1"))
	rr := get(t, h, "/api/v1/rooms/alpha")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp api.RoomResponse
	decode(t, rr, &resp)
	if resp.RoomID != "alpha" {
		t.Errorf("roomId: got %q", resp.RoomID)
	}
	if len(resp.Members) != 2 || resp.Members[0] != "c1" || resp.Members[1] != "c2" {
		t.Errorf("members: got %v, want [c1 c2]", resp.Members)
	}
}

func TestRoom_NotFound(t *testing.T) {
	h := api.New(newRegistry(t, "alpha", "c1"))
	for _, path := range []string{"/api/v1/rooms/ghost", "/api/v1/rooms/", "/api/v1/rooms/alpha/extra"} {
		if rr := get(t, h, path); rr.Code != http.StatusNotFound {
			t.Errorf("%s: status got %d, want 404", path, rr.Code)
		}
	}
}

func TestRoom_EmptiedRoomIsGone(t *testing.T) {
	reg := newRegistry(t, "alpha", "c1")
	reg.Leave("c1", "alpha")

	if rr := get(t, api.New(reg), "/api/v1/rooms/alpha"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := api.New(newRegistry(t, "alpha", "c1"))
	for _, path := range []string{"/api/v1/health", "/api/v1/stats", "/api/v1/rooms/alpha"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: got %d, want 405", path, rr.Code)
		}
	}
}
