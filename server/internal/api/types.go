package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	StartedAt     string `json:"started_at"` // RFC3339
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StatsResponse is the payload for GET /api/v1/stats.
type StatsResponse struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// RoomResponse is the payload for GET /api/v1/rooms/{id}.
type RoomResponse struct {
	RoomID  string   `json:"roomId"`
	Members []string `json:"members"`
}

type errorResponse struct {
	Error string `json:"error"`
}
