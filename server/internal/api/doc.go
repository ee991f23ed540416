// Package api implements the HTTP introspection API for the nexusboard gateway.
//
// New(reg) returns an http.Handler that serves:
//
//	GET /api/v1/health      liveness and uptime
//	GET /api/v1/stats       non-empty room count and connection count
//	GET /api/v1/rooms/{id}  sorted member connection ids; 404 if the room is empty
//
// All endpoints respond with Content-Type: application/json and return 405
// for non-GET methods. JSON types are defined in types.go.
package api
