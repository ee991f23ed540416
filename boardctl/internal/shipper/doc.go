// Package shipper relays board notifications to the nexusboard gateway via
// gRPC (NotifyService.NotifyBoard unary RPC).
//
// Shipper.Ship() is non-blocking: requests are placed in an in-memory channel
// (default capacity 1000). When the buffer is full the oldest entry is
// evicted so the most recent board state always wins.
//
// Shipper.Run() drains the buffer in a loop, reconnecting with truncated
// exponential backoff (1s→60s, ±25% jitter) on connection or send errors.
// Permanent gRPC errors (Unauthenticated, PermissionDenied, InvalidArgument)
// discard the request immediately rather than retrying.
//
// ParseLine decodes one newline-delimited JSON notification as read by
// `boardctl relay`.
//
// The dialFn field is injectable for testing.
package shipper
