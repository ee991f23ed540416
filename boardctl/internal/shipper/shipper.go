package shipper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nexusboard/nexusboard/boardctl/internal/config"
	"github.com/nexusboard/nexusboard/pkg/notifyrpc"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second
)

// Shipper buffers NotifyRequests and ships them to the gateway via gRPC.
// Ship() is non-blocking; when the buffer is full the oldest request is evicted.
// Run() must be called in a goroutine to drain the buffer and handle reconnection.
type Shipper struct {
	cfg    config.Config
	buf    chan *notifyrpc.NotifyRequest
	dialFn dialFunc // injectable for tests

	// pending counts requests shipped but not yet settled (delivered,
	// discarded or evicted).
	pending atomic.Int64
}

// dialFunc is the function signature used to open a gRPC connection.
type dialFunc func(ctx context.Context, endpoint string) (*grpc.ClientConn, error)

// New creates a Shipper using the given boardctl config.
func New(cfg config.Config) *Shipper {
	return &Shipper{
		cfg:    cfg,
		buf:    make(chan *notifyrpc.NotifyRequest, cfg.BufferSize),
		dialFn: defaultDial,
	}
}

// Ship enqueues req. If the buffer is full the oldest entry is evicted to
// make room.
func (s *Shipper) Ship(req *notifyrpc.NotifyRequest) {
	s.pending.Add(1)
	select {
	case s.buf <- req:
	default:
		// Buffer full: evict the oldest request.
		select {
		case old := <-s.buf:
			s.pending.Add(-1)
			slog.Warn("shipper: buffer full, evicted oldest notification",
				"board", old.BoardID, "event", old.Event, "buffer_cap", cap(s.buf))
		default:
		}
		select {
		case s.buf <- req:
		default:
			s.pending.Add(-1)
		}
	}
}

// Pending returns the number of requests not yet delivered or discarded.
func (s *Shipper) Pending() int {
	return int(s.pending.Load())
}

// Run drains the buffer, sending requests to the gateway.
// It reconnects with exponential backoff when the connection is lost.
// Run blocks until ctx is cancelled.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dialFn(ctx, s.cfg.GRPCEndpoint)
		if err != nil {
			wait := bo.next()
			slog.Error("shipper: dial failed, will retry",
				"endpoint", s.cfg.GRPCEndpoint,
				"err", err,
				"retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
				continue
			}
		}

		slog.Info("shipper: connected", "endpoint", s.cfg.GRPCEndpoint)
		bo.reset()

		err = s.drain(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}

		wait := bo.next()
		slog.Warn("shipper: connection lost, will reconnect",
			"endpoint", s.cfg.GRPCEndpoint,
			"err", err,
			"retry_in", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// drain reads from the buffer and sends requests until the connection fails
// or ctx is cancelled.
func (s *Shipper) drain(ctx context.Context, conn grpc.ClientConnInterface) error {
	client := notifyrpc.NewNotifyClient(conn)

	for {
		select {
		case <-ctx.Done():
			return nil

		case req := <-s.buf:
			sendCtx, cancel := context.WithTimeout(s.outgoing(ctx), sendTimeout)
			resp, err := client.NotifyBoard(sendCtx, req)
			cancel()

			if err != nil {
				// Permanent errors mean the request itself is bad; retrying
				// cannot help.
				if isPermanentError(err) {
					s.pending.Add(-1)
					slog.Error("shipper: permanent send error, discarding notification",
						"board", req.BoardID, "event", req.Event, "err", err)
					continue
				}
				// Transient: put it back if there's room, then reconnect.
				select {
				case s.buf <- req:
				default:
					s.pending.Add(-1)
				}
				return fmt.Errorf("send: %w", err)
			}

			s.pending.Add(-1)
			if !resp.OK {
				slog.Warn("shipper: gateway did not accept notification",
					"board", req.BoardID, "event", req.Event)
			} else {
				slog.Debug("shipper: notification delivered",
					"board", req.BoardID, "event", req.Event, "delivered", resp.Delivered)
			}
		}
	}
}

// outgoing attaches the API key header when apikey auth is configured.
func (s *Shipper) outgoing(ctx context.Context) context.Context {
	return WithAPIKey(ctx, s.cfg.Auth)
}

// WithAPIKey returns ctx carrying the configured API key as outgoing gRPC
// metadata. It returns ctx unchanged unless auth mode is apikey.
func WithAPIKey(ctx context.Context, auth config.AuthConfig) context.Context {
	if auth.Mode != "apikey" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, auth.EffectiveHeader(), auth.Key())
}

// isPermanentError returns true for gRPC errors that indicate the request
// itself is invalid and should not be retried.
func isPermanentError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied:
		return true
	}
	return false
}

// Dial opens a plaintext gRPC connection to endpoint.
func Dial(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	return defaultDial(ctx, endpoint)
}

func defaultDial(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, endpoint, //nolint:staticcheck // deprecated in 1.63 but DialContext is used for compat
		grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
