package notify

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nexusboard/nexusboard/pkg/notifyrpc"
	"github.com/nexusboard/nexusboard/pkg/types"
	"github.com/nexusboard/nexusboard/server/internal/broadcast"
	"github.com/nexusboard/nexusboard/server/internal/metrics"
)

// Service implements notifyrpc.NotifyServer.
type Service struct {
	bc      *broadcast.Broadcaster
	metrics *metrics.Metrics
}

// New creates a Service that fans notifications out through bc. m may be nil.
func New(bc *broadcast.Broadcaster, m *metrics.Metrics) *Service {
	return &Service{bc: bc, metrics: m}
}

// NotifyBoard broadcasts req as a boardEvent to every member of req.BoardID.
// A board with no members is not an error; Delivered is simply zero.
func (s *Service) NotifyBoard(ctx context.Context, req *notifyrpc.NotifyRequest) (*notifyrpc.NotifyResponse, error) {
	if req.BoardID == "" {
		return nil, status.Error(codes.InvalidArgument, "boardId is required")
	}
	if req.Event == "" {
		return nil, status.Error(codes.InvalidArgument, "event is required")
	}

	n := s.bc.Broadcast(req.BoardID, types.BoardEvent{
		RoomID: req.BoardID,
		Event:  req.Event,
		Data:   req.Data,
	}, "")
	s.metrics.Notification()

	slog.Debug("notify: board event broadcast",
		"room", req.BoardID,
		"event", req.Event,
		"delivered", n,
	)

	return &notifyrpc.NotifyResponse{OK: true, Delivered: n}, nil
}
