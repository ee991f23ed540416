package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/nexusboard/nexusboard/pkg/types"
	"github.com/nexusboard/nexusboard/server/internal/broadcast"
	"github.com/nexusboard/nexusboard/server/internal/metrics"
	"github.com/nexusboard/nexusboard/server/internal/registry"
)

// State is the lifecycle state of a Session.
type State int

const (
	Connected State = iota
	Closed
)

func (s State) String() string {
	switch s {
	case Connected:
		return "CONNECTED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Authorizer decides whether a connection may join a room.
type Authorizer interface {
	Authorize(connID, roomID string) bool
}

// AllowAll is an Authorizer that admits every join.
type AllowAll struct{}

func (AllowAll) Authorize(string, string) bool { return true }

// Handler owns the shared collaborators used by every Session.
type Handler struct {
	reg     *registry.Registry
	bc      *broadcast.Broadcaster
	auth    Authorizer
	metrics *metrics.Metrics
}

// NewHandler creates a Handler. A nil auth admits every join; m may be nil.
func NewHandler(reg *registry.Registry, bc *broadcast.Broadcaster, auth Authorizer, m *metrics.Metrics) *Handler {
	if auth == nil {
		auth = AllowAll{}
	}
	return &Handler{reg: reg, bc: bc, auth: auth, metrics: m}
}

// Session is the protocol state of one connection. The Session holds only
// a reference to the connection; the registry owns it.
type Session struct {
	h    *Handler
	conn registry.Conn

	// registered is false when Register rejected the id; such a session
	// must never deregister the connection that owns it.
	registered bool

	mu    sync.Mutex
	state State
}

// Open registers conn and returns its Session in the Connected state.
// A duplicate id is logged and the Session is still returned, so the
// transport can proceed to Close it normally.
func (h *Handler) Open(conn registry.Conn) *Session {
	s := &Session{h: h, conn: conn, state: Connected}
	if err := h.reg.Register(conn); err != nil {
		slog.Error("session: register failed", "conn_id", conn.ID(), "err", err)
		return s
	}
	s.registered = true
	h.metrics.ConnectionOpened()
	slog.Info("session: client connected", "conn_id", conn.ID())
	return s
}

// ID returns the connection id.
func (s *Session) ID() string { return s.conn.ID() }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle processes one raw inbound frame. It never panics on bad input and
// never affects other connections; protocol errors are replied to this
// connection and returned for the caller's information.
func (s *Session) Handle(raw []byte) error {
	if s.State() == Closed {
		slog.Debug("session: frame after close ignored", "conn_id", s.ID())
		return nil
	}
	if !s.registered {
		// The id belongs to another connection; acting on it would touch
		// that connection's memberships.
		slog.Error("session: command from unregistered connection dropped", "conn_id", s.ID())
		return s.reject(types.BadCommand("connection is not registered"))
	}

	cmd, err := types.DecodeCommand(raw)
	if err != nil {
		return s.reject(err)
	}

	switch c := cmd.(type) {
	case types.JoinBoard:
		err = s.join(c)
	case types.LeaveBoard:
		s.leave(c)
	case types.SendMessage:
		err = s.message(c)
	default:
		err = types.BadCommand("unhandled kind %q", cmd.Kind())
	}
	if err != nil {
		return s.reject(err)
	}
	s.h.metrics.Command(string(cmd.Kind()))
	return nil
}

// Reject replies a protocol error to this connection only. The transport
// uses it for conditions detected before decoding, such as rate limiting.
func (s *Session) Reject(pe *types.ProtocolError) {
	s.reject(pe) //nolint:errcheck
}

func (s *Session) join(c types.JoinBoard) error {
	if !s.h.auth.Authorize(s.ID(), c.RoomID) {
		return types.Unauthorized(c.RoomID)
	}

	changed, err := s.h.reg.Join(s.ID(), c.RoomID)
	if err != nil {
		// Consistency violation in the transport glue; keep serving.
		slog.Error("session: join failed", "conn_id", s.ID(), "room", c.RoomID, "err", err)
		return nil
	}

	ev := types.JoinedBoard{RoomID: c.RoomID, ConnectionID: s.ID()}
	if changed {
		s.h.bc.Broadcast(c.RoomID, ev, s.ID())
		slog.Info("session: joined board", "conn_id", s.ID(), "room", c.RoomID)
	}
	s.send(ev)
	return nil
}

func (s *Session) leave(c types.LeaveBoard) {
	if !s.h.reg.Leave(s.ID(), c.RoomID) {
		return
	}
	ev := types.LeftBoard{RoomID: c.RoomID, ConnectionID: s.ID()}
	s.h.bc.Broadcast(c.RoomID, ev, s.ID())
	s.send(ev)
	slog.Info("session: left board", "conn_id", s.ID(), "room", c.RoomID)
}

func (s *Session) message(c types.SendMessage) error {
	if !s.h.reg.IsMember(s.ID(), c.RoomID) {
		return types.NotInRoom(c.RoomID)
	}
	s.h.bc.Broadcast(c.RoomID, types.Message{RoomID: c.RoomID, From: s.ID(), Data: c.Data}, s.ID())
	return nil
}

// Close deregisters the connection and tells the peers in every room it
// had joined. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.state = Closed
	s.mu.Unlock()

	if !s.registered {
		return
	}
	rooms := s.h.reg.Deregister(s.ID())
	for _, room := range rooms {
		s.h.bc.Broadcast(room, types.LeftBoard{RoomID: room, ConnectionID: s.ID()}, s.ID())
	}
	s.h.metrics.ConnectionClosed()
	slog.Info("session: client disconnected", "conn_id", s.ID(), "rooms", len(rooms))
}

func (s *Session) reject(err error) error {
	var pe *types.ProtocolError
	if !errors.As(err, &pe) {
		pe = types.BadCommand("%v", err)
	}
	s.h.metrics.ProtocolError(string(pe.Kind))
	slog.Info("session: command rejected", "conn_id", s.ID(), "error_kind", pe.Kind, "detail", pe.Detail)
	s.send(pe.Reply())
	return pe
}

// send writes directly to this connection, bypassing the registry so that
// error replies still reach connections whose registration failed.
func (s *Session) send(ev types.Event) {
	data, err := types.Encode(ev)
	if err != nil {
		slog.Error("session: encode reply", "conn_id", s.ID(), "kind", ev.Kind(), "err", err)
		return
	}
	if err := s.conn.Send(data); err != nil {
		slog.Debug("session: reply dropped", "conn_id", s.ID(), "kind", ev.Kind(), "err", err)
	}
}
