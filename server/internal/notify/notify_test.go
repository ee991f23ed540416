package notify_test

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nexusboard/nexusboard/pkg/notifyrpc"
	"github.com/nexusboard/nexusboard/pkg/types"
	"github.com/nexusboard/nexusboard/server/internal/auth"
	"github.com/nexusboard/nexusboard/server/internal/broadcast"
	"github.com/nexusboard/nexusboard/server/internal/metrics"
	"github.com/nexusboard/nexusboard/server/internal/notify"
	"github.com/nexusboard/nexusboard/server/internal/registry"
)

type member struct {
	id   string
	mu   sync.Mutex
	msgs [][]byte
}

func (m *member) ID() string { return m.id }

func (m *member) Send(msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *member) received() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.msgs...)
}

// startServer starts a gRPC server with the given interceptor and returns a
// connected client plus the registry backing it. Uses a random TCP port.
func startServer(t *testing.T, interceptor grpc.UnaryServerInterceptor) (notifyrpc.NotifyClient, *registry.Registry, *metrics.Metrics) {
	t.Helper()

	reg := registry.New()
	m := metrics.New(reg.Stats)
	svc := notify.New(broadcast.New(reg, m), m)

	srv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	notifyrpc.RegisterNotifyServer(srv, svc)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go srv.Serve(lis) //nolint:errcheck

	t.Cleanup(func() {
		srv.Stop()
		lis.Close()
	})

	conn, err := grpc.Dial(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	) //nolint:staticcheck
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return notifyrpc.NewNotifyClient(conn), reg, m
}

// allowAll is a no-op interceptor that passes every call through.
func allowAll(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	return handler(ctx, req)
}

func addMember(t *testing.T, reg *registry.Registry, id, room string) *member {
	t.Helper()
	m := &member{id: id}
	if err := reg.Register(m); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Join(id, room); err != nil {
		t.Fatalf("Join: %v", err)
	}
	return m
}

func TestNotifyBoard_BroadcastsToMembers(t *testing.T) {
	client, reg, m := startServer(t, allowAll)
	a := addMember(t, reg, "a", "board-1")
	b := addMember(t, reg, "b", "board-1")
	other := addMember(t, reg, "c", "board-2")

	resp, err := client.NotifyBoard(context.Background(), &notifyrpc.NotifyRequest{
		BoardID: "board-1",
		Event:   "taskMoved",
		Data:    json.RawMessage(`{"task":"t-1","to":"done"}`),
	})
	if err != nil {
		t.Fatalf("NotifyBoard: %v", err)
	}
	if !resp.OK || resp.Delivered != 2 {
		t.Errorf("response: got %+v, want ok with 2 delivered", resp)
	}

	for _, mem := range []*member{a, b} {
		got := mem.received()
		if len(got) != 1 {
			t.Fatalf("%s: got %d frames, want 1", mem.id, len(got))
		}
		ev, err := types.DecodeEvent(got[0])
		if err != nil {
			t.Fatalf("DecodeEvent: %v", err)
		}
		be, ok := ev.(*types.BoardEvent)
		if !ok || be.RoomID != "board-1" || be.Event != "taskMoved" {
			t.Errorf("%s: got %+v", mem.id, ev)
		}
	}
	if n := len(other.received()); n != 0 {
		t.Errorf("member of another board got %d frames", n)
	}

	var notified float64
	for _, f := range m.Families() {
		if f.GetName() == metrics.Notifications {
			notified = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if notified != 1 {
		t.Errorf("%s: got %v, want 1", metrics.Notifications, notified)
	}
}

func TestNotifyBoard_EmptyBoard_ZeroDelivered(t *testing.T) {
	client, _, _ := startServer(t, allowAll)

	resp, err := client.NotifyBoard(context.Background(), &notifyrpc.NotifyRequest{BoardID: "ghost", Event: "deleted"})
	if err != nil {
		t.Fatalf("NotifyBoard: %v", err)
	}
	if resp.Delivered != 0 {
		t.Errorf("Delivered: got %d, want 0", resp.Delivered)
	}
}

func TestNotifyBoard_Validation_InvalidArgument(t *testing.T) {
	client, _, _ := startServer(t, allowAll)

	for _, req := range []*notifyrpc.NotifyRequest{
		{Event: "taskMoved"},
		{BoardID: "board-1"},
	} {
		_, err := client.NotifyBoard(context.Background(), req)
		if code := status.Code(err); code != codes.InvalidArgument {
			t.Errorf("%+v: code got %v, want InvalidArgument", req, code)
		}
	}
}

func TestNotifyBoard_WithAPIKeyInterceptor(t *testing.T) {
	i := auth.APIKeyInterceptor("apikey", "x-api-key", "testkey")
	client, _, _ := startServer(t, i)
	req := &notifyrpc.NotifyRequest{BoardID: "b", Event: "e"}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "testkey")
	if _, err := client.NotifyBoard(ctx, req); err != nil {
		t.Fatalf("NotifyBoard with correct key: %v", err)
	}

	ctx = metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "wrongkey")
	if _, err := client.NotifyBoard(ctx, req); status.Code(err) != codes.Unauthenticated {
		t.Errorf("wrong key: code got %v, want Unauthenticated", status.Code(err))
	}

	if _, err := client.NotifyBoard(context.Background(), req); status.Code(err) != codes.Unauthenticated {
		t.Errorf("missing key: code got %v, want Unauthenticated", status.Code(err))
	}
}
