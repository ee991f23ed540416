package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusboard/nexusboard/pkg/types"
	"github.com/nexusboard/nexusboard/server/internal/metrics"
	"github.com/nexusboard/nexusboard/server/internal/registry"
)

type mockConn struct {
	id       string
	mu       sync.Mutex
	received [][]byte
	sendErr  error
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) events(t *testing.T) []types.Event {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Event, 0, len(m.received))
	for _, raw := range m.received {
		ev, err := types.DecodeEvent(raw)
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func setup(t *testing.T, rooms map[string][]*mockConn) *registry.Registry {
	t.Helper()
	reg := registry.New()
	seen := map[string]bool{}
	for room, conns := range rooms {
		for _, c := range conns {
			if !seen[c.id] {
				require.NoError(t, reg.Register(c))
				seen[c.id] = true
			}
			_, err := reg.Join(c.id, room)
			require.NoError(t, err)
		}
	}
	return reg
}

func TestBroadcast_ScopedToRoom(t *testing.T) {
	c1, c2, c3 := &mockConn{id: "c1"}, &mockConn{id: "c2"}, &mockConn{id: "c3"}
	reg := setup(t, map[string][]*mockConn{
		"alpha": {c1, c2},
		"beta":  {c3},
	})
	b := New(reg, nil)

	n := b.Broadcast("alpha", types.BoardEvent{RoomID: "alpha", Event: "taskMoved"}, "")

	assert.Equal(t, 2, n)
	assert.Len(t, c1.events(t), 1)
	assert.Len(t, c2.events(t), 1)
	assert.Empty(t, c3.events(t), "member of another room must not receive the event")
}

func TestBroadcast_ExcludesSender(t *testing.T) {
	c1, c2 := &mockConn{id: "c1"}, &mockConn{id: "c2"}
	reg := setup(t, map[string][]*mockConn{"alpha": {c1, c2}})
	b := New(reg, nil)

	n := b.Broadcast("alpha", types.Message{RoomID: "alpha", From: "c1", Data: json.RawMessage(`"hello"`)}, "c1")

	assert.Equal(t, 1, n)
	assert.Empty(t, c1.events(t))
	evs := c2.events(t)
	require.Len(t, evs, 1)
	assert.Equal(t, `"hello"`, string(evs[0].(*types.Message).Data))
}

func TestBroadcast_FailedWriteDoesNotStopOthers(t *testing.T) {
	dead := &mockConn{id: "c1", sendErr: errors.New("send buffer full")}
	live := &mockConn{id: "c2"}
	reg := setup(t, map[string][]*mockConn{"alpha": {dead, live}})
	m := metrics.New(nil)
	b := New(reg, m)

	n := b.Broadcast("alpha", types.LeftBoard{RoomID: "alpha", ConnectionID: "c3"}, "")

	assert.Equal(t, 2, n, "count includes attempted members, not successful ones")
	assert.Len(t, live.events(t), 1)
	assert.True(t, reg.IsMember("c1", "alpha"), "failed write must not evict the member")
}

func TestBroadcast_ReadsMembershipFresh(t *testing.T) {
	c1, c2 := &mockConn{id: "c1"}, &mockConn{id: "c2"}
	reg := setup(t, map[string][]*mockConn{"alpha": {c1, c2}})
	b := New(reg, nil)

	b.Broadcast("alpha", types.BoardEvent{RoomID: "alpha", Event: "first"}, "")
	reg.Leave("c2", "alpha")
	b.Broadcast("alpha", types.BoardEvent{RoomID: "alpha", Event: "second"}, "")

	assert.Len(t, c1.events(t), 2)
	assert.Len(t, c2.events(t), 1, "left member must not receive later events")
}

func TestBroadcast_PreservesCallOrder(t *testing.T) {
	c1 := &mockConn{id: "c1"}
	reg := setup(t, map[string][]*mockConn{"alpha": {c1}})
	b := New(reg, nil)

	names := []string{"a", "b", "c", "d", "e"}
	for _, name := range names {
		b.Broadcast("alpha", types.BoardEvent{RoomID: "alpha", Event: name}, "")
	}

	evs := c1.events(t)
	require.Len(t, evs, len(names))
	for i, ev := range evs {
		assert.Equal(t, names[i], ev.(*types.BoardEvent).Event)
	}
}

func TestBroadcast_EmptyRoom(t *testing.T) {
	b := New(registry.New(), nil)
	assert.Zero(t, b.Broadcast("nobody-here", types.BoardEvent{RoomID: "nobody-here", Event: "x"}, ""))
}
