// Package broadcast fans gateway events out to the members of a board room.
package broadcast

import (
	"log/slog"

	"github.com/nexusboard/nexusboard/pkg/types"
	"github.com/nexusboard/nexusboard/server/internal/metrics"
	"github.com/nexusboard/nexusboard/server/internal/registry"
)

// Broadcaster delivers events to every live member of a room.
//
// Delivery is at-most-once per member: a failed Send is logged and dropped,
// never retried, and never evicts the member. The transport's own
// disconnect signal is what eventually removes dead connections.
//
// Ordering: events broadcast to a room by one goroutine reach each member in
// call order, because every member's Send queues synchronously. There is no
// total order across goroutines broadcasting concurrently.
type Broadcaster struct {
	reg     *registry.Registry
	metrics *metrics.Metrics
}

// New creates a Broadcaster reading membership from reg. m may be nil.
func New(reg *registry.Registry, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{reg: reg, metrics: m}
}

// Broadcast sends ev to every current member of roomID except exclude
// (pass "" to exclude nobody). Membership is read at call time. It returns
// the number of members delivery was attempted against, not the number
// that succeeded.
func (b *Broadcaster) Broadcast(roomID string, ev types.Event, exclude string) int {
	data, err := types.Encode(ev)
	if err != nil {
		slog.Error("broadcast: encode event", "room", roomID, "kind", ev.Kind(), "err", err)
		return 0
	}

	attempted := 0
	for _, c := range b.reg.Members(roomID) {
		if exclude != "" && c.ID() == exclude {
			continue
		}
		attempted++
		if err := c.Send(data); err != nil {
			b.metrics.DeliveryFailed()
			slog.Debug("broadcast: delivery dropped",
				"room", roomID,
				"conn_id", c.ID(),
				"kind", ev.Kind(),
				"err", err,
			)
		}
	}

	b.metrics.Broadcast(attempted)
	slog.Debug("broadcast: fanned out", "room", roomID, "kind", ev.Kind(), "attempted", attempted)
	return attempted
}
