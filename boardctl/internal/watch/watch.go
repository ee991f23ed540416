// Package watch implements `boardctl watch`: it joins one board over the
// gateway WebSocket and streams every event it receives.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nexusboard/nexusboard/pkg/types"
)

// Options configures a watch session.
type Options struct {
	URL   string // ws:// or wss:// gateway endpoint
	Board string
	Token string // optional board access token, sent as a Bearer header
}

// Run dials the gateway, joins opts.Board and writes each received frame to
// out as one line of JSON. It returns nil when ctx is cancelled or the
// gateway closes the connection normally, and an error if the join is
// refused.
func Run(ctx context.Context, opts Options, out io.Writer) error {
	if opts.Board == "" {
		return errors.New("watch: board is required")
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("watch: dial %s: %w (status %d)", opts.URL, err, resp.StatusCode)
		}
		return fmt.Errorf("watch: dial %s: %w", opts.URL, err)
	}
	defer conn.Close()

	join, err := types.EncodeCommand(types.JoinBoard{RoomID: opts.Board})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		return fmt.Errorf("watch: send join: %w", err)
	}

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() {
		conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()

	joined := false
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("watch: read: %w", err)
		}

		ev, err := types.DecodeEvent(raw)
		if err != nil {
			slog.Warn("watch: skipping undecodable frame", "err", err)
			continue
		}
		if _, err := fmt.Fprintf(out, "%s\n", raw); err != nil {
			return err
		}

		switch ev := ev.(type) {
		case *types.JoinedBoard:
			if !joined && ev.RoomID == opts.Board {
				joined = true
				slog.Info("watch: joined board", "board", opts.Board, "conn_id", ev.ConnectionID)
			}
		case *types.ErrorReply:
			if !joined {
				return &types.ProtocolError{Kind: ev.ErrorKind, Detail: ev.Detail}
			}
		}
	}
}
