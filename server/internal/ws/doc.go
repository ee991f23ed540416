// Package ws is the WebSocket transport for the board gateway.
//
// New(sessions, opts) creates a Hub. Hub.ServeHTTP verifies the optional
// board access token, checks the Origin against the allow-list, upgrades
// the connection, assigns it a UUID and opens a gateway session for it.
// Frames read from the socket go to Session.Handle; frames queued by the
// broadcaster are written by a per-client write pump, so one slow client
// never delays another. A full send queue drops frames for that client only.
//
// Hub.Run(ctx) blocks until ctx is cancelled, then closes every client;
// each close runs the normal disconnect path.
//
// Message format, both directions:
//
//	{
//	  "kind":    "joinBoard",
//	  "payload": { "roomId": "b1" }
//	}
//
// The endpoint is mounted at /ws by the server.
package ws
