// Package session implements the per-connection gateway protocol.
//
// A Session moves from Connected (registered, zero or more rooms) to the
// terminal Closed state. Handle decodes one inbound frame and translates it
// into registry and broadcaster calls:
//
//	joinBoard   authorize, join, announce joinedBoard to the room, confirm to sender
//	leaveBoard  leave, announce leftBoard to the room, acknowledge sender
//	message     require membership, relay to the room excluding sender
//
// Protocol errors are replied to the sender only. Close deregisters the
// connection and announces leftBoard to every room it was in; Close is
// idempotent.
package session
