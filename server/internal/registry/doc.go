// Package registry is the single source of truth for which gateway
// connections exist and which board rooms each one has joined.
//
// All membership state lives behind one RWMutex; callers only ever see
// snapshots. Rooms are created on first Join and discarded on last Leave.
// The registry performs no I/O and never broadcasts.
package registry
