package types

import (
	"encoding/json"
	"fmt"
)

// EventKind tags an outbound frame.
type EventKind string

const (
	KindJoinedBoard EventKind = "joinedBoard"
	KindLeftBoard   EventKind = "leftBoard"
	KindMessageOut  EventKind = "message"
	KindBoardEvent  EventKind = "boardEvent"
	KindError       EventKind = "error"
)

// Event is one outbound frame. The concrete type is one of JoinedBoard,
// LeftBoard, Message, BoardEvent or ErrorReply.
type Event interface {
	Kind() EventKind
}

// JoinedBoard announces that ConnectionID is now a member of RoomID.
type JoinedBoard struct {
	RoomID       string `json:"roomId"`
	ConnectionID string `json:"connectionId"`
}

// LeftBoard announces that ConnectionID is no longer a member of RoomID.
type LeftBoard struct {
	RoomID       string `json:"roomId"`
	ConnectionID string `json:"connectionId"`
}

// Message carries client-supplied data relayed within RoomID.
type Message struct {
	RoomID string          `json:"roomId"`
	From   string          `json:"from"`
	Data   json.RawMessage `json:"data"`
}

// BoardEvent is a server-originated board mutation notification pushed by
// the persistence layer.
type BoardEvent struct {
	RoomID string          `json:"roomId"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ErrorReply reports a protocol error to the offending connection only.
type ErrorReply struct {
	ErrorKind ErrorKind `json:"errorKind"`
	Detail    string    `json:"detail"`
}

func (JoinedBoard) Kind() EventKind { return KindJoinedBoard }
func (LeftBoard) Kind() EventKind   { return KindLeftBoard }
func (Message) Kind() EventKind     { return KindMessageOut }
func (BoardEvent) Kind() EventKind  { return KindBoardEvent }
func (ErrorReply) Kind() EventKind  { return KindError }

// Envelope is the JSON frame written to clients.
type Envelope struct {
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode serialises ev into its wire envelope.
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("types: encode nil event")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("types: encode %s payload: %w", ev.Kind(), err)
	}
	return json.Marshal(Envelope{Kind: ev.Kind(), Payload: payload})
}

// DecodeEvent parses an outbound frame back into its concrete Event. It is
// used by clients such as boardctl watch.
func DecodeEvent(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("types: decode envelope: %w", err)
	}

	var ev Event
	switch env.Kind {
	case KindJoinedBoard:
		ev = &JoinedBoard{}
	case KindLeftBoard:
		ev = &LeftBoard{}
	case KindMessageOut:
		ev = &Message{}
	case KindBoardEvent:
		ev = &BoardEvent{}
	case KindError:
		ev = &ErrorReply{}
	default:
		return nil, fmt.Errorf("types: unknown event kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Payload, ev); err != nil {
		return nil, fmt.Errorf("types: decode %s payload: %w", env.Kind, err)
	}
	return ev, nil
}
