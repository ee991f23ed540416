package types

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// CommandKind tags an inbound frame.
type CommandKind string

const (
	KindJoinBoard  CommandKind = "joinBoard"
	KindLeaveBoard CommandKind = "leaveBoard"
	KindMessage    CommandKind = "message"
)

// Command is one decoded inbound frame. The concrete type is one of
// JoinBoard, LeaveBoard or SendMessage.
type Command interface {
	Kind() CommandKind
	Room() string
}

// JoinBoard asks the gateway to add the sender to RoomID.
type JoinBoard struct {
	RoomID string
}

// LeaveBoard asks the gateway to remove the sender from RoomID.
type LeaveBoard struct {
	RoomID string
}

// SendMessage relays Data to every other member of RoomID.
type SendMessage struct {
	RoomID string
	Data   json.RawMessage
}

func (JoinBoard) Kind() CommandKind   { return KindJoinBoard }
func (LeaveBoard) Kind() CommandKind  { return KindLeaveBoard }
func (SendMessage) Kind() CommandKind { return KindMessage }

func (c JoinBoard) Room() string   { return c.RoomID }
func (c LeaveBoard) Room() string  { return c.RoomID }
func (c SendMessage) Room() string { return c.RoomID }

// DecodeCommand parses one inbound frame. Any malformed frame returns a
// *ProtocolError of kind ErrBadCommand.
//
// joinBoard and leaveBoard accept either {"roomId": "b1"} or the bare
// string "b1" as payload.
func DecodeCommand(raw []byte) (Command, error) {
	if !gjson.ValidBytes(raw) {
		return nil, BadCommand("frame is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, BadCommand("frame must be a JSON object")
	}

	kind := root.Get("kind")
	if kind.Type != gjson.String || kind.String() == "" {
		return nil, BadCommand("missing kind")
	}
	payload := root.Get("payload")

	switch CommandKind(kind.String()) {
	case KindJoinBoard:
		room, err := roomID(payload)
		if err != nil {
			return nil, err
		}
		return JoinBoard{RoomID: room}, nil

	case KindLeaveBoard:
		room, err := roomID(payload)
		if err != nil {
			return nil, err
		}
		return LeaveBoard{RoomID: room}, nil

	case KindMessage:
		if !payload.IsObject() {
			return nil, BadCommand("message payload must be an object")
		}
		room, err := roomID(payload)
		if err != nil {
			return nil, err
		}
		data := payload.Get("data")
		if !data.Exists() {
			return nil, BadCommand("message payload missing data")
		}
		return SendMessage{RoomID: room, Data: json.RawMessage(data.Raw)}, nil

	default:
		return nil, BadCommand("unknown kind %q", kind.String())
	}
}

func roomID(payload gjson.Result) (string, error) {
	var id gjson.Result
	switch {
	case payload.Type == gjson.String:
		id = payload
	case payload.IsObject():
		id = payload.Get("roomId")
	default:
		return "", BadCommand("missing roomId")
	}
	if id.Type != gjson.String || id.String() == "" {
		return "", BadCommand("roomId must be a non-empty string")
	}
	return id.String(), nil
}

type commandEnvelope struct {
	Kind    CommandKind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeCommand serialises c into its inbound wire envelope. It is the
// client-side counterpart of DecodeCommand.
func EncodeCommand(c Command) ([]byte, error) {
	var payload interface{}
	switch c := c.(type) {
	case JoinBoard:
		payload = struct {
			RoomID string `json:"roomId"`
		}{c.RoomID}
	case LeaveBoard:
		payload = struct {
			RoomID string `json:"roomId"`
		}{c.RoomID}
	case SendMessage:
		data := c.Data
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		payload = struct {
			RoomID string          `json:"roomId"`
			Data   json.RawMessage `json:"data"`
		}{c.RoomID, data}
	default:
		return nil, fmt.Errorf("types: encode unknown command %T", c)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("types: encode %s payload: %w", c.Kind(), err)
	}
	return json.Marshal(commandEnvelope{Kind: c.Kind(), Payload: raw})
}
