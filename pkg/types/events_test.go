package types

import (
	"encoding/json"
	"testing"
)

func TestEncode_Envelope(t *testing.T) {
	raw, err := Encode(JoinedBoard{RoomID: "alpha", ConnectionID: "c1"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["kind"] != "joinedBoard" {
		t.Errorf("kind: got %v, want joinedBoard", m["kind"])
	}
	payload, ok := m["payload"].(map[string]interface{})
	if !ok {
		t.Fatal("payload: missing or wrong type")
	}
	if payload["roomId"] != "alpha" || payload["connectionId"] != "c1" {
		t.Errorf("payload: got %v", payload)
	}
}

func TestEncode_ErrorReply(t *testing.T) {
	raw, err := Encode(NotInRoom("alpha").Reply())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	reply, ok := ev.(*ErrorReply)
	if !ok {
		t.Fatalf("type: got %T, want *ErrorReply", ev)
	}
	if reply.ErrorKind != ErrNotInRoom {
		t.Errorf("ErrorKind: got %q, want %q", reply.ErrorKind, ErrNotInRoom)
	}
}

func TestEncode_Nil(t *testing.T) {
	if _, err := Encode(nil); err == nil {
		t.Fatal("expected error for nil event")
	}
}

func TestDecodeEvent_UnknownKind(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"kind":"snapshot","payload":{}}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestDecodeEvent_MessageData(t *testing.T) {
	raw, err := Encode(Message{RoomID: "alpha", From: "c1", Data: json.RawMessage(`"hello"`)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	msg := ev.(*Message)
	if string(msg.Data) != `"hello"` || msg.From != "c1" {
		t.Errorf("message: got %+v", msg)
	}
}
