// Package types defines the wire protocol shared by the gateway and boardctl.
//
// Every frame exchanged over the board WebSocket is a JSON envelope:
//
//	{
//	  "kind":    "joinBoard",
//	  "payload": { "roomId": "b1" }
//	}
//
// Inbound frames decode into a Command (JoinBoard, LeaveBoard, SendMessage)
// via DecodeCommand. Outbound frames are built from an Event (JoinedBoard,
// LeftBoard, Message, BoardEvent, ErrorReply) and serialised with Encode.
//
// Protocol violations surface as *ProtocolError carrying one of the
// ErrorKind constants; the gateway reports them to the sending connection
// only.
package types
