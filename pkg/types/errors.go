package types

import "fmt"

// ErrorKind names a protocol error class reported back to a client.
type ErrorKind string

const (
	ErrBadCommand   ErrorKind = "BadCommandError"
	ErrNotInRoom    ErrorKind = "NotInRoomError"
	ErrUnauthorized ErrorKind = "UnauthorizedError"
	ErrRateLimited  ErrorKind = "RateLimitedError"
)

// ProtocolError is caused by a misbehaving or stale client. It is never
// fatal and only ever reported to the connection that caused it.
type ProtocolError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Reply converts the error into the outbound event sent to the offender.
func (e *ProtocolError) Reply() ErrorReply {
	return ErrorReply{ErrorKind: e.Kind, Detail: e.Detail}
}

// BadCommand returns a ProtocolError of kind ErrBadCommand.
func BadCommand(format string, args ...any) *ProtocolError {
	return &ProtocolError{Kind: ErrBadCommand, Detail: fmt.Sprintf(format, args...)}
}

// NotInRoom returns a ProtocolError of kind ErrNotInRoom for roomID.
func NotInRoom(roomID string) *ProtocolError {
	return &ProtocolError{Kind: ErrNotInRoom, Detail: fmt.Sprintf("not a member of room %q", roomID)}
}

// Unauthorized returns a ProtocolError of kind ErrUnauthorized for roomID.
func Unauthorized(roomID string) *ProtocolError {
	return &ProtocolError{Kind: ErrUnauthorized, Detail: fmt.Sprintf("not allowed to join room %q", roomID)}
}

// RateLimited returns a ProtocolError of kind ErrRateLimited.
func RateLimited() *ProtocolError {
	return &ProtocolError{Kind: ErrRateLimited, Detail: "too many commands, slow down"}
}
