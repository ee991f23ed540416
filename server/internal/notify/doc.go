// Package notify implements notifyrpc.NotifyServer, the gRPC endpoint through
// which the persistence layer pushes board mutations into the gateway.
//
// Service.NotifyBoard validates that boardId and event are non-empty
// (codes.InvalidArgument otherwise) and broadcasts a boardEvent to every
// current member of the board. Authentication is enforced upstream by the
// gRPC server interceptor (see package auth).
package notify
