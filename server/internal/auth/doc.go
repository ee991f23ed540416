// Package auth provides access control for the gateway.
//
// Board access (WebSocket clients):
//   - Verifier checks HMAC-signed JWTs presented on the upgrade request
//     (session-token cookie, Authorization: Bearer header, or ?token=).
//     Claims carry the subject and the board ids the holder may join;
//     "*" grants every board.
//   - BoardAccess binds verified claims to connection ids and implements
//     the session Authorizer consulted before every joinBoard.
//
// Notify access (persistence layer, gRPC):
//   - APIKeyInterceptor(mode, header, key) rejects NotifyBoard calls whose
//     metadata does not carry the expected key with codes.Unauthenticated.
//     When mode != "apikey" or key == "", all calls pass through.
package auth
