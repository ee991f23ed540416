package auth

import "sync"

// BoardAccess remembers the verified claims of each connection and answers
// join authorization from them. BoardAccess is safe for concurrent use.
type BoardAccess struct {
	mu    sync.RWMutex
	conns map[string]*Claims
}

// NewBoardAccess creates an empty BoardAccess.
func NewBoardAccess() *BoardAccess {
	return &BoardAccess{conns: make(map[string]*Claims)}
}

// Bind associates claims with connID.
func (a *BoardAccess) Bind(connID string, claims *Claims) {
	a.mu.Lock()
	a.conns[connID] = claims
	a.mu.Unlock()
}

// Forget drops whatever is bound to connID.
func (a *BoardAccess) Forget(connID string) {
	a.mu.Lock()
	delete(a.conns, connID)
	a.mu.Unlock()
}

// Authorize reports whether connID holds claims granting roomID. Unbound
// connections are denied.
func (a *BoardAccess) Authorize(connID, roomID string) bool {
	a.mu.RLock()
	claims, ok := a.conns[connID]
	a.mu.RUnlock()
	return ok && claims.Allows(roomID)
}
