package ws

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// originPolicy is the hot-swappable Origin allow-list.
type originPolicy struct {
	mu       sync.RWMutex
	allowAll bool
	allowed  map[string]struct{}
}

func newOriginPolicy(origins []string) *originPolicy {
	p := &originPolicy{}
	p.set(origins)
	return p
}

func (p *originPolicy) set(origins []string) {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
			continue
		case o == "*":
			allowAll = true
			continue
		}
		n, ok := normalizeOrigin(o)
		if !ok {
			slog.Warn("ws: ignoring invalid allowed origin", "origin", o)
			continue
		}
		allowed[n] = struct{}{}
	}

	p.mu.Lock()
	p.allowAll = allowAll
	p.allowed = allowed
	p.mu.Unlock()
}

// check is the upgrader's CheckOrigin. Requests without an Origin header
// come from non-browser clients and are allowed.
func (p *originPolicy) check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.allowAll {
		return true
	}
	if n, ok := normalizeOrigin(origin); ok {
		if _, exists := p.allowed[n]; exists {
			return true
		}
	}
	slog.Warn("ws: blocked disallowed origin", "origin", origin)
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}
