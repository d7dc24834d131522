package server

import "sync"

// sessionRegistry maps session ids to their HeyGen session tokens. It lives
// in memory only; sessions are short-lived and survive neither restart nor
// redeploy, which is fine for a demo proxy.
type sessionRegistry struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{tokens: make(map[string]string)}
}

func (r *sessionRegistry) put(sessionID, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[sessionID] = token
}

func (r *sessionRegistry) get(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[sessionID]
	return tok, ok
}

func (r *sessionRegistry) delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, sessionID)
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
