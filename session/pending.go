package session

import "sync"

// PendingLogin holds the server-issued nonce between a successful password
// check and the two-factor verification that completes it.
//
// Lifecycle: Begin on a requiresTwoFactor login response; Clear on
// successful verification, on explicit back-to-login navigation, and on UI
// teardown. The nonce survives a failed verification attempt so the same
// challenge can be retried. It is never proof of authentication.
type PendingLogin struct {
	mu    sync.Mutex
	nonce string
}

// Begin records a new challenge nonce, replacing any previous one.
func (p *PendingLogin) Begin(nonce string) {
	p.mu.Lock()
	p.nonce = nonce
	p.mu.Unlock()
}

// Peek returns the current nonce, if any.
func (p *PendingLogin) Peek() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nonce, p.nonce != ""
}

// Active reports whether a challenge is pending.
func (p *PendingLogin) Active() bool {
	_, ok := p.Peek()
	return ok
}

// Clear destroys the pending challenge.
func (p *PendingLogin) Clear() {
	p.mu.Lock()
	p.nonce = ""
	p.mu.Unlock()
}
