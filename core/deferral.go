package core

import (
	"sync"
	"time"
)

// deferredCall is one Run call as seen by the deferral policy. The policy
// decides exactly one fate for it: run (the invocation starts), or drop (it
// never starts and the call's future settles with the given error).
//
// held is a notification, not a fate: it fires when the policy decides to
// hold the call back rather than run it immediately.
type deferredCall struct {
	run  func()
	drop func(err error)
	held func()
}

// deferralPolicy implements the debounce/throttle window semantics behind a
// narrow schedule/cancelPending contract. It holds at most one pending call;
// a newer call displaces the held one, which is dropped as ignored.
//
// Locking: the policy releases its own lock before invoking any run, drop,
// or held callback, so it never holds p.mu across a coordinator lock
// acquisition. The coordinator does call hasPending while holding its lock
// (Stats), which is safe only as long as that discipline holds.
type deferralPolicy struct {
	cfg Config

	mu         sync.Mutex
	windowOpen bool
	pending    *deferredCall
	timer      *time.Timer
	gen        uint64 // invalidates stale timer fires after a reset
}

func newDeferralPolicy(cfg Config) *deferralPolicy {
	return &deferralPolicy{cfg: cfg}
}

// schedule decides the fate of a new call: run it on the leading edge, hold
// it for the trailing edge, or drop it as superseded/ignored.
func (p *deferralPolicy) schedule(call *deferredCall) {
	p.mu.Lock()

	leading := p.cfg.Edge == EdgeLeading || p.cfg.Edge == EdgeBoth
	trailing := p.cfg.Edge == EdgeTrailing || p.cfg.Edge == EdgeBoth

	if !p.windowOpen {
		// First call of a quiet period opens the window.
		p.windowOpen = true
		p.armTimerLocked()
		if leading {
			p.mu.Unlock()
			call.run()
			return
		}
		p.pending = call
		p.mu.Unlock()
		call.held()
		return
	}

	// Window already open. Debounce restarts the quiet period on every
	// call; throttle keeps the original deadline.
	if p.cfg.Mode == ModeDebounce {
		p.armTimerLocked()
	}

	if !trailing {
		// Leading-only: calls inside the window never run.
		p.mu.Unlock()
		call.drop(ErrTaskIgnored)
		return
	}

	displaced := p.pending
	p.pending = call
	p.mu.Unlock()

	if displaced != nil {
		displaced.drop(ErrTaskIgnored)
	}
	call.held()
}

// cancelPending discards the held call (if any) and closes the window.
// The held call's future settles with err.
func (p *deferralPolicy) cancelPending(err error) {
	p.mu.Lock()
	dropped := p.pending
	p.pending = nil
	p.windowOpen = false
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	if dropped != nil {
		dropped.drop(err)
	}
}

// hasPending reports whether a call is currently held.
func (p *deferralPolicy) hasPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// armTimerLocked (re)starts the window timer. A fresh timer and generation
// are used on every arm so a concurrent stale fire is a no-op.
func (p *deferralPolicy) armTimerLocked() {
	p.gen++
	gen := p.gen
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.cfg.Window, func() {
		p.onTimer(gen)
	})
}

// onTimer fires the trailing edge of the window.
func (p *deferralPolicy) onTimer(gen uint64) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	fired := p.pending
	p.pending = nil
	p.windowOpen = false
	p.timer = nil
	p.mu.Unlock()

	if fired != nil {
		fired.run()
	}
}
