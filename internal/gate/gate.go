// Package gate implements the visibility gate: a two-state machine
// (active, inactive) deciding whether an inbound push event is
// delivered immediately or parked in the pending buffer. Buffered
// events are released exactly once, in arrival order, when the gate
// reactivates, followed by a reconciliation pass to close any gap from
// the inactive period.
package gate

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/fanout"
	"github.com/homepoint/crm-notify/internal/sink"
)

// Gate starts inactive; the session activates it once the surface is
// visible and authenticated.
type Gate struct {
	deliver    func(raw []byte)
	onActivate func()
	desktop    sink.Desktop

	mu      sync.Mutex
	active  bool
	pending [][]byte
}

// New creates a Gate. deliver receives each event on the normal
// delivery path; onActivate runs after every inactive-to-active flush
// (the session wires it to transport reconnect plus unread
// reconciliation). desktop may be nil.
func New(deliver func(raw []byte), onActivate func(), desktop sink.Desktop) *Gate {
	return &Gate{deliver: deliver, onActivate: onActivate, desktop: desktop}
}

// Active reports the current state.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Pending reports the number of buffered events.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Deliver routes one raw inbound event: straight through while active,
// into the pending buffer while inactive. Buffered events still raise
// a native notification so the user learns about them even with the
// surface hidden; the id-derived tag suppresses duplicates.
func (g *Gate) Deliver(raw []byte) {
	g.mu.Lock()
	if g.active {
		g.mu.Unlock()
		g.deliver(raw)
		return
	}
	g.pending = append(g.pending, raw)
	g.mu.Unlock()

	if g.desktop != nil && g.desktop.Granted() {
		if rec, ok := fanout.Parse(raw); ok {
			g.desktop.Raise(fanout.Tag(rec.ID), rec.Category, rec.Content)
		}
	}
}

// SetActive transitions the state machine. Only a genuine
// inactive-to-active transition flushes the buffer and reconciles;
// repeated calls with the same value are no-ops.
func (g *Gate) SetActive(active bool) {
	g.mu.Lock()
	if g.active == active {
		g.mu.Unlock()
		return
	}
	g.active = active
	if !active {
		g.mu.Unlock()
		log.Debug().Msg("visibility gate inactive, buffering events")
		return
	}
	flushed := g.pending
	g.pending = nil
	g.mu.Unlock()

	if len(flushed) > 0 {
		log.Debug().Int("count", len(flushed)).Msg("releasing buffered events")
	}
	for _, raw := range flushed {
		g.deliver(raw)
	}
	if g.onActivate != nil {
		g.onActivate()
	}
}
