// Package transport owns the client side of the persistent push
// channel: one live connection per transport instance, three
// observable signals (open, message, error), and a bounded, debounced
// reconnect policy. Concrete transports (SSE, WebSocket) supply only
// the dial step; the connection state machine lives here.
package transport

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the connection state of a transport.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handlers is the listener set registered at construction time.
// Any of the three may be nil.
type Handlers struct {
	OnOpen    func()
	OnMessage func(raw []byte)
	OnError   func(err error)
}

// Transport maintains at most one live push connection.
type Transport interface {
	// Connect opens the connection if none exists. Idempotent: a no-op
	// while connecting or connected. Resets the reconnect-attempt
	// counter, so callers can restart a transport that exhausted its
	// automatic retries.
	Connect()
	// Disconnect closes the connection if present and cancels any
	// pending scheduled reconnection. Safe to call when already
	// disconnected.
	Disconnect()
	IsConnected() bool
}

// Stream is one established push connection. Next blocks until a raw
// frame arrives or the stream fails; after an error the stream is dead.
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

// DialFunc establishes a Stream. It is called once per connection
// attempt, off the caller's goroutine.
type DialFunc func() (Stream, error)

// Options configures the reconnect policy shared by all transports.
type Options struct {
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
}

// Runner implements the connection state machine around a DialFunc.
// The zero value is not usable; use NewRunner.
type Runner struct {
	dial     DialFunc
	handlers Handlers
	opts     Options

	mu       sync.Mutex
	state    State
	attempts int
	retry    *time.Timer
	stream   Stream
	// gen invalidates in-flight dials and reader loops after an
	// intentional Disconnect.
	gen uint64
}

// NewRunner creates a Runner around dial with the given policy.
func NewRunner(dial DialFunc, handlers Handlers, opts Options) *Runner {
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 3 * time.Second
	}
	return &Runner{dial: dial, handlers: handlers, opts: opts}
}

// Connect implements Transport.
func (r *Runner) Connect() {
	r.mu.Lock()
	r.attempts = 0
	r.cancelRetryLocked()
	r.connectLocked()
	r.mu.Unlock()
}

func (r *Runner) connectLocked() {
	if r.stream != nil || r.state != StateDisconnected {
		return
	}
	r.state = StateConnecting
	r.gen++
	go r.run(r.gen)
}

// Disconnect implements Transport.
func (r *Runner) Disconnect() {
	r.mu.Lock()
	r.gen++
	r.cancelRetryLocked()
	if r.stream != nil {
		_ = r.stream.Close()
		r.stream = nil
	}
	r.state = StateDisconnected
	r.mu.Unlock()
}

// IsConnected implements Transport.
func (r *Runner) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateConnected
}

// State returns the current connection state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// run dials and then pumps frames until the stream fails or the
// generation is invalidated by Disconnect.
func (r *Runner) run(gen uint64) {
	stream, err := r.dial()

	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		if stream != nil {
			_ = stream.Close()
		}
		return
	}
	if err != nil {
		r.failLocked(err)
		return
	}
	r.stream = stream
	r.state = StateConnected
	r.attempts = 0
	r.mu.Unlock()

	log.Debug().Msg("push transport connected")
	if r.handlers.OnOpen != nil {
		r.handlers.OnOpen()
	}

	for {
		frame, err := stream.Next()
		if err != nil {
			r.mu.Lock()
			if gen != r.gen {
				// Intentional teardown already handled the stream.
				r.mu.Unlock()
				return
			}
			_ = stream.Close()
			r.stream = nil
			r.failLocked(err)
			return
		}
		if r.handlers.OnMessage != nil {
			r.handlers.OnMessage(frame)
		}
	}
}

// failLocked moves to Disconnected, fires the error signal, and
// schedules a bounded, debounced reconnect. Called with mu held;
// releases it.
func (r *Runner) failLocked(err error) {
	r.state = StateDisconnected
	r.cancelRetryLocked()

	schedule := r.attempts < r.opts.MaxReconnectAttempts
	if schedule {
		// Counts per scheduled attempt, not per reported failure.
		r.attempts++
		attempt := r.attempts
		// The generation check makes a timer that already fired but
		// lost the race against Disconnect a no-op.
		gen := r.gen
		r.retry = time.AfterFunc(r.opts.ReconnectInterval, func() {
			r.mu.Lock()
			r.retry = nil
			if gen == r.gen {
				r.connectLocked()
			}
			r.mu.Unlock()
		})
		log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max", r.opts.MaxReconnectAttempts).
			Dur("in", r.opts.ReconnectInterval).
			Msg("push transport error, reconnect scheduled")
	} else {
		log.Warn().Err(err).
			Int("max", r.opts.MaxReconnectAttempts).
			Msg("push transport error, reconnect attempts exhausted")
	}
	r.mu.Unlock()

	if r.handlers.OnError != nil {
		r.handlers.OnError(err)
	}
}

func (r *Runner) cancelRetryLocked() {
	if r.retry != nil {
		r.retry.Stop()
		r.retry = nil
	}
}
