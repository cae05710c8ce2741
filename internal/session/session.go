// Package session owns the process-wide notification service: one
// store, one gate, one push transport, constructed after
// authentication and torn down on logout. The transport exists only
// while `authenticated && visible` holds; consumers receive the
// session by injection rather than importing shared state.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/config"
	"github.com/homepoint/crm-notify/internal/fanout"
	"github.com/homepoint/crm-notify/internal/gate"
	"github.com/homepoint/crm-notify/internal/infrastructure/rest"
	"github.com/homepoint/crm-notify/internal/sink"
	"github.com/homepoint/crm-notify/internal/store"
	"github.com/homepoint/crm-notify/internal/transport"
	"github.com/homepoint/crm-notify/internal/transport/sse"
	"github.com/homepoint/crm-notify/internal/transport/ws"
)

// Session is the notification subsystem for one authenticated user.
type Session struct {
	cfg *config.Config

	api       *rest.Client
	store     *store.Store
	gate      *gate.Gate
	push      transport.Transport
	toasts    *sink.ToastSink
	desktop   sink.Desktop
	dispatch  *fanout.Dispatcher
	reconcile time.Duration

	mu      sync.Mutex
	token   string
	visible bool
	closed  bool
}

// New wires the subsystem. The session starts invisible and
// disconnected; call SetVisible(true) once the consuming surface is up.
func New(cfg *config.Config) *Session {
	s := &Session{
		cfg:       cfg,
		token:     cfg.API.Token,
		reconcile: cfg.API.Timeout(),
	}

	s.api = rest.New(cfg.API.BaseURL, s.currentToken, cfg.API.Timeout())
	s.store = store.New(s.api)
	s.toasts = sink.NewToastSink(0)
	s.desktop = sink.NewNotifySend(cfg.Desktop.Enabled)
	s.dispatch = fanout.New(s.store, s.toasts, s.desktop)
	s.gate = gate.New(s.dispatch.Dispatch, s.onActivate, s.desktop)

	handlers := transport.Handlers{
		OnOpen:    func() { log.Info().Msg("push channel open") },
		OnMessage: s.gate.Deliver,
		OnError:   func(err error) { log.Debug().Err(err).Msg("push channel error") },
	}
	opts := transport.Options{
		ReconnectInterval:    cfg.Stream.ReconnectInterval(),
		MaxReconnectAttempts: cfg.Stream.MaxReconnectAttempts,
	}
	switch cfg.Stream.Transport {
	case "websocket":
		s.push = ws.New(cfg.StreamURL(), ws.TokenProvider(s.currentToken), handlers, opts)
	default:
		s.push = sse.New(cfg.StreamURL(), sse.TokenProvider(s.currentToken), handlers, opts)
	}

	return s
}

// Store exposes the reconciled collection for UI binding.
func (s *Session) Store() *store.Store { return s.store }

// Toasts is the ephemeral display feed.
func (s *Session) Toasts() <-chan sink.Toast { return s.toasts.Toasts() }

// Connected reports push-channel connectivity for the UI indicator.
func (s *Session) Connected() bool { return s.push.IsConnected() }

// SetToken rotates the bearer token, then re-evaluates the transport
// policy: a token that expired tears the channel down, a fresh one
// brings it back.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.apply()
}

// SetVisible reports visibility changes of the consuming surface.
func (s *Session) SetVisible(visible bool) {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
	s.apply()
}

// Close tears the session down on logout or shutdown. The push
// connection and any pending reconnect are released on every exit
// path; the session must not be reused afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.gate.SetActive(false)
	s.push.Disconnect()
	log.Info().Msg("notification session closed")
}

// apply enforces the enabled predicate: the transport runs only while
// the session is visible and holds a live token.
func (s *Session) apply() {
	s.mu.Lock()
	enabled := !s.closed && s.visible && authenticated(s.token)
	s.mu.Unlock()

	if enabled {
		// Activation flushes the pending buffer, then onActivate
		// reconnects and reconciles.
		s.gate.SetActive(true)
		return
	}
	s.gate.SetActive(false)
	s.push.Disconnect()
}

// onActivate runs after each gate activation: reconnect the push
// channel and close the delivery gap accumulated while away.
func (s *Session) onActivate() {
	s.push.Connect()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.reconcile)
		defer cancel()
		if err := s.store.FetchUnread(ctx); err != nil {
			log.Warn().Err(err).Msg("unread reconciliation failed")
		}
	}()
}

func (s *Session) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// authenticated reports whether the token is present and not expired.
// The token is parsed unverified: signature checking is the server's
// concern, the client only needs the exp claim. Opaque (non-JWT)
// tokens count as authenticated.
func authenticated(token string) bool {
	if token == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(time.Now())
}
