package stubserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/domain"
)

// Handler holds all HTTP handler methods.
type Handler struct {
	state *State
	hub   *Hub

	upgrader websocket.Upgrader
}

// NewHandler creates a new Handler.
func NewHandler(state *State, hub *Hub) *Handler {
	return &Handler{
		state: state,
		hub:   hub,
		// Dev harness: accept any origin.
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// --- REST handlers ---

// List GET /notifications
func (h *Handler) List(c echo.Context) error {
	receiver, err := receiverFromRequest(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, err.Error())
	}

	page := parseIntQuery(c, "page", 1)
	size := parseIntQuery(c, "size", 20)
	filter := domain.ReadFilter(c.QueryParam("filter"))

	return ok(c, h.state.List(receiver, filter, page, size))
}

// Unread GET /notifications/unread
func (h *Handler) Unread(c echo.Context) error {
	receiver, err := receiverFromRequest(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, err.Error())
	}
	unread := h.state.Unread(receiver)
	if unread == nil {
		unread = []domain.Record{}
	}
	return ok(c, unread)
}

// MarkRead POST /notifications/mark-read
func (h *Handler) MarkRead(c echo.Context) error {
	return h.mutate(c, func(receiver int64, req domain.MutationRequest) []int64 {
		return h.state.SetRead(receiver, req.NotificationIDs, req.IsAll, true)
	})
}

// MarkUnread POST /notifications/mark-unread
func (h *Handler) MarkUnread(c echo.Context) error {
	return h.mutate(c, func(receiver int64, req domain.MutationRequest) []int64 {
		return h.state.SetRead(receiver, req.NotificationIDs, req.IsAll, false)
	})
}

// Delete POST /notifications/delete
func (h *Handler) Delete(c echo.Context) error {
	return h.mutate(c, func(receiver int64, req domain.MutationRequest) []int64 {
		return h.state.Delete(receiver, req.NotificationIDs, req.IsAll)
	})
}

func (h *Handler) mutate(c echo.Context, apply func(int64, domain.MutationRequest) []int64) error {
	receiver, err := receiverFromRequest(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, err.Error())
	}

	var req domain.MutationRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	affected := apply(receiver, req)
	if affected == nil {
		affected = []int64{}
	}
	return ok(c, domain.MutationResult{NotificationIDs: affected})
}

// Inject POST /notifications — create a notification and push it to
// any connected consumers of its receiver. This is the harness's event
// source, standing in for the real backend's producers.
func (h *Handler) Inject(c echo.Context) error {
	var req struct {
		ReceiverID int64  `json:"receiverId"`
		Category   string `json:"type"`
		Content    string `json:"content"`
		TargetURL  string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.ReceiverID == 0 || req.Content == "" {
		return fail(c, http.StatusBadRequest, "receiverId and content are required")
	}

	rec := h.state.Insert(req.ReceiverID, domain.Category(req.Category), req.Content, req.TargetURL)
	h.hub.Broadcast(rec)

	log.Info().Int64("id", rec.ID).Int64("receiver", rec.ReceiverID).Msg("notification injected")
	return ok(c, rec)
}

// --- Push handlers ---

// Stream GET /notifications/stream — SSE endpoint
func (h *Handler) Stream(c echo.Context) error {
	receiver, err := receiverFromRequest(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, err.Error())
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sendCh := make(chan []byte, 32)
	client := h.hub.Register(receiver, sendCh)
	defer h.hub.Unregister(client)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"ok\"}\n\n")
	w.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case payload, open := <-sendCh:
			if !open {
				return nil
			}
			if _, err := fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload); err != nil {
				return nil
			}
			w.Flush()

		case <-ctx.Done():
			log.Debug().Int64("receiver", receiver).Msg("SSE stream closed by client")
			return nil
		}
	}
}

// WS GET /notifications/ws — WebSocket mirror of the SSE stream; each
// record is one text message carrying the same JSON payload.
func (h *Handler) WS(c echo.Context) error {
	receiver, err := receiverFromRequest(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, err.Error())
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil // upgrader already wrote the response
	}
	defer conn.Close()

	sendCh := make(chan []byte, 32)
	client := h.hub.Register(receiver, sendCh)
	defer h.hub.Unregister(client)

	// Drain (and discard) client frames so pings are answered and
	// closes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload, open := <-sendCh:
			if !open {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"push_clients": h.hub.ConnectedCount(),
	})
}

// --- helpers ---

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, map[string]any{"success": true, "data": data})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"success": false, "error": msg})
}

// receiverFromRequest derives the receiver id from the bearer token.
// The harness accepts a plain integer, a JWT with an integer sub
// claim, or (for quick manual testing) any other opaque token, which
// maps to receiver 1.
func receiverFromRequest(c echo.Context) (int64, error) {
	auth := c.Request().Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		// SSE via browser EventSource cannot set headers.
		token = c.QueryParam("token")
	}
	if token == "" {
		return 0, fmt.Errorf("missing bearer token")
	}

	if id, err := strconv.ParseInt(token, 10, 64); err == nil {
		return id, nil
	}

	if parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{}); err == nil {
		if sub, err := parsed.Claims.GetSubject(); err == nil {
			if id, err := strconv.ParseInt(sub, 10, 64); err == nil {
				return id, nil
			}
		}
	}

	return 1, nil
}

func parseIntQuery(c echo.Context, key string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}
