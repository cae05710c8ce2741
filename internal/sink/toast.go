// Package sink holds the delivery endpoints fed by the fan-out: the
// in-app toast surface and the native desktop notification surface.
package sink

import (
	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/domain"
)

// Toast is one ephemeral in-app notification.
type Toast struct {
	Category  domain.Category
	Content   string
	TargetURL string
	CreatedAt string
}

// ToastSink hands toasts to a consumer over a buffered channel.
// Emission never blocks: a slow or absent consumer drops the toast.
type ToastSink struct {
	ch chan Toast
}

// NewToastSink creates a sink with the given channel buffer.
func NewToastSink(buffer int) *ToastSink {
	if buffer <= 0 {
		buffer = 32
	}
	return &ToastSink{ch: make(chan Toast, buffer)}
}

// Emit delivers one toast, dropping it if the consumer lags.
func (t *ToastSink) Emit(toast Toast) {
	select {
	case t.ch <- toast:
	default:
		log.Warn().Str("content", toast.Content).Msg("toast consumer lagging, dropping toast")
	}
}

// Toasts is the consumer side of the sink.
func (t *ToastSink) Toasts() <-chan Toast {
	return t.ch
}
