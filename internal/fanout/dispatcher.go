// Package fanout routes one inbound push event to every interested
// sink: the store, the toast surface, and the desktop surface. A
// malformed frame is dropped and logged; a duplicate id is discarded
// silently. Nothing here panics into a consumer.
package fanout

import (
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/domain"
	"github.com/homepoint/crm-notify/internal/sink"
)

// Ingester is the store-facing port: an idempotent head insert that
// reports whether the record was new.
type Ingester interface {
	Ingest(rec domain.Record) bool
}

// ToastEmitter is the toast-facing port.
type ToastEmitter interface {
	Emit(toast sink.Toast)
}

// Dispatcher fans a raw frame out to the registered sinks.
// Nil toast and desktop sinks are skipped.
type Dispatcher struct {
	store   Ingester
	toast   ToastEmitter
	desktop sink.Desktop
}

// New creates a Dispatcher.
func New(store Ingester, toast ToastEmitter, desktop sink.Desktop) *Dispatcher {
	return &Dispatcher{store: store, toast: toast, desktop: desktop}
}

// Dispatch processes one raw inbound frame, whether delivered live or
// released from the pending buffer.
func (d *Dispatcher) Dispatch(raw []byte) {
	rec, ok := Parse(raw)
	if !ok {
		return
	}

	if !d.store.Ingest(rec) {
		// Already known, a redelivery or reconciliation overlap.
		return
	}

	if d.toast != nil {
		d.toast.Emit(sink.Toast{
			Category:  rec.Category,
			Content:   rec.Content,
			TargetURL: rec.TargetURL,
			CreatedAt: rec.CreatedAt,
		})
	}

	if d.desktop != nil && d.desktop.Granted() {
		d.desktop.Raise(Tag(rec.ID), rec.Category, rec.Content)
	}
}

// Parse decodes a push frame into a Record. A frame that is not valid
// JSON or carries no id is malformed: it is logged and dropped, never
// propagated.
func Parse(raw []byte) (domain.Record, bool) {
	var rec domain.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Error().Err(err).Msg("dropping malformed push frame")
		return domain.Record{}, false
	}
	if rec.ID == 0 {
		log.Error().RawJSON("frame", raw).Msg("dropping push frame without id")
		return domain.Record{}, false
	}
	rec.Category = rec.Category.Normalize()
	return rec, true
}

// Tag derives the desktop notification tag from a record id, so the
// same event never raises two native notifications.
func Tag(id int64) string {
	return "crm-notify-" + strconv.FormatInt(id, 10)
}
