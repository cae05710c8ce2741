package fanout_test

import (
	"testing"

	"github.com/homepoint/crm-notify/internal/domain"
	"github.com/homepoint/crm-notify/internal/fanout"
	"github.com/homepoint/crm-notify/internal/sink"
	"github.com/homepoint/crm-notify/internal/store"
)

type recordingDesktop struct {
	raises []string
}

func (r *recordingDesktop) Granted() bool { return true }

func (r *recordingDesktop) Raise(tag string, _ domain.Category, _ string) {
	r.raises = append(r.raises, tag)
}

func TestDispatchNewEvent(t *testing.T) {
	s := store.New(nil)
	toasts := sink.NewToastSink(4)
	desktop := &recordingDesktop{}
	d := fanout.New(s, toasts, desktop)

	s.Ingest(domain.Record{ID: 1, Content: "old"})

	d.Dispatch([]byte(`{"id":2,"type":"SUCCESS","content":"new","isRead":false}`))

	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].ID != 2 {
		t.Fatalf("expected record 2 prepended, got %+v", snap)
	}
	if s.UnreadCount() != 2 {
		t.Errorf("expected unread count 2, got %d", s.UnreadCount())
	}

	select {
	case toast := <-toasts.Toasts():
		if toast.Content != "new" || toast.Category != domain.CategorySuccess {
			t.Errorf("unexpected toast: %+v", toast)
		}
	default:
		t.Fatal("expected one toast")
	}

	if len(desktop.raises) != 1 || desktop.raises[0] != "crm-notify-2" {
		t.Errorf("unexpected desktop raises: %v", desktop.raises)
	}
}

func TestDispatchDuplicateIsSilentlyDiscarded(t *testing.T) {
	s := store.New(nil)
	toasts := sink.NewToastSink(4)
	d := fanout.New(s, toasts, nil)

	frame := []byte(`{"id":5,"type":"INFO","content":"once"}`)
	d.Dispatch(frame)
	d.Dispatch(frame)

	if s.Len() != 1 {
		t.Fatalf("expected exactly one record, got %d", s.Len())
	}
	if got := len(toasts.Toasts()); got != 1 {
		t.Errorf("expected exactly one toast, got %d", got)
	}
}

func TestDispatchMalformedFrameIsDropped(t *testing.T) {
	s := store.New(nil)
	d := fanout.New(s, nil, nil)

	d.Dispatch([]byte(`not json at all`))
	d.Dispatch([]byte(`{"content":"no id"}`))

	if s.Len() != 0 {
		t.Fatalf("malformed frames must not reach the store, got %d records", s.Len())
	}
}

func TestParseNormalizesUnknownCategory(t *testing.T) {
	rec, ok := fanout.Parse([]byte(`{"id":9,"type":"SHINY_NEW","content":"x"}`))
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if rec.Category != domain.CategoryInfo {
		t.Errorf("expected unknown category to normalize to INFO, got %s", rec.Category)
	}
}
