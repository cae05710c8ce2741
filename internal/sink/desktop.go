package sink

import (
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/domain"
)

// Desktop is the native notification surface. Permission denial is a
// no-op degradation, never an error: callers check Granted and skip.
type Desktop interface {
	Granted() bool
	// Raise shows one native notification. Raises sharing a tag are
	// collapsed to a single notification.
	Raise(tag string, category domain.Category, body string)
}

// NotifySend raises desktop notifications by shelling out to
// notify-send, the portable choice on Linux desktops.
type NotifySend struct {
	enabled bool

	lookup sync.Once
	path   string

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewNotifySend creates the sink. When enabled is false, or notify-send
// is not on PATH, Granted reports false and Raise does nothing.
func NewNotifySend(enabled bool) *NotifySend {
	return &NotifySend{enabled: enabled, seen: make(map[string]struct{})}
}

// Granted implements Desktop.
func (n *NotifySend) Granted() bool {
	if !n.enabled {
		return false
	}
	n.lookup.Do(func() {
		path, err := exec.LookPath("notify-send")
		if err != nil {
			log.Debug().Msg("notify-send not found, desktop notifications disabled")
			return
		}
		n.path = path
	})
	return n.path != ""
}

// Raise implements Desktop. The tag deduplicates: raising the same tag
// twice shows one notification, mirroring how browsers collapse tagged
// notifications.
func (n *NotifySend) Raise(tag string, category domain.Category, body string) {
	if !n.Granted() {
		return
	}

	n.mu.Lock()
	if _, dup := n.seen[tag]; dup {
		n.mu.Unlock()
		return
	}
	n.seen[tag] = struct{}{}
	n.mu.Unlock()

	cmd := exec.Command(n.path,
		"--app-name", "HomePoint CRM",
		"--urgency", urgency(category),
		title(category), body,
	)
	go func() {
		if err := cmd.Run(); err != nil {
			log.Debug().Err(err).Msg("notify-send failed")
		}
	}()
}

func urgency(c domain.Category) string {
	switch c {
	case domain.CategoryError:
		return "critical"
	case domain.CategoryWarning:
		return "normal"
	default:
		return "low"
	}
}

func title(c domain.Category) string {
	switch c {
	case domain.CategorySuccess:
		return "Success"
	case domain.CategoryWarning:
		return "Warning"
	case domain.CategoryError:
		return "Error"
	default:
		return "Notification"
	}
}

var _ Desktop = (*NotifySend)(nil)
