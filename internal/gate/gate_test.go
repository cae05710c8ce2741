package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homepoint/crm-notify/internal/domain"
	"github.com/homepoint/crm-notify/internal/gate"
)

type fakeDesktop struct {
	granted bool
	raises  []string
}

func (f *fakeDesktop) Granted() bool { return f.granted }

func (f *fakeDesktop) Raise(tag string, _ domain.Category, _ string) {
	f.raises = append(f.raises, tag)
}

func TestDeliverWhileActivePassesThrough(t *testing.T) {
	var delivered [][]byte
	g := gate.New(func(raw []byte) { delivered = append(delivered, raw) }, nil, nil)
	g.SetActive(true)

	g.Deliver([]byte(`{"id":1}`))

	require.Len(t, delivered, 1)
	assert.Equal(t, 0, g.Pending())
}

func TestBufferOrderPreservedOnActivation(t *testing.T) {
	var delivered []string
	g := gate.New(func(raw []byte) { delivered = append(delivered, string(raw)) }, nil, nil)

	e1, e2, e3 := `{"id":1}`, `{"id":2}`, `{"id":3}`
	g.Deliver([]byte(e1))
	g.Deliver([]byte(e2))
	g.Deliver([]byte(e3))

	require.Empty(t, delivered)
	require.Equal(t, 3, g.Pending())

	g.SetActive(true)

	assert.Equal(t, []string{e1, e2, e3}, delivered)
	assert.Equal(t, 0, g.Pending())
}

func TestActivationRunsReconcileAfterFlush(t *testing.T) {
	var order []string
	g := gate.New(
		func([]byte) { order = append(order, "deliver") },
		func() { order = append(order, "reconcile") },
		nil,
	)

	g.Deliver([]byte(`{"id":1}`))
	g.SetActive(true)

	require.Equal(t, []string{"deliver", "reconcile"}, order)

	// Same-state transition must not reconcile again.
	g.SetActive(true)
	assert.Equal(t, []string{"deliver", "reconcile"}, order)
}

func TestInactiveDeliveryRaisesDesktopNotificationOnce(t *testing.T) {
	desktop := &fakeDesktop{granted: true}
	g := gate.New(func([]byte) {}, nil, desktop)

	g.Deliver([]byte(`{"id":42,"type":"INFO","content":"hello"}`))
	// Redelivered frame carries the same tag; the sink collapses it,
	// but the gate still hands it over.
	g.Deliver([]byte(`{"id":42,"type":"INFO","content":"hello"}`))

	assert.Equal(t, []string{"crm-notify-42", "crm-notify-42"}, desktop.raises)
}

func TestInactiveDeliverySkipsDesktopWithoutPermission(t *testing.T) {
	desktop := &fakeDesktop{granted: false}
	g := gate.New(func([]byte) {}, nil, desktop)

	g.Deliver([]byte(`{"id":1,"content":"x"}`))

	assert.Empty(t, desktop.raises)
	assert.Equal(t, 1, g.Pending())
}

func TestDeactivationKeepsBuffering(t *testing.T) {
	var delivered int
	g := gate.New(func([]byte) { delivered++ }, nil, nil)
	g.SetActive(true)
	g.SetActive(false)

	g.Deliver([]byte(`{"id":1}`))

	assert.Equal(t, 0, delivered)
	assert.Equal(t, 1, g.Pending())
}
