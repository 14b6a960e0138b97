package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samruben96/documine-sub011/internal/model"
)

func drain(ch <-chan Notification) []Notification {
	var out []Notification
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestPollerReconcileEmitsOnStatusChange(t *testing.T) {
	hub := NewHub(testLogger())
	notifier := newTestNotifier(5 * time.Minute)
	poller := NewPoller(nil, hub, notifier, time.Second, 3, testLogger())

	ch, cancel := hub.Subscribe("agency-1")
	defer cancel()

	base := time.Now()
	doc := model.Document{ID: "doc-1", AgencyID: "agency-1", Filename: "policy.pdf", Status: "processing", UpdatedAt: base}

	// First observation establishes the baseline, no notification.
	poller.reconcile("agency-1", []model.Document{doc})
	assert.Empty(t, drain(ch))

	// Status change with a newer updated_at notifies.
	doc.Status = "ready"
	doc.UpdatedAt = base.Add(time.Second)
	poller.reconcile("agency-1", []model.Document{doc})

	got := drain(ch)
	require.Len(t, got, 1)
	assert.Equal(t, NotificationSuccess, got[0].Type)
	assert.Equal(t, "doc-1", got[0].DocumentID)
}

func TestPollerReconcileIgnoresStaleRows(t *testing.T) {
	hub := NewHub(testLogger())
	notifier := newTestNotifier(5 * time.Minute)
	poller := NewPoller(nil, hub, notifier, time.Second, 3, testLogger())

	ch, cancel := hub.Subscribe("agency-1")
	defer cancel()

	base := time.Now()
	poller.reconcile("agency-1", []model.Document{
		{ID: "doc-1", Status: "ready", UpdatedAt: base},
	})
	drain(ch)

	// A poll result older than the last seen write must not regress state
	// or emit anything.
	poller.reconcile("agency-1", []model.Document{
		{ID: "doc-1", Status: "processing", UpdatedAt: base.Add(-time.Minute)},
	})
	assert.Empty(t, drain(ch))

	snapshot := poller.seen["agency-1"]["doc-1"]
	assert.Equal(t, "ready", snapshot.status)
}

func TestHubFanOutAndUnsubscribe(t *testing.T) {
	hub := NewHub(testLogger())

	chA, cancelA := hub.Subscribe("agency-1")
	chB, cancelB := hub.Subscribe("agency-1")
	chOther, cancelOther := hub.Subscribe("agency-2")
	defer cancelB()
	defer cancelOther()

	hub.Publish("agency-1", Notification{DocumentID: "doc-1"})

	assert.Len(t, drain(chA), 1)
	assert.Len(t, drain(chB), 1)
	assert.Empty(t, drain(chOther))

	assert.ElementsMatch(t, []string{"agency-1", "agency-2"}, hub.ActiveAgencies())

	cancelA()
	hub.Publish("agency-1", Notification{DocumentID: "doc-2"})
	assert.Len(t, drain(chB), 1)
}
