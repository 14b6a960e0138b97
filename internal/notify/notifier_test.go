package notify

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestNotifier(cooldown time.Duration) *Notifier {
	return NewNotifier(NewDeduper(cooldown), 4*time.Second, testLogger())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"docling: corrupt xref table at offset 8812", CategoryCorruptFile},
		{"Invalid PDF header", CategoryCorruptFile},
		{"unsupported file type .pages", CategoryUnsupportedFormat},
		{"request payload too large", CategoryTooLarge},
		{"context deadline exceeded", CategoryTimeout},
		{"parse request timed out after 120s", CategoryTimeout},
		{"dial tcp 10.0.0.4:8080: connection refused", CategoryParserUnavailable},
		{"upstream returned 503", CategoryParserUnavailable},
		{"segfault in table model", CategoryUnknown},
		{"", CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}

func TestUserMessageNeverTechnical(t *testing.T) {
	for _, category := range []string{
		CategoryCorruptFile, CategoryUnsupportedFormat, CategoryTooLarge,
		CategoryTimeout, CategoryParserUnavailable, CategoryUnknown, "bogus",
	} {
		message, action := UserMessage(category)
		assert.NotEmpty(t, message)
		assert.NotEmpty(t, action)
		assert.NotContains(t, message, "docling")
		assert.NotContains(t, message, "error")
	}
}

func TestNotificationForSuccessTransition(t *testing.T) {
	notifier := newTestNotifier(5 * time.Minute)

	notification := notifier.NotificationFor(JobEvent{
		DocumentID: "doc-1",
		Filename:   "policy.pdf",
		OldStatus:  "processing",
		NewStatus:  "ready",
	})

	require.NotNil(t, notification)
	assert.Equal(t, NotificationSuccess, notification.Type)
	assert.Contains(t, notification.Message, "policy.pdf")
	assert.Equal(t, int64(4000), notification.DismissAfterMS)
}

func TestNotificationForIgnoresNonTransitions(t *testing.T) {
	notifier := newTestNotifier(5 * time.Minute)

	tests := []struct {
		name string
		ev   JobEvent
	}{
		{name: "ready to ready", ev: JobEvent{OldStatus: "ready", NewStatus: "ready"}},
		{name: "completed to ready", ev: JobEvent{OldStatus: "completed", NewStatus: "ready"}},
		{name: "uploading to processing", ev: JobEvent{OldStatus: "uploading", NewStatus: "processing"}},
		{name: "failed to failed", ev: JobEvent{OldStatus: "failed", NewStatus: "failed"}},
		{name: "failed to pending on retry", ev: JobEvent{OldStatus: "failed", NewStatus: "pending"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, notifier.NotificationFor(tt.ev))
		})
	}
}

func TestNotificationForFailure(t *testing.T) {
	notifier := newTestNotifier(5 * time.Minute)

	notification := notifier.NotificationFor(JobEvent{
		DocumentID:   "doc-1",
		Filename:     "quote.pdf",
		OldStatus:    "processing",
		NewStatus:    "failed",
		ErrorMessage: "docling: corrupt xref table",
	})

	require.NotNil(t, notification)
	assert.Equal(t, NotificationError, notification.Type)
	assert.Equal(t, "This file appears to be damaged and could not be read.", notification.Message)
	assert.Equal(t, "Try re-uploading the document", notification.SuggestedAction)
	assert.NotContains(t, notification.Message, "xref")
}

func TestFailureDedupWithinCooldown(t *testing.T) {
	notifier := newTestNotifier(5 * time.Minute)
	deduper := notifier.dedup

	base := time.Now()
	clock := base
	deduper.now = func() time.Time { return clock }

	fail := JobEvent{DocumentID: "doc-1", OldStatus: "processing", NewStatus: "failed"}

	require.NotNil(t, notifier.NotificationFor(fail), "first failure notifies")

	clock = base.Add(time.Minute)
	assert.Nil(t, notifier.NotificationFor(fail), "repeat within cooldown is suppressed")

	clock = base.Add(6 * time.Minute)
	assert.NotNil(t, notifier.NotificationFor(fail), "failure after cooldown re-alerts")
}

func TestDedupIsPerDocument(t *testing.T) {
	deduper := NewDeduper(5 * time.Minute)

	assert.True(t, deduper.ShouldNotify("doc-1"))
	assert.True(t, deduper.ShouldNotify("doc-2"))
	assert.False(t, deduper.ShouldNotify("doc-1"))
}
