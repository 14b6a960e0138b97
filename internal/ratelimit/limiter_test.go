package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	tier            string
	tierErr         error
	recentDocuments int
	documentsErr    error
	processing      int
	processingErr   error
}

func (f *fakeStore) AgencyTier(context.Context, string) (string, error) {
	return f.tier, f.tierErr
}

func (f *fakeStore) CountDocumentsCreatedSince(context.Context, string, time.Time) (int, error) {
	return f.recentDocuments, f.documentsErr
}

func (f *fakeStore) CountProcessingJobs(context.Context, string) (int, error) {
	return f.processing, f.processingErr
}

func newLimiter(store Store) *Limiter {
	return NewLimiter(store, NewTierTable(nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCheckUploadRateLimit(t *testing.T) {
	tests := []struct {
		name          string
		store         *fakeStore
		wantAllowed   bool
		wantRemaining int
		wantLimit     int
		wantTier      string
	}{
		{
			name:          "free tier under limit",
			store:         &fakeStore{tier: TierFree, recentDocuments: 3},
			wantAllowed:   true,
			wantRemaining: 7,
			wantLimit:     10,
			wantTier:      TierFree,
		},
		{
			name:          "tenth upload in the hour is the last allowed",
			store:         &fakeStore{tier: TierFree, recentDocuments: 9},
			wantAllowed:   true,
			wantRemaining: 1,
			wantLimit:     10,
			wantTier:      TierFree,
		},
		{
			name:          "eleventh upload within rolling hour is rejected",
			store:         &fakeStore{tier: TierFree, recentDocuments: 10},
			wantAllowed:   false,
			wantRemaining: 0,
			wantLimit:     10,
			wantTier:      TierFree,
		},
		{
			name:          "enterprise tier",
			store:         &fakeStore{tier: TierEnterprise, recentDocuments: 999},
			wantAllowed:   true,
			wantRemaining: 1,
			wantLimit:     1000,
			wantTier:      TierEnterprise,
		},
		{
			name:          "unrecognized tier falls back to free limits",
			store:         &fakeStore{tier: "legacy-gold", recentDocuments: 10},
			wantAllowed:   false,
			wantRemaining: 0,
			wantLimit:     10,
			wantTier:      "legacy-gold",
		},
		{
			name:          "tier lookup error fails open",
			store:         &fakeStore{tierErr: errors.New("connection refused")},
			wantAllowed:   true,
			wantRemaining: 10,
			wantLimit:     10,
			wantTier:      TierFree,
		},
		{
			name:          "count query error fails open",
			store:         &fakeStore{tier: TierPro, documentsErr: errors.New("timeout")},
			wantAllowed:   true,
			wantRemaining: 10,
			wantLimit:     10,
			wantTier:      TierFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newLimiter(tt.store).CheckUploadRateLimit(context.Background(), "agency-1")

			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.wantRemaining, result.Remaining)
			assert.Equal(t, tt.wantLimit, result.Limit)
			assert.Equal(t, tt.wantTier, result.Tier)
			assert.Greater(t, result.ResetInSeconds, 0)
			assert.LessOrEqual(t, result.ResetInSeconds, 3600)
		})
	}
}

func TestCheckUploadRateLimitResetBoundary(t *testing.T) {
	limiter := newLimiter(&fakeStore{tier: TierFree})
	limiter.now = func() time.Time {
		return time.Date(2025, time.March, 4, 10, 40, 0, 0, time.UTC)
	}

	result := limiter.CheckUploadRateLimit(context.Background(), "agency-1")

	// Reset points at the next top-of-hour, not the sliding-window expiry.
	assert.Equal(t, 20*60, result.ResetInSeconds)
}

func TestCheckProcessingRateLimit(t *testing.T) {
	tests := []struct {
		name        string
		store       *fakeStore
		wantAllowed bool
		wantCurrent int
		wantMax     int
		wantTier    string
	}{
		{
			name:        "free tier idle agency may start",
			store:       &fakeStore{tier: TierFree, processing: 0},
			wantAllowed: true,
			wantMax:     1,
			wantTier:    TierFree,
		},
		{
			name:        "free tier at concurrency ceiling",
			store:       &fakeStore{tier: TierFree, processing: 1},
			wantAllowed: false,
			wantCurrent: 1,
			wantMax:     1,
			wantTier:    TierFree,
		},
		{
			name:        "pro tier below ceiling",
			store:       &fakeStore{tier: TierPro, processing: 2},
			wantAllowed: true,
			wantCurrent: 2,
			wantMax:     3,
			wantTier:    TierPro,
		},
		{
			name:        "store error fails open",
			store:       &fakeStore{tier: TierPro, processingErr: errors.New("connection reset")},
			wantAllowed: true,
			wantMax:     1,
			wantTier:    TierFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newLimiter(tt.store).CheckProcessingRateLimit(context.Background(), "agency-1")

			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.wantCurrent, result.CurrentProcessing)
			assert.Equal(t, tt.wantMax, result.MaxConcurrent)
			assert.Equal(t, tt.wantTier, result.Tier)
		})
	}
}

func TestTierTableOverrides(t *testing.T) {
	table := NewTierTable(map[string]TierLimits{
		TierStarter: {UploadsPerHour: 75, MaxConcurrentProcessing: 2},
		"trial":     {UploadsPerHour: 5, MaxConcurrentProcessing: 1},
	})

	assert.Equal(t, 75, table.Limits(TierStarter).UploadsPerHour)
	assert.Equal(t, 5, table.Limits("trial").UploadsPerHour)
	assert.Equal(t, 200, table.Limits(TierPro).UploadsPerHour)
	assert.Equal(t, 10, table.Limits("unknown").UploadsPerHour)
}
