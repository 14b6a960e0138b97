package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Store defines the datastore reads the limiter needs.
type Store interface {
	// AgencyTier returns the agency's subscription tier name.
	AgencyTier(ctx context.Context, agencyID string) (string, error)

	// CountDocumentsCreatedSince counts documents the agency created at or
	// after the given instant.
	CountDocumentsCreatedSince(ctx context.Context, agencyID string, since time.Time) (int, error)

	// CountProcessingJobs counts the agency's jobs currently in processing
	// status.
	CountProcessingJobs(ctx context.Context, agencyID string) (int, error)
}

// UploadRateLimit is the result of an upload quota check.
type UploadRateLimit struct {
	Allowed        bool   `json:"allowed"`
	Remaining      int    `json:"remaining"`
	Limit          int    `json:"limit"`
	ResetInSeconds int    `json:"reset_in_seconds"`
	Tier           string `json:"tier"`
}

// ProcessingRateLimit is the result of a concurrent-processing check.
type ProcessingRateLimit struct {
	Allowed           bool   `json:"allowed"`
	CurrentProcessing int    `json:"current_processing"`
	MaxConcurrent     int    `json:"max_concurrent"`
	Tier              string `json:"tier"`
}

// Limiter computes per-agency, per-tier rate limits. Limit checks are a
// secondary safeguard, not a billing control: any datastore error fails
// open with the fallback limits so an outage never blocks uploads.
type Limiter struct {
	store  Store
	tiers  *TierTable
	logger *slog.Logger
	now    func() time.Time
}

// NewLimiter creates a new Limiter instance
func NewLimiter(store Store, tiers *TierTable, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		tiers:  tiers,
		logger: logger,
		now:    time.Now,
	}
}

// CheckUploadRateLimit counts documents created in the trailing 60 minutes
// against the tier's hourly upload limit. ResetInSeconds is the time to the
// next top-of-hour boundary: a display hint, not the sliding-window reset.
func (l *Limiter) CheckUploadRateLimit(ctx context.Context, agencyID string) *UploadRateLimit {
	now := l.now()

	tier, err := l.store.AgencyTier(ctx, agencyID)
	if err != nil {
		l.logger.Warn("Rate limit check failed, failing open",
			slog.String("agency_id", agencyID),
			slog.String("error", err.Error()),
		)
		return l.uploadFailOpen(now)
	}

	limits := l.tiers.Limits(tier)

	count, err := l.store.CountDocumentsCreatedSince(ctx, agencyID, now.Add(-time.Hour))
	if err != nil {
		l.logger.Warn("Upload count query failed, failing open",
			slog.String("agency_id", agencyID),
			slog.String("error", err.Error()),
		)
		return l.uploadFailOpen(now)
	}

	remaining := limits.UploadsPerHour - count
	if remaining < 0 {
		remaining = 0
	}

	return &UploadRateLimit{
		Allowed:        count < limits.UploadsPerHour,
		Remaining:      remaining,
		Limit:          limits.UploadsPerHour,
		ResetInSeconds: secondsToNextHour(now),
		Tier:           tier,
	}
}

// CheckProcessingRateLimit compares the agency's processing job count
// against the tier's concurrency ceiling.
func (l *Limiter) CheckProcessingRateLimit(ctx context.Context, agencyID string) *ProcessingRateLimit {
	tier, err := l.store.AgencyTier(ctx, agencyID)
	if err != nil {
		l.logger.Warn("Rate limit check failed, failing open",
			slog.String("agency_id", agencyID),
			slog.String("error", err.Error()),
		)
		return l.processingFailOpen()
	}

	limits := l.tiers.Limits(tier)

	current, err := l.store.CountProcessingJobs(ctx, agencyID)
	if err != nil {
		l.logger.Warn("Processing count query failed, failing open",
			slog.String("agency_id", agencyID),
			slog.String("error", err.Error()),
		)
		return l.processingFailOpen()
	}

	return &ProcessingRateLimit{
		Allowed:           current < limits.MaxConcurrentProcessing,
		CurrentProcessing: current,
		MaxConcurrent:     limits.MaxConcurrentProcessing,
		Tier:              tier,
	}
}

func (l *Limiter) uploadFailOpen(now time.Time) *UploadRateLimit {
	fallback := l.tiers.Limits("")
	return &UploadRateLimit{
		Allowed:        true,
		Remaining:      fallback.UploadsPerHour,
		Limit:          fallback.UploadsPerHour,
		ResetInSeconds: secondsToNextHour(now),
		Tier:           TierFree,
	}
}

func (l *Limiter) processingFailOpen() *ProcessingRateLimit {
	fallback := l.tiers.Limits("")
	return &ProcessingRateLimit{
		Allowed:       true,
		MaxConcurrent: fallback.MaxConcurrentProcessing,
		Tier:          TierFree,
	}
}

func secondsToNextHour(now time.Time) int {
	next := now.Truncate(time.Hour).Add(time.Hour)
	return int(next.Sub(now).Seconds())
}
