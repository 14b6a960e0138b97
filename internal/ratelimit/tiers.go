package ratelimit

// TierLimits holds the static limits for one subscription tier.
type TierLimits struct {
	UploadsPerHour          int `yaml:"uploads_per_hour"`
	MaxConcurrentProcessing int `yaml:"max_concurrent_processing"`
}

// Subscription tier names
const (
	TierFree       = "free"
	TierStarter    = "starter"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// defaultTiers is the compiled-in tier table. Unrecognized tiers fall back
// to the free limits.
func defaultTiers() map[string]TierLimits {
	return map[string]TierLimits{
		TierFree:       {UploadsPerHour: 10, MaxConcurrentProcessing: 1},
		TierStarter:    {UploadsPerHour: 50, MaxConcurrentProcessing: 2},
		TierPro:        {UploadsPerHour: 200, MaxConcurrentProcessing: 3},
		TierEnterprise: {UploadsPerHour: 1000, MaxConcurrentProcessing: 5},
	}
}

// TierTable resolves tier names to limits with a defined fallback entry.
type TierTable struct {
	tiers    map[string]TierLimits
	fallback TierLimits
}

// NewTierTable builds a tier table from the compiled-in defaults, with
// overrides applied on top. Tier logic lives here, never inline at call
// sites.
func NewTierTable(overrides map[string]TierLimits) *TierTable {
	tiers := defaultTiers()
	for name, limits := range overrides {
		tiers[name] = limits
	}
	return &TierTable{
		tiers:    tiers,
		fallback: tiers[TierFree],
	}
}

// Limits returns the limits for the tier, or the fallback entry for
// unrecognized names.
func (t *TierTable) Limits(tier string) TierLimits {
	if limits, ok := t.tiers[tier]; ok {
		return limits
	}
	return t.fallback
}
