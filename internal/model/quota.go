package model

import "time"

// LimitType is the quota window kind for a provider.
type LimitType string

const (
	LimitDaily   LimitType = "daily"
	LimitMonthly LimitType = "monthly"
)

// ProviderQuota is one row of the usage ledger: a provider's call budget
// over a fixed period. The period is considered elapsed once now crosses
// PeriodStart + PeriodDuration; usage then counts as zero until the
// reset is persisted.
type ProviderQuota struct {
	Provider       string        `json:"provider"`
	LimitValue     int           `json:"limit_value"`
	UsedCount      int           `json:"used_count"`
	PeriodStart    time.Time     `json:"period_start"`
	PeriodDuration time.Duration `json:"period_duration"`
	LimitType      LimitType     `json:"limit_type"`
}

// PeriodElapsed reports whether the current usage period has rolled over.
func (q ProviderQuota) PeriodElapsed(now time.Time) bool {
	return !now.Before(q.PeriodStart.Add(q.PeriodDuration))
}

// EffectiveUsed returns the usage count after accounting for an elapsed
// period, without persisting the reset.
func (q ProviderQuota) EffectiveUsed(now time.Time) int {
	if q.PeriodElapsed(now) {
		return 0
	}
	return q.UsedCount
}

// Available returns the remaining call budget, never negative.
func (q ProviderQuota) Available(now time.Time) int {
	avail := q.LimitValue - q.EffectiveUsed(now)
	if avail < 0 {
		return 0
	}
	return avail
}
