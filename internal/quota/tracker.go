// Package quota tracks per-provider call budgets against a persistent
// usage ledger. Reads are side-effect free; usage updates are advisory
// (last-write-wins is acceptable — this is a soft quota, not billing).
package quota

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Ledger is the persisted quota store the tracker reads and updates.
// Implemented by store.Store; SetUsage must return store.ErrNotFound
// when the provider row is missing.
type Ledger interface {
	ListQuotas(ctx context.Context) ([]model.ProviderQuota, error)
	GetQuota(ctx context.Context, provider string) (*model.ProviderQuota, error)
	SetUsage(ctx context.Context, provider string, used int, periodStart time.Time) error
}

// Mode selects how RecordUsage applies a delta.
type Mode string

const (
	// Increment re-reads current usage and adds the delta.
	Increment Mode = "increment"
	// Absolute overwrites the used count with the delta.
	Absolute Mode = "absolute"
)

// Remaining is a provider's current budget.
type Remaining struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

// Availability is a snapshot of which providers can still be called.
type Availability struct {
	Available   []string             `json:"available"`
	Unavailable []string             `json:"unavailable"`
	Limits      map[string]Remaining `json:"limits"`
	HumanStatus string               `json:"human_status"`
}

// Tracker computes availability from the ledger.
type Tracker struct {
	ledger Ledger
	now    func() time.Time
}

// NewTracker creates a Tracker over the given ledger.
func NewTracker(ledger Ledger) *Tracker {
	return &Tracker{ledger: ledger, now: time.Now}
}

// WithNow fixes the clock for testing.
func (t *Tracker) WithNow(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// CheckAvailability reads the ledger and reports which providers have
// budget left. An elapsed period counts as zero usage for this
// computation; the reset is not persisted here.
func (t *Tracker) CheckAvailability(ctx context.Context) (*Availability, error) {
	quotas, err := t.ledger.ListQuotas(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "quota: list")
	}

	sort.Slice(quotas, func(i, j int) bool { return quotas[i].Provider < quotas[j].Provider })

	now := t.now()
	av := &Availability{Limits: make(map[string]Remaining, len(quotas))}
	var parts []string

	for _, q := range quotas {
		remaining := q.Available(now)
		av.Limits[q.Provider] = Remaining{Available: remaining, Total: q.LimitValue}
		if remaining > 0 {
			av.Available = append(av.Available, q.Provider)
			parts = append(parts, fmt.Sprintf("%s %d/%d", q.Provider, remaining, q.LimitValue))
		} else {
			av.Unavailable = append(av.Unavailable, q.Provider)
			parts = append(parts, fmt.Sprintf("%s exhausted (%s)", q.Provider, q.LimitType))
		}
	}

	sort.Strings(av.Available)
	sort.Strings(av.Unavailable)
	av.HumanStatus = fmt.Sprintf("%d/%d providers available: %s",
		len(av.Available), len(quotas), strings.Join(parts, ", "))
	return av, nil
}

// RecordUsage persists a usage update for one provider. In Increment
// mode the current usage is re-read first; if the usage period has
// elapsed, the counter restarts at the delta with a fresh period.
// A missing ledger row surfaces as the ledger's not-found error —
// callers log and continue, since usage tracking must not fail a job.
func (t *Tracker) RecordUsage(ctx context.Context, provider string, delta int, mode Mode) error {
	q, err := t.ledger.GetQuota(ctx, provider)
	if err != nil {
		return eris.Wrapf(err, "quota: record usage %s", provider)
	}

	now := t.now()
	used := delta
	periodStart := q.PeriodStart

	if q.PeriodElapsed(now) {
		periodStart = now
	} else if mode == Increment {
		used = q.UsedCount + delta
	}

	if err := t.ledger.SetUsage(ctx, provider, used, periodStart); err != nil {
		return eris.Wrapf(err, "quota: record usage %s", provider)
	}
	return nil
}
