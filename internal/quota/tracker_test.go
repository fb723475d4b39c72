package quota

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// fakeLedger is an in-memory Ledger for tracker tests.
type fakeLedger struct {
	quotas map[string]model.ProviderQuota
}

func newFakeLedger(quotas ...model.ProviderQuota) *fakeLedger {
	m := make(map[string]model.ProviderQuota, len(quotas))
	for _, q := range quotas {
		m[q.Provider] = q
	}
	return &fakeLedger{quotas: m}
}

func (f *fakeLedger) ListQuotas(_ context.Context) ([]model.ProviderQuota, error) {
	out := make([]model.ProviderQuota, 0, len(f.quotas))
	for _, q := range f.quotas {
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeLedger) GetQuota(_ context.Context, provider string) (*model.ProviderQuota, error) {
	q, ok := f.quotas[provider]
	if !ok {
		return nil, eris.Wrapf(store.ErrNotFound, "fake: quota %s", provider)
	}
	return &q, nil
}

func (f *fakeLedger) SetUsage(_ context.Context, provider string, used int, periodStart time.Time) error {
	q, ok := f.quotas[provider]
	if !ok {
		return eris.Wrapf(store.ErrNotFound, "fake: quota %s", provider)
	}
	q.UsedCount = used
	q.PeriodStart = periodStart
	f.quotas[provider] = q
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
}

func dailyQuota(provider string, limit, used int, start time.Time) model.ProviderQuota {
	return model.ProviderQuota{
		Provider:       provider,
		LimitValue:     limit,
		UsedCount:      used,
		PeriodStart:    start,
		PeriodDuration: 24 * time.Hour,
		LimitType:      model.LimitDaily,
	}
}

func TestCheckAvailability(t *testing.T) {
	now := fixedNow()
	ledger := newFakeLedger(
		dailyQuota("places", 1000, 100, now.Add(-time.Hour)),
		dailyQuota("yelp", 500, 500, now.Add(-time.Hour)),
		dailyQuota("foursquare", 950, 0, now.Add(-time.Hour)),
	)
	tr := NewTracker(ledger).WithNow(func() time.Time { return now })

	av, err := tr.CheckAvailability(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"foursquare", "places"}, av.Available)
	assert.Equal(t, []string{"yelp"}, av.Unavailable)
	assert.Equal(t, Remaining{Available: 900, Total: 1000}, av.Limits["places"])
	assert.Equal(t, Remaining{Available: 0, Total: 500}, av.Limits["yelp"])
	assert.Contains(t, av.HumanStatus, "2/3 providers available")
	assert.Contains(t, av.HumanStatus, "yelp exhausted")
}

func TestCheckAvailability_ElapsedPeriodCountsAsReset(t *testing.T) {
	now := fixedNow()
	// Period started two days ago: usage counts as zero without persisting.
	ledger := newFakeLedger(dailyQuota("places", 100, 100, now.Add(-48*time.Hour)))
	tr := NewTracker(ledger).WithNow(func() time.Time { return now })

	av, err := tr.CheckAvailability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"places"}, av.Available)
	assert.Equal(t, 100, av.Limits["places"].Available)

	// Read has no side effects on the ledger.
	stored, _ := ledger.GetQuota(context.Background(), "places")
	assert.Equal(t, 100, stored.UsedCount)
}

func TestRecordUsage_Increment(t *testing.T) {
	now := fixedNow()
	ledger := newFakeLedger(dailyQuota("places", 1000, 40, now.Add(-time.Hour)))
	tr := NewTracker(ledger).WithNow(func() time.Time { return now })

	require.NoError(t, tr.RecordUsage(context.Background(), "places", 5, Increment))

	got, _ := ledger.GetQuota(context.Background(), "places")
	assert.Equal(t, 45, got.UsedCount)
}

func TestRecordUsage_IncrementAfterPeriodElapsed(t *testing.T) {
	now := fixedNow()
	ledger := newFakeLedger(dailyQuota("places", 1000, 900, now.Add(-48*time.Hour)))
	tr := NewTracker(ledger).WithNow(func() time.Time { return now })

	require.NoError(t, tr.RecordUsage(context.Background(), "places", 5, Increment))

	got, _ := ledger.GetQuota(context.Background(), "places")
	assert.Equal(t, 5, got.UsedCount, "counter restarts after an elapsed period")
	assert.True(t, got.PeriodStart.Equal(now), "period restarts at now")
}

func TestRecordUsage_Absolute(t *testing.T) {
	now := fixedNow()
	ledger := newFakeLedger(dailyQuota("yelp", 500, 40, now.Add(-time.Hour)))
	tr := NewTracker(ledger).WithNow(func() time.Time { return now })

	require.NoError(t, tr.RecordUsage(context.Background(), "yelp", 7, Absolute))

	got, _ := ledger.GetQuota(context.Background(), "yelp")
	assert.Equal(t, 7, got.UsedCount)
}

func TestRecordUsage_MissingProvider(t *testing.T) {
	tr := NewTracker(newFakeLedger())
	err := tr.RecordUsage(context.Background(), "ghost", 1, Increment)
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrNotFound))
}

func TestAvailability_MonotonicWithinPeriod(t *testing.T) {
	now := fixedNow()
	ledger := newFakeLedger(dailyQuota("places", 100, 0, now.Add(-time.Hour)))
	tr := NewTracker(ledger).WithNow(func() time.Time { return now })

	prev := 101
	for i := 0; i < 5; i++ {
		require.NoError(t, tr.RecordUsage(context.Background(), "places", 10, Increment))
		av, err := tr.CheckAvailability(context.Background())
		require.NoError(t, err)
		cur := av.Limits["places"].Available
		assert.Less(t, cur, prev, "available must be non-increasing within a period")
		prev = cur
	}
}
