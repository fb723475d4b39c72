// Package orchestrator drives multi-round lead scraping across
// providers: quota-aware allocation, parallel per-provider dispatch,
// dedup, enrichment, and retry of transiently failed locations.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/classify"
	"github.com/sells-group/leadgen-cli/internal/dedupe"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/plan"
	"github.com/sells-group/leadgen-cli/internal/provider"
	"github.com/sells-group/leadgen-cli/internal/quota"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// Reason explains why a run stopped. Every reason is a valid outcome
// carrying whatever leads were accumulated; under-target results are
// reportable, not errors.
type Reason string

const (
	ReasonTargetMet          Reason = "target met"
	ReasonProvidersExhausted Reason = "all providers exhausted"
	ReasonLocationsExhausted Reason = "all locations exhausted"
	ReasonNoProgress         Reason = "no progress"
	ReasonBudgetExceeded     Reason = "round or time budget exceeded"
)

// Config bounds a scraping run.
type Config struct {
	// MaxRounds caps allocation rounds. Default: 3.
	MaxRounds int

	// TimeBudget is the wall-clock budget for the whole run, checked
	// cooperatively between dispatches. Default: 14m, leaving margin
	// under a 15m host execution limit.
	TimeBudget time.Duration

	// CallTimeout bounds each provider search call. Default: 30s.
	CallTimeout time.Duration

	// Cooldown is the pause between rounds. Default: 2s.
	Cooldown time.Duration

	// ProviderDelays sets the minimum interval between consecutive
	// calls to the same provider. Providers not listed use
	// DefaultDelay.
	ProviderDelays map[string]time.Duration

	// DefaultDelay is the fallback inter-call interval. Default: 400ms.
	DefaultDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRounds <= 0 {
		c.MaxRounds = 3
	}
	if c.TimeBudget <= 0 {
		c.TimeBudget = 14 * time.Minute
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 2 * time.Second
	}
	if c.DefaultDelay <= 0 {
		c.DefaultDelay = 400 * time.Millisecond
	}
	return c
}

// Request describes one scraping job.
type Request struct {
	Keyword   string
	Locations []string
	Target    int

	// ExistingLeads seed the result set and the dedup keys, so a
	// resumed job never re-collects what it already has.
	ExistingLeads []model.Lead
}

// Result is the outcome of a run.
type Result struct {
	Leads  []model.Lead
	Rounds int
	Reason Reason
}

// TargetMet reports whether the run collected the full target.
func (r *Result) TargetMet() bool { return r.Reason == ReasonTargetMet }

// Orchestrator runs scraping jobs against a provider registry.
type Orchestrator struct {
	cfg      Config
	registry *provider.Registry
	tracker  *quota.Tracker
	enricher enrich.Enricher

	onProgress func(count int)
	onLog      func(text string)

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates an Orchestrator. The enricher may be nil to disable
// contact enrichment.
func New(cfg Config, registry *provider.Registry, tracker *quota.Tracker, enricher enrich.Enricher) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg.withDefaults(),
		registry: registry,
		tracker:  tracker,
		enricher: enricher,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// OnProgress registers a callback invoked with the cumulative lead
// count after each successful location batch.
func (o *Orchestrator) OnProgress(fn func(count int)) *Orchestrator {
	o.onProgress = fn
	return o
}

// OnLog registers a callback mirroring the run's milestone log lines.
func (o *Orchestrator) OnLog(fn func(text string)) *Orchestrator {
	o.onLog = fn
	return o
}

// WithNow fixes the clock for testing.
func (o *Orchestrator) WithNow(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// WithSleep replaces the cooldown sleep for testing.
func (o *Orchestrator) WithSleep(sleep func(ctx context.Context, d time.Duration)) *Orchestrator {
	o.sleep = sleep
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// run carries the state of one orchestration. Mutated only under mu;
// provider workers never touch it directly.
type run struct {
	keyword string
	target  int
	start   time.Time

	mu      sync.Mutex
	results []model.Lead
	seen    *dedupe.Set
	tried   map[string]map[string]bool
	failed  map[string]bool // confirmed-empty locations, never retried

	limiters map[string]*rate.Limiter
	breakers map[string]*resilience.Breaker
}

func (r *run) markTried(location, prov string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tried[location] == nil {
		r.tried[location] = make(map[string]bool)
	}
	r.tried[location][prov] = true
}

func (r *run) unmarkTried(location, prov string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tried[location], prov)
}

func (r *run) markFailed(location string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[location] = true
}

func (r *run) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Run executes the scraping state machine: rounds of quota check,
// allocation, parallel dispatch, and one redistribution pass for
// transiently failed locations, until the target is met or no further
// progress is possible. Individual provider failures never abort the
// run; only a quota ledger read error is a hard failure.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	r := &run{
		keyword:  req.Keyword,
		target:   req.Target,
		start:    o.now(),
		results:  append([]model.Lead(nil), req.ExistingLeads...),
		seen:     dedupe.New(),
		tried:    make(map[string]map[string]bool),
		failed:   make(map[string]bool),
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*resilience.Breaker),
	}
	r.seen.Seed(req.ExistingLeads)

	for _, name := range o.registry.Names() {
		delay := o.cfg.DefaultDelay
		if d, ok := o.cfg.ProviderDelays[name]; ok {
			delay = d
		}
		r.limiters[name] = rate.NewLimiter(rate.Every(delay), 1)
		r.breakers[name] = resilience.NewBreaker(resilience.BreakerConfig{})
	}

	result := &Result{}
	defer func() {
		if len(result.Leads) > req.Target {
			result.Leads = result.Leads[:req.Target]
		}
	}()

	for round := 1; round <= o.cfg.MaxRounds; round++ {
		result.Rounds = round

		if r.count() >= req.Target {
			return o.finish(r, result, ReasonTargetMet), nil
		}
		if o.elapsed(r) > o.cfg.TimeBudget || ctx.Err() != nil {
			return o.finish(r, result, ReasonBudgetExceeded), nil
		}

		avail, err := o.tracker.CheckAvailability(ctx)
		if err != nil {
			result.Leads = r.results
			return result, eris.Wrap(err, "orchestrator: quota check")
		}
		if len(avail.Available) == 0 {
			o.logf("no provider has remaining quota, stopping")
			return o.finish(r, result, ReasonProvidersExhausted), nil
		}

		// The ledger may carry rows for providers this run has no
		// client for; only registered ones can take locations.
		available := o.registered(avail.Available)
		if len(available) == 0 {
			o.logf("no registered provider has remaining quota, stopping")
			return o.finish(r, result, ReasonProvidersExhausted), nil
		}

		active := r.activeLocations(req.Locations)
		if len(active) == 0 {
			o.logf("all locations exhausted, stopping")
			return o.finish(r, result, ReasonLocationsExhausted), nil
		}

		o.logf("round %d: %d locations, %s", round, len(active), avail.HumanStatus)

		alloc := plan.Allocate(active, available, avail.Limits, o.remaining(r), r.tried)
		if alloc.TotalLocations() == 0 {
			o.logf("no assignable provider/location pair left, stopping")
			return o.finish(r, result, ReasonNoProgress), nil
		}

		added, retriable := o.dispatch(ctx, r, alloc)

		// Redistribution: give transiently failed locations one more
		// chance this round with providers not yet tried there.
		if len(retriable) > 0 && r.count() < req.Target {
			o.logf("round %d: redistributing %d retriable locations", round, len(retriable))
			realloc := plan.Allocate(retriable, available, avail.Limits, o.remaining(r), r.tried)
			if realloc.TotalLocations() > 0 {
				n, _ := o.dispatch(ctx, r, realloc)
				added += n
			}
		}

		if added == 0 {
			o.logf("round %d added no new leads, stopping", round)
			return o.finish(r, result, ReasonNoProgress), nil
		}

		if r.count() >= req.Target {
			return o.finish(r, result, ReasonTargetMet), nil
		}
		if round < o.cfg.MaxRounds {
			o.sleep(ctx, o.cfg.Cooldown)
		}
	}

	reason := ReasonBudgetExceeded
	if r.count() >= req.Target {
		reason = ReasonTargetMet
	}
	return o.finish(r, result, reason), nil
}

// dispatch runs one allocation: providers in parallel, each provider's
// locations sequentially under its rate limiter. Returns the number of
// new leads added and the locations that failed transiently.
func (o *Orchestrator) dispatch(ctx context.Context, r *run, alloc plan.Allocation) (int, []string) {
	var (
		added     int
		retryMu   sync.Mutex
		retriable []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for name, as := range alloc {
		name, as := name, as
		p := o.registry.Get(name)
		if p == nil {
			continue
		}
		g.Go(func() error {
			for i, loc := range as.Locations {
				if o.elapsed(r) > o.cfg.TimeBudget || gctx.Err() != nil {
					// Out of budget: the rest of this list stays
					// retriable for a future invocation.
					retryMu.Lock()
					retriable = append(retriable, as.Locations[i:]...)
					retryMu.Unlock()
					return nil
				}

				if err := r.limiters[name].Wait(gctx); err != nil {
					retryMu.Lock()
					retriable = append(retriable, as.Locations[i:]...)
					retryMu.Unlock()
					return nil
				}

				r.markTried(loc, name)

				n, retry := o.searchLocation(gctx, r, p, loc, as.LeadsPerLocation)
				if retry {
					retryMu.Lock()
					retriable = append(retriable, loc)
					retryMu.Unlock()
					continue
				}
				retryMu.Lock()
				added += n
				retryMu.Unlock()
			}
			return nil // individual provider failures never abort the run
		})
	}
	_ = g.Wait()

	sort.Strings(retriable)
	return added, retriable
}

// searchLocation performs one provider/location call end to end:
// breaker, timeout, classification, dedup, enrichment, quota usage.
// Returns the number of new leads and whether the location should be
// retried with another provider.
func (o *Orchestrator) searchLocation(ctx context.Context, r *run, p provider.Provider, location string, limit int) (int, bool) {
	log := zap.L().With(
		zap.String("provider", p.Name()),
		zap.String("location", location),
	)

	cctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	leads, err := resilience.Call(cctx, r.breakers[p.Name()], func(ctx context.Context) ([]model.Lead, error) {
		return p.Search(ctx, r.keyword, location, limit)
	})
	cancel()

	if err != nil {
		if eris.Is(err, resilience.ErrBreakerOpen) {
			// The provider was never called, so the location keeps
			// its attempt with it.
			r.unmarkTried(location, p.Name())
			log.Warn("provider circuit open, deferring location")
			o.logf("%s @ %s: provider circuit open", p.Name(), location)
			return 0, true
		}
		out := classify.Classify(err, p.Name(), location)
		log.Warn("search failed",
			zap.String("kind", string(out.Kind)),
			zap.Bool("retryable", out.Retryable),
			zap.Error(err),
		)
		o.logf("%s", out.Message)
		if !out.Retryable {
			r.markFailed(location)
			return 0, false
		}
		return 0, true
	}

	if len(leads) == 0 {
		// A clean empty response is confirmed absence, not a failure.
		log.Info("no results, marking location exhausted")
		o.logf("%s @ %s: no results", p.Name(), location)
		r.markFailed(location)
		return 0, false
	}

	fresh := r.seen.Filter(leads)
	for i := range fresh {
		if o.enricher != nil && fresh[i].NeedsEnrichment() {
			c := o.enricher.Enrich(ctx, fresh[i].Website)
			fresh[i].Email = c.Email
			fresh[i].Phone = c.Phone
		}
	}

	r.mu.Lock()
	r.results = append(r.results, fresh...)
	total := len(r.results)
	r.mu.Unlock()

	log.Info("location done",
		zap.Int("returned", len(leads)),
		zap.Int("new", len(fresh)),
		zap.Int("total", total),
	)
	o.logf("%s @ %s: %d leads (%d new, %d total)", p.Name(), location, len(leads), len(fresh), total)
	if o.onProgress != nil {
		o.onProgress(total)
	}

	// Usage tracking is advisory: log and continue on failure.
	if err := o.tracker.RecordUsage(ctx, p.Name(), len(leads), quota.Increment); err != nil {
		log.Warn("quota usage update failed", zap.Error(err))
	}

	return len(fresh), false
}

func (o *Orchestrator) finish(r *run, result *Result, reason Reason) *Result {
	result.Leads = r.results
	result.Reason = reason
	o.logf("run finished: %s (%d leads, %d rounds)", reason, len(r.results), result.Rounds)
	zap.L().Info("run finished",
		zap.String("reason", string(reason)),
		zap.Int("leads", len(r.results)),
		zap.Int("rounds", result.Rounds),
		zap.Duration("elapsed", o.elapsed(r)),
	)
	return result
}

func (o *Orchestrator) elapsed(r *run) time.Duration {
	return o.now().Sub(r.start)
}

func (o *Orchestrator) registered(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if o.registry.Get(name) != nil {
			out = append(out, name)
		}
	}
	return out
}

func (o *Orchestrator) remaining(r *run) int {
	if n := r.target - r.count(); n > 0 {
		return n
	}
	return 0
}

func (r *run) activeLocations(locations []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := make([]string, 0, len(locations))
	for _, loc := range locations {
		if !r.failed[loc] {
			active = append(active, loc)
		}
	}
	return active
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.onLog == nil {
		return
	}
	o.onLog(fmt.Sprintf(format, args...))
}
