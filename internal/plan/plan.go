// Package plan assigns not-yet-satisfied locations to providers for one
// orchestration round, respecting remaining quota and never re-pairing a
// location with a provider already tried for it this run.
package plan

import (
	"sort"

	"github.com/sells-group/leadgen-cli/internal/quota"
)

// Assignment is one provider's share of a round.
type Assignment struct {
	Locations        []string
	LeadsPerLocation int
}

// Allocation maps provider name to its assignment for the round. It is
// ephemeral: recomputed every round, never persisted.
type Allocation map[string]Assignment

// TotalLocations returns the number of locations assigned across all
// providers.
func (a Allocation) TotalLocations() int {
	n := 0
	for _, as := range a {
		n += len(as.Locations)
	}
	return n
}

// Allocate computes the round's assignment. For each location it picks
// the untried provider with the most remaining quota (ties broken by
// name for determinism); a location with no untried funded provider is
// skipped this round. Per-provider request size balances the remaining
// target across all assigned locations without exceeding the provider's
// budget. An empty allocation means no progress is possible.
func Allocate(locations, available []string, limits map[string]quota.Remaining, targetLeads int, tried map[string]map[string]bool) Allocation {
	if targetLeads <= 0 || len(locations) == 0 || len(available) == 0 {
		return Allocation{}
	}

	// Stable provider order so equal quotas assign deterministically.
	providers := append([]string(nil), available...)
	sort.Strings(providers)

	remaining := make(map[string]int, len(providers))
	for _, p := range providers {
		remaining[p] = limits[p].Available
	}

	byProvider := make(map[string][]string)
	for _, loc := range locations {
		best := ""
		for _, p := range providers {
			if remaining[p] <= 0 || tried[loc][p] {
				continue
			}
			if best == "" || remaining[p] > remaining[best] {
				best = p
			}
		}
		if best == "" {
			continue
		}
		byProvider[best] = append(byProvider[best], loc)
	}

	total := 0
	for _, locs := range byProvider {
		total += len(locs)
	}
	if total == 0 {
		return Allocation{}
	}

	perLocationTarget := ceilDiv(targetLeads, total)

	alloc := make(Allocation, len(byProvider))
	for p, locs := range byProvider {
		budget := remaining[p] / len(locs)
		per := min(perLocationTarget, budget)
		if per < 1 {
			if remaining[p] <= 0 {
				// Cannot help this round.
				continue
			}
			per = 1
		}
		alloc[p] = Assignment{Locations: locs, LeadsPerLocation: per}
	}
	return alloc
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
