package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/quota"
)

func limits(pairs ...any) map[string]quota.Remaining {
	m := make(map[string]quota.Remaining)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i].(string)] = quota.Remaining{Available: pairs[i+1].(int), Total: pairs[i+1].(int)}
	}
	return m
}

func TestAllocate_PicksProviderWithMostQuota(t *testing.T) {
	alloc := Allocate(
		[]string{"Springfield"},
		[]string{"places", "yelp"},
		limits("places", 100, "yelp", 10),
		20,
		nil,
	)

	require.Len(t, alloc, 1)
	as, ok := alloc["places"]
	require.True(t, ok)
	assert.Equal(t, []string{"Springfield"}, as.Locations)
	assert.Equal(t, 20, as.LeadsPerLocation)
}

func TestAllocate_SkipsTriedProviders(t *testing.T) {
	tried := map[string]map[string]bool{
		"Springfield": {"places": true},
	}
	alloc := Allocate(
		[]string{"Springfield"},
		[]string{"places", "yelp"},
		limits("places", 100, "yelp", 10),
		20,
		tried,
	)

	require.Len(t, alloc, 1)
	_, ok := alloc["yelp"]
	assert.True(t, ok, "yelp is the only untried provider")
}

func TestAllocate_LocationSkippedWhenAllTried(t *testing.T) {
	tried := map[string]map[string]bool{
		"Springfield": {"places": true, "yelp": true},
	}
	alloc := Allocate(
		[]string{"Springfield", "Austin"},
		[]string{"places", "yelp"},
		limits("places", 100, "yelp", 10),
		20,
		tried,
	)

	require.Equal(t, 1, alloc.TotalLocations())
	assert.Equal(t, []string{"Austin"}, alloc["places"].Locations)
}

func TestAllocate_EmptyWhenNothingAssignable(t *testing.T) {
	tried := map[string]map[string]bool{
		"Springfield": {"places": true},
	}
	alloc := Allocate([]string{"Springfield"}, []string{"places"}, limits("places", 100), 20, tried)
	assert.Empty(t, alloc)

	alloc = Allocate(nil, []string{"places"}, limits("places", 100), 20, nil)
	assert.Empty(t, alloc)

	alloc = Allocate([]string{"Springfield"}, nil, nil, 20, nil)
	assert.Empty(t, alloc)
}

func TestAllocate_BalancesTargetAcrossLocations(t *testing.T) {
	alloc := Allocate(
		[]string{"A", "B", "C", "D"},
		[]string{"places"},
		limits("places", 1000),
		100,
		nil,
	)

	require.Len(t, alloc, 1)
	as := alloc["places"]
	assert.Len(t, as.Locations, 4)
	// ceil(100/4) = 25, well under floor(1000/4).
	assert.Equal(t, 25, as.LeadsPerLocation)
}

func TestAllocate_CappedByProviderQuota(t *testing.T) {
	alloc := Allocate(
		[]string{"A", "B"},
		[]string{"places"},
		limits("places", 10),
		100,
		nil,
	)

	require.Len(t, alloc, 1)
	// ceil(100/2)=50 but floor(10/2)=5 wins.
	assert.Equal(t, 5, alloc["places"].LeadsPerLocation)
}

func TestAllocate_FlooredToOneWithAnyQuota(t *testing.T) {
	alloc := Allocate(
		[]string{"A", "B", "C"},
		[]string{"places"},
		limits("places", 2),
		30,
		nil,
	)

	require.Len(t, alloc, 1)
	// floor(2/3)=0 but the provider has quota, so it still asks for 1.
	assert.Equal(t, 1, alloc["places"].LeadsPerLocation)
}

func TestAllocate_SpreadsAcrossProviders(t *testing.T) {
	tried := map[string]map[string]bool{
		"A": {"places": true},
		"B": {"yelp": true},
	}
	alloc := Allocate(
		[]string{"A", "B"},
		[]string{"places", "yelp"},
		limits("places", 50, "yelp", 50),
		10,
		tried,
	)

	require.Len(t, alloc, 2)
	assert.Equal(t, []string{"A"}, alloc["yelp"].Locations)
	assert.Equal(t, []string{"B"}, alloc["places"].Locations)
	assert.Equal(t, 5, alloc["places"].LeadsPerLocation)
	assert.Equal(t, 5, alloc["yelp"].LeadsPerLocation)
}

func TestAllocate_DeterministicTieBreak(t *testing.T) {
	for i := 0; i < 10; i++ {
		alloc := Allocate(
			[]string{"A"},
			[]string{"yelp", "places"},
			limits("places", 50, "yelp", 50),
			10,
			nil,
		)
		_, ok := alloc["places"]
		require.True(t, ok, "equal quotas must break ties by name")
	}
}
