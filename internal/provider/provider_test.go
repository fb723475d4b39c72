package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadgen-cli/internal/model"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Search(_ context.Context, _, _ string, _ int) ([]model.Lead, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Get("places"))

	r.Register(&stubProvider{name: "yelp"})
	r.Register(&stubProvider{name: "places"})

	assert.Equal(t, 2, r.Len())
	assert.NotNil(t, r.Get("places"))
	assert.Equal(t, []string{"places", "yelp"}, r.Names())
}

func TestRegistry_RegisterOverwritesSameName(t *testing.T) {
	r := NewRegistry()
	first := &stubProvider{name: "places"}
	second := &stubProvider{name: "places"}
	r.Register(first)
	r.Register(second)

	assert.Equal(t, 1, r.Len())
	assert.Same(t, second, r.Get("places"))
}
