package provider

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/livability-cli/internal/model"
)

func named(name string) Strategy {
	return Func{ID: name, Fn: func(context.Context, model.Point) (Result, error) {
		return Result{Found: true, Attributes: map[string]any{"from": name}}, nil
	}}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(named("feature_server"))
	r.Register(named("map_server"))

	assert.NotNil(t, r.Get("feature_server"))
	assert.Nil(t, r.Get("missing"))
	assert.Equal(t, []string{"feature_server", "map_server"}, r.List())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(named("a"))
	r.Register(Func{ID: "a", Fn: func(context.Context, model.Point) (Result, error) {
		return NotFound("replaced"), nil
	}})

	res, err := r.Get("a").Query(context.Background(), model.Point{})
	require.NoError(t, err)
	assert.Equal(t, "replaced", res.Message)
	assert.Len(t, r.List(), 1)
}

func TestRegistry_Chain(t *testing.T) {
	r := NewRegistry()
	r.Register(named("a"))
	r.Register(named("b"))
	r.Register(named("c"))

	chain, err := r.Chain([]string{"c", "a"})
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "c", chain[0].Name())
	assert.Equal(t, "a", chain[1].Name())

	_, err = r.Chain([]string{"a", "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)

	_, err = r.Chain(nil)
	assert.Error(t, err)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(named("shared"))
		}()
		go func() {
			defer wg.Done()
			_ = r.Get("shared")
			_ = r.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"shared"}, r.List())
}
