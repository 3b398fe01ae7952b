package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

func TestConfigStore_InterfaceCompliance(t *testing.T) {
	var store driven.ConfigStore = NewConfigStore()
	assert.Equal(t, ":memory:", store.Path())
	assert.NoError(t, store.Load())
	assert.NoError(t, store.Save())
}

func TestConfigStore_Seed(t *testing.T) {
	base := map[string]any{"corpus.root": "/notes", "retrieval.top_k": 5}
	store := NewConfigStore(base, map[string]any{"retrieval.top_k": 8})

	assert.Equal(t, "/notes", store.GetString("corpus.root"))
	assert.Equal(t, 8, store.GetInt("retrieval.top_k"))

	// Seeds are copied.
	require.NoError(t, store.Set("corpus.root", "/other"))
	assert.Equal(t, "/notes", base["corpus.root"])
}

func TestConfigStore_Saves(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Save())
	require.NoError(t, store.Save())
	assert.Equal(t, 2, store.Saves())
}

func TestConfigStore_SetGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("corpus.root", "/notes"))

	val, ok := store.Get("corpus.root")
	assert.True(t, ok)
	assert.Equal(t, "/notes", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_GetString(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("s", "value")
	_ = store.Set("n", 3)

	assert.Equal(t, "value", store.GetString("s"))
	assert.Empty(t, store.GetString("n"))
	assert.Empty(t, store.GetString("missing"))
}

func TestConfigStore_GetInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int", 42, 42},
		{"int64", int64(7), 7},
		{"float64", 3.0, 3},
		{"string", "12", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStore()
			_ = store.Set("k", tt.value)
			assert.Equal(t, tt.want, store.GetInt("k"))
		})
	}
}

func TestConfigStore_GetFloat(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"float64", 0.92, 0.92},
		{"float32", float32(0.5), 0.5},
		{"int", 2, 2},
		{"int64", int64(5), 5},
		{"string", "0.3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStore()
			_ = store.Set("k", tt.value)
			assert.InDelta(t, tt.want, store.GetFloat("k"), 1e-6)
		})
	}

	assert.Zero(t, NewConfigStore().GetFloat("missing"))
}

func TestConfigStore_GetBool(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("on", true)
	_ = store.Set("str", "true")

	assert.True(t, store.GetBool("on"))
	assert.False(t, store.GetBool("str"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("typed", []string{".md", ".txt"})
	_ = store.Set("untyped", []any{".md", 3, ".org"})
	_ = store.Set("scalar", ".md")

	assert.Equal(t, []string{".md", ".txt"}, store.GetStringSlice("typed"))
	assert.Equal(t, []string{".md", ".org"}, store.GetStringSlice("untyped"))
	assert.Nil(t, store.GetStringSlice("scalar"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("counter")
		}()
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}
