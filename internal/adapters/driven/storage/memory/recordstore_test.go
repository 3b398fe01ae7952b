package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestRecordStore_LoadMissing(t *testing.T) {
	store := NewRecordStore()

	_, err := store.Load(context.Background(), "knowledge_pack")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	require.NoError(t, store.Save(ctx, "vector_index", []byte(`{"version":1}`)))

	data, err := store.Load(ctx, "vector_index")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(data))
	assert.Equal(t, 1, store.Saves())
}

func TestRecordStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	require.NoError(t, store.Save(ctx, "k", []byte("one")))
	require.NoError(t, store.Save(ctx, "k", []byte("two")))

	data, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assert.Equal(t, 2, store.Saves())
}

func TestRecordStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	input := []byte("abc")
	require.NoError(t, store.Save(ctx, "k", input))
	input[0] = 'x'

	out, err := store.Load(ctx, "k")
	require.NoError(t, err)
	out[1] = 'y'

	again, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestRecordStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	require.NoError(t, store.Save(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "missing"))

	_, err := store.Load(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_Concurrency(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Save(ctx, "k", []byte("v"))
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Load(ctx, "k")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, store.Saves())
	assert.NoError(t, store.Close())
}

func TestRecordStore_Revision(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore()

	_, err := store.Revision(ctx, "vector_index")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Save(ctx, "vector_index", []byte("a")))
	first, err := store.Revision(ctx, "vector_index")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "vector_index"))
	require.NoError(t, store.Save(ctx, "vector_index", []byte("b")))
	second, err := store.Revision(ctx, "vector_index")
	require.NoError(t, err)
	assert.Greater(t, second, first, "revisions keep growing across deletes")
}
