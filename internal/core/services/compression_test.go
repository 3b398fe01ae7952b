package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

func testCompressionSettings() domain.CompressionSettings {
	settings := domain.DefaultCompressionSettings()
	settings.Seed = 7
	return settings
}

func newTestCompression(
	provider *fakeProvider, embedder driven.EmbeddingService, llm driven.LLMService,
) (*CompressionService, *memory.RecordStore) {
	store := memory.NewRecordStore()
	return NewCompressionService(provider, embedder, llm, store, testCompressionSettings()), store
}

func domainLabels(pack *domain.KnowledgePack) []string {
	labels := make([]string, len(pack.Domains))
	for i, d := range pack.Domains {
		labels[i] = d.Label
	}
	return labels
}

func TestCompressionService_Compress_TwoTopics(t *testing.T) {
	provider := newFakeProvider(topicCorpus(10))
	service, store := newTestCompression(provider, newHashEmbedder(), nil)
	progress := &collect{}

	pack, err := service.Compress(context.Background(), progress.fn())

	require.NoError(t, err)
	require.Len(t, pack.Domains, 2)
	assert.ElementsMatch(t, []string{"Health", "Finance"}, domainLabels(pack))
	for _, d := range pack.Domains {
		assert.Equal(t, 10, d.MemberCount)
		assert.Len(t, d.Centroid, 256)
		assert.Equal(t, d.Label, d.Summary, "no llm falls back to the label")
		assert.LessOrEqual(t, len(d.Facts), domain.MaxFactsPerDomain)
		assert.Len(t, d.DomainTags, 1)
	}
	assert.Equal(t, "Knowledge base with 2 clusters covering 20 source chunks.", pack.Overview)
	assert.Equal(t, 20, pack.Stats.Documents)
	assert.Equal(t, 20, pack.Stats.Chunks)
	assert.Equal(t, 20, pack.Stats.Embedded)
	assert.Zero(t, pack.Stats.Duplicates)
	assert.Equal(t, 2, pack.Stats.Clusters)
	assert.Greater(t, pack.Stats.Silhouette, 0.5)
	assert.Len(t, pack.Fingerprints, 20)
	assert.NotEmpty(t, pack.ID)
	assert.Equal(t, domain.Phases(), progress.phases())
	assert.Equal(t, 1, store.Saves())

	stored, err := service.Pack(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pack.ID, stored.ID)
	assert.Equal(t, domainLabels(pack), domainLabels(stored))
}

func TestCompressionService_Compress_UsesLLM(t *testing.T) {
	provider := newFakeProvider(topicCorpus(6))
	llm := &fakeLLM{reply: func(req driven.CompletionRequest) (string, error) {
		if strings.Contains(req.SystemPrompt, "overview") {
			return "  Two topics: health and money.  ", nil
		}
		return "Summary for prompt " + req.SystemPrompt[:10], nil
	}}
	service, _ := newTestCompression(provider, newHashEmbedder(), llm)

	pack, err := service.Compress(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, "Two topics: health and money.", pack.Overview)
	for _, d := range pack.Domains {
		assert.True(t, strings.HasPrefix(d.Summary, "Summary for prompt"))
	}

	llm.mu.Lock()
	defer llm.mu.Unlock()
	require.Len(t, llm.prompts, len(pack.Domains)+1)
	for i, d := range pack.Domains {
		assert.Contains(t, llm.prompts[i].SystemPrompt, d.Label)
		assert.NotEmpty(t, llm.prompts[i].UserPrompt)
	}
}

func TestCompressionService_Compress_LLMFailureFallsBack(t *testing.T) {
	provider := newFakeProvider(topicCorpus(6))
	service, _ := newTestCompression(provider, newHashEmbedder(), &fakeLLM{})

	pack, err := service.Compress(context.Background(), nil)

	require.NoError(t, err)
	for _, d := range pack.Domains {
		assert.Equal(t, d.Label, d.Summary)
	}
	assert.Equal(t,
		fmt.Sprintf("Knowledge base with %d clusters covering 12 source chunks.", len(pack.Domains)),
		pack.Overview)
}

func TestCompressionService_Compress_EmptyCorpus(t *testing.T) {
	service, store := newTestCompression(newFakeProvider(nil), newHashEmbedder(), nil)
	progress := &collect{}

	pack, err := service.Compress(context.Background(), progress.fn())

	assert.Nil(t, pack)
	assert.ErrorIs(t, err, domain.ErrNoCorpus)
	assert.Zero(t, store.Saves())

	last := progress.events[len(progress.events)-1]
	assert.Equal(t, domain.PhaseEmbedding, last.Phase)
	assert.ErrorIs(t, last.Err, domain.ErrNoCorpus)
}

func TestCompressionService_Compress_EmbeddingUnavailable(t *testing.T) {
	t.Run("nil embedder", func(t *testing.T) {
		service, store := newTestCompression(newFakeProvider(topicCorpus(3)), nil, nil)

		_, err := service.Compress(context.Background(), nil)

		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Zero(t, store.Saves())
	})

	t.Run("every batch fails", func(t *testing.T) {
		embedder := newHashEmbedder()
		embedder.failBatch = true
		service, store := newTestCompression(newFakeProvider(topicCorpus(3)), embedder, nil)

		_, err := service.Compress(context.Background(), nil)

		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Zero(t, store.Saves())
	})
}

func TestCompressionService_Compress_PartialEmbeddingFailure(t *testing.T) {
	embedder := newHashEmbedder()
	embedder.failText = func(text string) bool { return strings.Contains(text, "hlog0 ") }
	service, _ := newTestCompression(newFakeProvider(topicCorpus(5)), embedder, nil)

	pack, err := service.Compress(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 10, pack.Stats.Chunks)
	assert.Equal(t, 9, pack.Stats.Embedded)
}

func TestCompressionService_Compress_Duplicates(t *testing.T) {
	docs := topicCorpus(5)
	docs["health/copy.md"] = docs["health/note00.md"]
	service, _ := newTestCompression(newFakeProvider(docs), newHashEmbedder(), nil)

	pack, err := service.Compress(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 11, pack.Stats.Chunks)
	assert.Equal(t, 1, pack.Stats.Duplicates)
	total := 0
	for _, d := range pack.Domains {
		total += d.MemberCount
	}
	assert.Equal(t, 10, total)
}

func TestCompressionService_Compress_SmallCorpus(t *testing.T) {
	docs := map[string]string{
		"solo.md": "A single note about the garden, the tomatoes and the watering schedule.",
	}
	service, _ := newTestCompression(newFakeProvider(docs), newHashEmbedder(), nil)

	pack, err := service.Compress(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, pack.Domains, 1)
	assert.Equal(t, 1, pack.Domains[0].MemberCount)
	assert.Zero(t, pack.Stats.Silhouette)
}

func TestCompressionService_Compress_Cancelled(t *testing.T) {
	service, store := newTestCompression(newFakeProvider(topicCorpus(3)), newHashEmbedder(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Compress(ctx, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Saves())
}

func TestCompressionService_Compress_ParallelMatchesSequential(t *testing.T) {
	reply := func(req driven.CompletionRequest) (string, error) {
		return "summary: " + req.SystemPrompt, nil
	}

	sequential, _ := newTestCompression(newFakeProvider(topicCorpus(8)), newHashEmbedder(), &fakeLLM{reply: reply})
	sequential.SetStrategy(SequentialStrategy{})
	parallel, _ := newTestCompression(newFakeProvider(topicCorpus(8)), newHashEmbedder(), &fakeLLM{reply: reply})
	parallel.SetStrategy(ParallelStrategy{Limit: 4})

	a, err := sequential.Compress(context.Background(), nil)
	require.NoError(t, err)
	b, err := parallel.Compress(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, len(a.Domains), len(b.Domains))
	for i := range a.Domains {
		assert.Equal(t, a.Domains[i].Label, b.Domains[i].Label)
		assert.Equal(t, a.Domains[i].Summary, b.Domains[i].Summary)
		assert.Equal(t, a.Domains[i].MemberCount, b.Domains[i].MemberCount)
	}
}

func TestCompressionService_Pack(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		service, _ := newTestCompression(newFakeProvider(nil), newHashEmbedder(), nil)
		_, err := service.Pack(ctx)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("corrupt", func(t *testing.T) {
		service, store := newTestCompression(newFakeProvider(nil), newHashEmbedder(), nil)
		require.NoError(t, store.Save(ctx, driven.RecordKnowledgePack, []byte("{not json")))
		_, err := service.Pack(ctx)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("other version", func(t *testing.T) {
		service, store := newTestCompression(newFakeProvider(nil), newHashEmbedder(), nil)
		require.NoError(t, store.Save(ctx, driven.RecordKnowledgePack, []byte(`{"version":99}`)))
		_, err := service.Pack(ctx)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCompressionService_IsStale(t *testing.T) {
	ctx := context.Background()
	provider := newFakeProvider(topicCorpus(3))
	service, _ := newTestCompression(provider, newHashEmbedder(), nil)

	stale, err := service.IsStale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "no pack yet")

	_, err = service.Compress(ctx, nil)
	require.NoError(t, err)

	stale, err = service.IsStale(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	original := topicCorpus(3)["health/note01.md"]
	provider.set("health/note01.md", original+"one more line\n")
	stale, err = service.IsStale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "edited document")

	provider.set("health/note01.md", original)
	stale, err = service.IsStale(ctx)
	require.NoError(t, err)
	assert.False(t, stale, "edit reverted")

	provider.remove("finance/note02.md")
	stale, err = service.IsStale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "removed document")
}

func TestCompressionService_IsStale_UnreadableOrEmpty(t *testing.T) {
	ctx := context.Background()

	empty, _ := newTestCompression(newFakeProvider(nil), newHashEmbedder(), nil)
	stale, err := empty.IsStale(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	provider := newFakeProvider(topicCorpus(2))
	provider.err = errFake
	broken, _ := newTestCompression(provider, newHashEmbedder(), nil)
	stale, err = broken.IsStale(ctx)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestCompressionService_Compress_SaveErrorKeepsPreviousPack(t *testing.T) {
	ctx := context.Background()
	provider := newFakeProvider(topicCorpus(6))
	store := newFailingStore()
	service := NewCompressionService(provider, newHashEmbedder(), nil, store, testCompressionSettings())

	first, err := service.Compress(ctx, nil)
	require.NoError(t, err)
	before, err := store.RecordStore.Load(ctx, driven.RecordKnowledgePack)
	require.NoError(t, err)

	provider.set("health/extra.md", healthWords+" extra notes about morning routines\n")
	store.failSave(errFake)
	progress := &collect{}

	pack, err := service.Compress(ctx, progress.fn())

	require.ErrorIs(t, err, errFake)
	assert.Nil(t, pack)
	last := progress.events[len(progress.events)-1]
	assert.ErrorIs(t, last.Err, errFake)

	after, err := store.RecordStore.Load(ctx, driven.RecordKnowledgePack)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a failed run leaves the stored pack untouched")

	stored, err := service.Pack(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
}

func TestCompressionService_LoadErrorIsColdStart(t *testing.T) {
	ctx := context.Background()
	provider := newFakeProvider(topicCorpus(4))
	store := newFailingStore()
	service := NewCompressionService(provider, newHashEmbedder(), nil, store, testCompressionSettings())

	_, err := service.Compress(ctx, nil)
	require.NoError(t, err)
	store.failLoad(errFake)

	_, err = service.Pack(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stale, err := service.IsStale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "an unreadable pack counts as missing")

	pack, err := service.Compress(ctx, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, pack.Domains)
	assert.Equal(t, 2, store.Saves())
}
