package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

var (
	_ driven.EmbeddingService = (*hashEmbedder)(nil)
	_ driven.LLMService       = (*fakeLLM)(nil)
	_ driven.DocumentProvider = (*fakeProvider)(nil)
	_ driven.RecordStore      = (*failingStore)(nil)
)

var errFake = errors.New("fake failure")

// hashEmbedder is a bag-of-words embedder: each lower-cased word adds one
// to a hashed dimension. Identical texts embed identically and texts with
// no shared words are orthogonal unless their words collide.
type hashEmbedder struct {
	dims  int
	model string

	mu       sync.Mutex
	embedded []string
	batches  int

	// failText makes single texts fail; failBatch fails whole batch calls.
	failText  func(text string) bool
	failBatch bool
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{dims: 256, model: "hash-256"}
}

func (e *hashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(e.dims)]++
	}
	return v
}

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.failText != nil && e.failText(text) {
		return nil, errFake
	}
	return e.vector(text), nil
}

func (e *hashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.embedded = append(e.embedded, texts...)
	e.mu.Unlock()

	if e.failBatch {
		return nil, errFake
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.failText != nil && e.failText(text) {
			continue
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *hashEmbedder) Dimensions() int              { return e.dims }
func (e *hashEmbedder) ModelName() string            { return e.model }
func (e *hashEmbedder) Ping(_ context.Context) error { return nil }
func (e *hashEmbedder) Close() error                 { return nil }

// embeddedTexts returns and clears the texts seen by EmbedBatch.
func (e *hashEmbedder) embeddedTexts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.embedded
	e.embedded = nil
	return out
}

// fakeLLM answers completions with a canned reply or error.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []driven.CompletionRequest
	reply   func(req driven.CompletionRequest) (string, error)
}

func (l *fakeLLM) Complete(_ context.Context, req driven.CompletionRequest) (string, error) {
	l.mu.Lock()
	l.prompts = append(l.prompts, req)
	l.mu.Unlock()
	if l.reply == nil {
		return "", errFake
	}
	return l.reply(req)
}

func (l *fakeLLM) ModelName() string            { return "fake-llm" }
func (l *fakeLLM) Ping(_ context.Context) error { return nil }
func (l *fakeLLM) Close() error                 { return nil }

// failingStore wraps a memory store and fails the operations whose error
// is set.
type failingStore struct {
	*memory.RecordStore

	mu      sync.Mutex
	loadErr error
	saveErr error
}

func newFailingStore() *failingStore {
	return &failingStore{RecordStore: memory.NewRecordStore()}
}

func (s *failingStore) failLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

func (s *failingStore) failSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *failingStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	err := s.loadErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.RecordStore.Load(ctx, key)
}

func (s *failingStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	err := s.saveErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.RecordStore.Save(ctx, key, data)
}

// fakeProvider serves an editable in-memory corpus.
type fakeProvider struct {
	mu   sync.Mutex
	docs map[string]string
	err  error
}

func newFakeProvider(docs map[string]string) *fakeProvider {
	p := &fakeProvider{docs: make(map[string]string)}
	for path, content := range docs {
		p.docs[path] = content
	}
	return p
}

func (p *fakeProvider) Documents(_ context.Context) ([]domain.Document, []domain.SkippedDocument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, nil, p.err
	}
	docs := make([]domain.Document, 0, len(p.docs))
	for path, content := range p.docs {
		docs = append(docs, domain.Document{Path: path, Content: content})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil, nil
}

func (p *fakeProvider) Root() string { return "/fake" }

func (p *fakeProvider) set(path, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[path] = content
}

func (p *fakeProvider) remove(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.docs, path)
}

// Shared vocabularies for the two-topic corpus.
var (
	healthWords  = "sleep exercise nutrition doctor wellness hydration vitamins cardio"
	financeWords = "budget savings invest mortgage pension interest dividend portfolio"
)

// topicCorpus returns n health notes and n finance notes. Notes of a topic
// share eight words and differ in two, so they are similar without being
// duplicates.
func topicCorpus(n int) map[string]string {
	docs := make(map[string]string, 2*n)
	for i := 0; i < n; i++ {
		docs[fmt.Sprintf("health/note%02d.md", i)] =
			fmt.Sprintf("%s hlog%d hday%d\n", healthWords, i, i)
		docs[fmt.Sprintf("finance/note%02d.md", i)] =
			fmt.Sprintf("%s flog%d fday%d\n", financeWords, i, i)
	}
	return docs
}

// collect records progress events.
type collect struct {
	mu     sync.Mutex
	events []domain.Progress
}

func (c *collect) fn() domain.ProgressFunc {
	return func(p domain.Progress) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, p)
	}
}

func (c *collect) phases() []domain.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Phase
	for _, e := range c.events {
		if len(out) == 0 || out[len(out)-1] != e.Phase {
			out = append(out, e.Phase)
		}
	}
	return out
}
