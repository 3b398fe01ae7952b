// Package chunker provides a heading-aware text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Chunk size bounds, in runes.
const (
	// MinChunkSize is the smallest trimmed chunk ever emitted.
	// Shorter content is dropped.
	MinChunkSize = 64

	// MaxChunkSize is the buffer length that forces a split.
	MaxChunkSize = 768

	// TargetChunkSize is the preferred chunk length. A paragraph split is only
	// taken when it leaves more than half of this in the emitted chunk.
	TargetChunkSize = 384
)

// RootDomain is the domain tag of documents at the corpus root.
const RootDomain = "root"

// Skip reasons reported for unusable documents.
const (
	ReasonInvalidUTF8 = "not valid UTF-8"
	ReasonBinary      = "binary content"
)

var headingPattern = regexp.MustCompile(`^(#{1,4})\s+(\S.*)$`)

// Processor splits documents into bounded, heading-scoped chunks.
// It holds no state between calls and is safe for concurrent use.
type Processor struct {
	minSize    int
	maxSize    int
	targetSize int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMinSize sets the minimum emitted chunk length in runes.
func WithMinSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.minSize = size
		}
	}
}

// WithMaxSize sets the buffer length in runes that forces a split.
func WithMaxSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.maxSize = size
		}
	}
}

// WithTargetSize sets the preferred chunk length in runes.
func WithTargetSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.targetSize = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		minSize:    MinChunkSize,
		maxSize:    MaxChunkSize,
		targetSize: TargetChunkSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Keep the bounds ordered
	if p.maxSize < p.minSize {
		p.maxSize = p.minSize
	}
	if p.targetSize > p.maxSize {
		p.targetSize = p.maxSize
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// chunkBuilder accumulates lines for one document.
type chunkBuilder struct {
	p       *Processor
	doc     domain.Document
	tag     string
	heading string
	lines   []string
	start   int // 1-based line number of lines[0]
	size    int // rune length of strings.Join(lines, "\n")
	chunks  []domain.Chunk
}

func (b *chunkBuilder) add(line string, lineNo int) {
	if len(b.lines) == 0 {
		b.start = lineNo
		b.size = utf8.RuneCountInString(line)
	} else {
		b.size += 1 + utf8.RuneCountInString(line)
	}
	b.lines = append(b.lines, line)
}

// emit turns lines into a chunk if it is long enough.
func (b *chunkBuilder) emit(lines []string, start int) {
	// Skip leading blank lines so StartLine points at content
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
		start++
	}
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if utf8.RuneCountInString(text) < b.p.minSize {
		return
	}
	b.chunks = append(b.chunks, domain.Chunk{
		Text:              text,
		SourcePath:        b.doc.Path,
		Heading:           b.heading,
		DomainTag:         b.tag,
		SourceFingerprint: b.doc.Fingerprint,
		StartLine:         start,
	})
}

func (b *chunkBuilder) flush() {
	b.emit(b.lines, b.start)
	b.lines = nil
	b.size = 0
}

// split is called once the buffer reaches the maximum size.
// It prefers the last paragraph break, falling back to a hard split.
func (b *chunkBuilder) split() {
	for b.size >= b.p.maxSize {
		at := lastBlankLine(b.lines)
		if at <= 0 || runeLen(b.lines[:at]) <= b.p.targetSize/2 {
			b.flush()
			return
		}
		b.emit(b.lines[:at], b.start)
		rest := b.lines[at+1:]
		restStart := b.start + at + 1
		b.lines = nil
		b.size = 0
		for i, line := range rest {
			b.add(line, restStart+i)
		}
	}
}

// Chunk splits a document into chunks.
// A heading line (one to four '#' then whitespace) closes the current chunk
// and opens a new one under that heading. Text before the first heading is
// scoped to the document path. Headings inside ``` or ~~~ fenced code blocks
// are ignored.
func (p *Processor) Chunk(doc domain.Document) []domain.Chunk {
	if doc.Fingerprint == "" {
		doc.Fingerprint = domain.Fingerprint(doc.Content)
	}
	b := &chunkBuilder{
		p:       p,
		doc:     doc,
		tag:     DomainTag(doc.Path),
		heading: doc.Path,
	}

	content := strings.ReplaceAll(doc.Content, "\r\n", "\n")
	var fence fenceState
	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		if !fence.toggle(line) && !fence.open() {
			if heading, ok := headingText(line); ok {
				b.flush()
				b.heading = heading
				b.add(line, lineNo)
				continue
			}
		}
		b.add(line, lineNo)
		if b.size >= p.maxSize {
			b.split()
		}
	}
	b.flush()

	return b.chunks
}

// fenceState tracks a fenced code block opened with ``` or ~~~.
// Only a run of the same character, at least as long, closes it.
type fenceState struct {
	char byte
	size int
}

func (f *fenceState) open() bool { return f.size > 0 }

// toggle reports whether line opens or closes a fence.
func (f *fenceState) toggle(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || (trimmed[0] != '`' && trimmed[0] != '~') {
		return false
	}
	char := trimmed[0]
	n := len(trimmed) - len(strings.TrimLeft(trimmed, string(char)))
	if n < 3 {
		return false
	}
	switch {
	case !f.open():
		f.char, f.size = char, n
		return true
	case char == f.char && n >= f.size && strings.TrimSpace(trimmed[n:]) == "":
		f.char, f.size = 0, 0
		return true
	}
	return false
}

// ChunkAll chunks every document the provider returns.
// Documents that are not text are recorded as skipped rather than failing
// the scan. An error is returned only when the provider itself fails.
func (p *Processor) ChunkAll(ctx context.Context, provider driven.DocumentProvider) (domain.Corpus, error) {
	if err := ctx.Err(); err != nil {
		return domain.Corpus{}, err
	}

	docs, skipped, err := provider.Documents(ctx)
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("list documents: %w", err)
	}

	corpus := domain.Corpus{
		Fingerprints: make(map[string]string, len(docs)),
		Skipped:      append([]domain.SkippedDocument(nil), skipped...),
	}
	for _, doc := range docs {
		if reason, ok := unusable(doc.Content); ok {
			corpus.Skipped = append(corpus.Skipped, domain.SkippedDocument{Path: doc.Path, Reason: reason})
			continue
		}
		if doc.Fingerprint == "" {
			doc.Fingerprint = domain.Fingerprint(doc.Content)
		}
		corpus.Fingerprints[doc.Path] = doc.Fingerprint
		corpus.Documents++
		corpus.Chunks = append(corpus.Chunks, p.Chunk(doc)...)
	}

	return corpus, nil
}

// Fingerprints returns the fingerprint of every usable document without
// chunking. It sees exactly the documents ChunkAll would chunk.
func (p *Processor) Fingerprints(ctx context.Context, provider driven.DocumentProvider) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs, _, err := provider.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	fingerprints := make(map[string]string, len(docs))
	for _, doc := range docs {
		if _, bad := unusable(doc.Content); bad {
			continue
		}
		if doc.Fingerprint == "" {
			doc.Fingerprint = domain.Fingerprint(doc.Content)
		}
		fingerprints[doc.Path] = doc.Fingerprint
	}
	return fingerprints, nil
}

// DomainTag derives the coarse topic of a document from its path.
//
//	domains/<x>/...    -> x
//	goals/<x>/<y>/...  -> x/y
//	<dir>/...          -> dir
//	file at root       -> "root"
func DomainTag(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case segments[0] == "domains" && len(segments) >= 3:
		return segments[1]
	case segments[0] == "goals" && len(segments) >= 4:
		return segments[1] + "/" + segments[2]
	case len(segments) >= 2:
		return segments[0]
	default:
		return RootDomain
	}
}

// headingText returns the text of a markdown heading line.
func headingText(line string) (string, bool) {
	m := headingPattern.FindStringSubmatch(strings.TrimRight(line, " \t"))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[2]), true
}

func unusable(content string) (string, bool) {
	if !utf8.ValidString(content) {
		return ReasonInvalidUTF8, true
	}
	if strings.IndexByte(content, 0) >= 0 {
		return ReasonBinary, true
	}
	return "", false
}

func lastBlankLine(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			return i
		}
	}
	return -1
}

func runeLen(lines []string) int {
	return utf8.RuneCountInString(strings.Join(lines, "\n"))
}
