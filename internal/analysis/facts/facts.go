// Package facts pulls short factual statements out of markdown text
// without calling any external service.
package facts

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Sentence length bounds, in runes.
const (
	MinSentence = 15
	MaxSentence = 300
)

var (
	assertive = map[string]struct{}{
		"must": {}, "should": {}, "requires": {}, "require": {}, "required": {},
		"always": {}, "never": {}, "important": {}, "critical": {}, "essential": {},
		"avoid": {},
	}
	vagueOpeners = map[string]struct{}{
		"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "however": {},
		"moreover": {}, "furthermore": {}, "additionally": {}, "also": {}, "but": {},
		"and": {}, "so": {}, "thus": {}, "therefore": {}, "hence": {},
	}
)

// Extract returns up to limit distinct facts from texts, in order of appearance.
// A sentence is a fact when it is 15 to 300 runes long, does not open with a
// vague connector, and carries a capitalised word after the first, a digit,
// or an assertive keyword such as "must" or "never".
func Extract(texts []string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	for _, body := range texts {
		for _, sentence := range Sentences(Strip(body)) {
			if !IsFact(sentence) {
				continue
			}
			key := strings.ToLower(strings.Join(strings.Fields(sentence), " "))
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, sentence)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// markdown parses with GitHub extensions so tables, strikethrough and
// autolinks come out as text. Safe for concurrent use.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Strip returns the plain text of a markdown document, one line per block
// and per source line within a paragraph. Code blocks and raw HTML are
// dropped; links and images keep their text.
func Strip(src string) string {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					newline()
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(source))
			}
		case *extast.TableCell:
			if !entering {
				b.WriteByte(' ')
			}
		default:
			if !entering && n.Type() == ast.TypeBlock {
				newline()
			}
		}
		return ast.WalkContinue, nil
	})

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Sentences splits text at '.', '!' or '?' followed by whitespace, and at
// blank lines. Headings and list items without punctuation stay whole.
func Sentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		start := 0
		for i, r := range line {
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			end := i + utf8.RuneLen(r)
			if end < len(line) && line[end] != ' ' && line[end] != '\t' {
				continue
			}
			if s := strings.TrimSpace(line[start:end]); s != "" {
				out = append(out, s)
			}
			start = end
		}
		if s := strings.TrimSpace(line[start:]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsFact reports whether a sentence reads like a standalone statement.
func IsFact(sentence string) bool {
	n := utf8.RuneCountInString(sentence)
	if n < MinSentence || n > MaxSentence {
		return false
	}

	words := strings.Fields(sentence)
	if _, vague := vagueOpeners[normalizeWord(words[0])]; vague {
		return false
	}

	for i, w := range words {
		if i > 0 {
			if r, _ := utf8.DecodeRuneInString(w); unicode.IsUpper(r) {
				return true
			}
		}
		if _, ok := assertive[normalizeWord(w)]; ok {
			return true
		}
	}
	return strings.IndexFunc(sentence, unicode.IsDigit) >= 0
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}
