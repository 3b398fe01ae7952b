package cluster

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Uncategorized labels a cluster with nothing to name it by.
const Uncategorized = "Uncategorized"

// Label length bounds for headings, in runes.
const (
	minHeadingLabel = 3
	maxHeadingLabel = 60
)

var (
	labelHeadingPattern = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*\s*$`)
	tokenPattern        = regexp.MustCompile(`[a-z0-9]+`)
	tagSeparators       = regexp.MustCompile(`[/\-_.]+`)
	titleCaser          = cases.Title(language.English)
)

// Member is the part of a clustered chunk used for labelling.
type Member struct {
	Text      string
	DomainTag string
}

// LabelClusters names each of k clusters. In priority order a label is the
// first markdown heading of 3 to 60 runes in any member, the most frequent
// domain tag title-cased, the three most frequent terms joined with " & ",
// or Uncategorized. Repeated labels get a numeric suffix.
func LabelClusters(members []Member, assignments []int, k int) []string {
	groups := make([][]Member, k)
	for i, c := range assignments {
		groups[c] = append(groups[c], members[i])
	}

	labels := make([]string, k)
	seen := make(map[string]int, k)
	for c, group := range groups {
		label := labelFor(group)
		seen[label]++
		if n := seen[label]; n > 1 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		labels[c] = label
	}
	return labels
}

func labelFor(group []Member) string {
	if len(group) == 0 {
		return Uncategorized
	}
	if h := firstHeading(group); h != "" {
		return h
	}
	if t := topDomainTag(group); t != "" {
		return t
	}
	if terms := TopTerms(texts(group), 3); len(terms) > 0 {
		return strings.Join(terms, " & ")
	}
	return Uncategorized
}

func firstHeading(group []Member) string {
	for _, m := range group {
		for _, line := range strings.Split(m.Text, "\n") {
			match := labelHeadingPattern.FindStringSubmatch(strings.TrimSpace(line))
			if match == nil {
				continue
			}
			text := strings.TrimSpace(match[1])
			if n := utf8.RuneCountInString(text); n >= minHeadingLabel && n <= maxHeadingLabel {
				return text
			}
		}
	}
	return ""
}

func topDomainTag(group []Member) string {
	counts := make(map[string]int)
	var order []string
	for _, m := range group {
		if m.DomainTag == "" {
			continue
		}
		if counts[m.DomainTag] == 0 {
			order = append(order, m.DomainTag)
		}
		counts[m.DomainTag]++
	}

	best := ""
	for _, tag := range order {
		if best == "" || counts[tag] > counts[best] {
			best = tag
		}
	}
	if best == "" {
		return ""
	}

	words := tagSeparators.Split(best, -1)
	parts := words[:0]
	for _, w := range words {
		if w != "" {
			parts = append(parts, titleCaser.String(w))
		}
	}
	return strings.Join(parts, " ")
}

// TopTerms returns the limit most frequent terms across texts.
// Terms are lower-cased alphanumeric runs of at least three characters that
// are not stopwords. Equal counts are ordered alphabetically.
func TopTerms(texts []string, limit int) []string {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
			if len(tok) < 3 || isStopword(tok) {
				continue
			}
			counts[tok]++
		}
	}

	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

func texts(group []Member) []string {
	out := make([]string, len(group))
	for i, m := range group {
		out[i] = m.Text
	}
	return out
}
