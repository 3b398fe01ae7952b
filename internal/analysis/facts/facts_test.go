package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	in := "## Setup\n- Read the **install** guide at [docs](https://x.y)\n```sh\nmake all\n```\nRun `go test` now."

	assert.Equal(t, "Setup\nRead the install guide at docs\nRun go test now.", Strip(in))
}

func TestStrip_Markup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "snake_case identifiers",
			in:   "Set max_summary_input and dedup_threshold in config.toml before running.",
			want: "Set max_summary_input and dedup_threshold in config.toml before running.",
		},
		{
			name: "underscore emphasis",
			in:   "Keep _two_ months of __rent__ aside.",
			want: "Keep two months of rent aside.",
		},
		{
			name: "tilde fence",
			in:   "Intro line.\n~~~\n# not a heading\n~~~\nOutro line.",
			want: "Intro line.\nOutro line.",
		},
		{
			name: "image and autolink",
			in:   "See ![the chart](c.png) at <https://example.com>.",
			want: "See the chart at https://example.com.",
		},
		{
			name: "paragraph lines stay separate",
			in:   "First line\nsecond line",
			want: "First line\nsecond line",
		},
		{
			name: "raw html dropped",
			in:   "<div>\nhidden\n</div>\n\nShown text.",
			want: "Shown text.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Strip(tt.in))
		})
	}
}

func TestExtract_KeepsIdentifiers(t *testing.T) {
	got := Extract([]string{"Raise dedup_threshold to 0.95 for noisy corpora."}, 10)

	assert.Equal(t, []string{"Raise dedup_threshold to 0.95 for noisy corpora."}, got)
}

func TestSentences(t *testing.T) {
	got := Sentences("Version 2.5 ships today. Is it ready? Yes!\nSecond line without stop")

	assert.Equal(t, []string{
		"Version 2.5 ships today.",
		"Is it ready?",
		"Yes!",
		"Second line without stop",
	}, got)
}

func TestIsFact(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		want     bool
	}{
		{"digit", "The loan term is 30 years.", true},
		{"capitalised word", "Savings are held at Monzo for now.", true},
		{"assertive keyword", "you must log every expense daily.", true},
		{"plain prose", "the weather was nice and calm today.", false},
		{"too short", "Paid 5 now.", false},
		{"vague opener", "This means Alice pays 20 percent.", false},
		{"vague opener with comma", "However, the Bank must approve it.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFact(tt.sentence))
		})
	}
}

func TestExtract_DedupesAndCaps(t *testing.T) {
	texts := []string{
		"# Budget\nRent is due on the 1st of each month. Rent  is due on the 1st of each month.",
		"rent is due on the 1st of each MONTH. Always keep 3 months of expenses saved.",
	}

	got := Extract(texts, 10)
	assert.Equal(t, []string{
		"Rent is due on the 1st of each month.",
		"Always keep 3 months of expenses saved.",
	}, got)

	assert.Len(t, Extract(texts, 1), 1)
	assert.Nil(t, Extract(texts, 0))
}

func TestExtract_Limit(t *testing.T) {
	var texts []string
	for i := 0; i < 20; i++ {
		texts = append(texts, "Step "+string(rune('A'+i))+" must run before deploying anything.")
	}

	assert.Len(t, Extract(texts, 10), 10)
}
