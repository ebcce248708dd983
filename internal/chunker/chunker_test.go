package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{
			name:     "empty input",
			text:     "",
			maxChars: 100,
			want:     nil,
		},
		{
			name:     "whitespace only",
			text:     "   \n\t  ",
			maxChars: 100,
			want:     nil,
		},
		{
			name:     "single sentence",
			text:     "Hello.",
			maxChars: 1000,
			want:     []string{"Hello."},
		},
		{
			name:     "two sentences fit in one chunk",
			text:     "First sentence. Second sentence!",
			maxChars: 1000,
			want:     []string{"First sentence. Second sentence."},
		},
		{
			name:     "flush on overflow",
			text:     "aaaa. bbbb. cccc.",
			maxChars: 8,
			want:     []string{"aaaa.", "bbbb.", "cccc."},
		},
		{
			name:     "two per chunk",
			text:     "aaaa. bbbb. cccc. dddd.",
			maxChars: 12,
			want:     []string{"aaaa. bbbb.", "cccc. dddd."},
		},
		{
			name:     "repeated terminators collapse",
			text:     "Really?! Are you sure... Yes.",
			maxChars: 1000,
			want:     []string{"Really. Are you sure. Yes."},
		},
		{
			name:     "oversized sentence kept whole",
			text:     strings.Repeat("x", 50) + ". Short one.",
			maxChars: 20,
			want:     []string{strings.Repeat("x", 50) + ".", "Short one."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.maxChars)
			require.Len(t, chunks, len(tt.want))
			for i, chunk := range chunks {
				assert.Equal(t, tt.want[i], chunk.Text)
				assert.Equal(t, i, chunk.Index)
			}
		})
	}
}

func TestSplitPreservesSentenceOrder(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "Sentence number %02d carries some study material. ", i)
	}

	chunks := Split(sb.String(), 200)
	require.NotEmpty(t, chunks)

	joined := ""
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Index)
		joined += chunk.Text + " "
	}
	for i := 0; i < 40; i++ {
		assert.Contains(t, joined, fmt.Sprintf("Sentence number %02d", i))
	}
	// Order across chunk boundaries must match the input.
	assert.Less(t, strings.Index(joined, "number 00"), strings.Index(joined, "number 39"))
}

func TestSplitRespectsBound(t *testing.T) {
	text := strings.Repeat("A reasonably sized sentence about mitochondria. ", 60)
	const maxChars = 300

	for _, chunk := range Split(text, maxChars) {
		// Allow the trailing separator appended after the last sentence.
		assert.LessOrEqual(t, len(chunk.Text), maxChars+2)
	}
}

func TestSplitZeroMaxUsesDefault(t *testing.T) {
	chunks := Split("One. Two.", 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "One. Two.", chunks[0].Text)
}
