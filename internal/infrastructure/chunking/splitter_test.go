package chunking

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func syntheticText(sentences, wordsPerSentence int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		for j := 0; j < wordsPerSentence; j++ {
			if j > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "s%dw%d", i, j)
		}
		b.WriteString(". ")
	}
	return b.String()
}

func TestSplitTwelveHundredWordsIntoThreeChunks(t *testing.T) {
	splitter := NewSplitter(500, 50, WordTokenizer{})

	chunks := splitter.Split(syntheticText(120, 10))

	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		require.LessOrEqualf(t, WordTokenizer{}.Count(chunk), 500, "chunk %d exceeds bound", i)
	}

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	require.Equal(t, first[len(first)-25:], second[:25])
}

func TestSplitRespectsBoundAndOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var b strings.Builder
	for i := 0; i < 300; i++ {
		n := 1 + rng.Intn(60)
		for j := 0; j < n; j++ {
			fmt.Fprintf(&b, "t%d_%d ", i, j)
		}
		b.WriteString([]string{".", "!", "?"}[rng.Intn(3)])
		b.WriteString(" ")
	}

	const maxTokens, overlap = 100, 20
	splitter := NewSplitter(maxTokens, overlap, WordTokenizer{})
	chunks := splitter.Split(b.String())
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		require.LessOrEqualf(t, WordTokenizer{}.Count(chunk), maxTokens, "chunk %d exceeds bound", i)
		if i == 0 {
			continue
		}
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunk)
		want := prev
		if len(prev) > overlap/2 {
			want = prev[len(prev)-overlap/2:]
		}
		require.Equalf(t, want, cur[:len(want)], "chunk %d does not start with previous tail", i)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	text := syntheticText(57, 13)
	splitter := NewSplitter(120, 30, WordTokenizer{})

	require.Equal(t, splitter.Split(text), splitter.Split(text))
}

func TestSplitKeepsOverlongSentenceIntact(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("long ", 14)) + " end."
	text := "a b c. " + long + " x y."

	chunks := NewSplitter(10, 8, WordTokenizer{}).Split(text)

	require.Len(t, chunks, 3)
	require.Equal(t, "a b c.", chunks[0])
	require.Equal(t, long, chunks[1])
	require.Equal(t, "long long long end. x y.", chunks[2])
}

func TestSplitEmptyText(t *testing.T) {
	require.Nil(t, NewSplitter(0, 0, nil).Split("   \n\t "))
}

func TestNewSplitterNormalizesParameters(t *testing.T) {
	s := NewSplitter(0, -1, nil)
	require.Equal(t, DefaultMaxTokens, s.MaxTokens)
	require.Equal(t, 0, s.OverlapTokens)

	s = NewSplitter(40, 40, nil)
	require.Equal(t, 10, s.OverlapTokens)
}

func TestSplitSentencesDropsBlankFragments(t *testing.T) {
	got := SplitSentences("First one.  Second?! \n\n Third!   . trailing words")
	require.Equal(t, []string{"First one.", "Second?!", "Third!", "trailing words"}, got)

	require.Empty(t, SplitSentences(" . ?! ... "))
	require.Equal(t, []string{"Only this."}, SplitSentences("... Only this. !"))
}

func TestCleanRemovesPageMarkers(t *testing.T) {
	raw := "Motion is change.\n12\nPage 4 Velocity   is speed\n\twith direction. পৃষ্ঠা 9"
	require.Equal(t, "Motion is change. Velocity is speed with direction.", Clean(raw))
}
