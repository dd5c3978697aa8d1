package chunking

import (
	"strings"
	"unicode"
)

const (
	DefaultMaxTokens     = 500
	DefaultOverlapTokens = 50
)

// Splitter packs sentences into chunks bounded by MaxTokens. Each chunk after
// the first starts with the trailing OverlapTokens/2 words of its predecessor.
type Splitter struct {
	MaxTokens     int
	OverlapTokens int

	tokenizer Tokenizer
}

func NewSplitter(maxTokens, overlapTokens int, tokenizer Tokenizer) *Splitter {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if overlapTokens >= maxTokens {
		overlapTokens = maxTokens / 4
	}
	if tokenizer == nil {
		tokenizer = WordTokenizer{}
	}
	return &Splitter{
		MaxTokens:     maxTokens,
		OverlapTokens: overlapTokens,
		tokenizer:     tokenizer,
	}
}

func (s *Splitter) Split(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	overlapWords := s.OverlapTokens / 2
	out := make([]string, 0, len(sentences)/8+1)
	current := make([]string, 0, 16)
	currentTokens := 0

	for _, sentence := range sentences {
		sentenceTokens := s.tokenizer.Count(sentence)

		if len(current) > 0 && currentTokens+sentenceTokens > s.MaxTokens {
			closed := strings.Join(current, " ")
			out = append(out, closed)
			current = current[:0]
			currentTokens = 0

			// The seed is skipped when it alone would push the next chunk over the bound.
			if seed := trailingWords(closed, overlapWords); seed != "" {
				seedTokens := s.tokenizer.Count(seed)
				if seedTokens+sentenceTokens <= s.MaxTokens {
					current = append(current, seed)
					currentTokens = seedTokens
				}
			}
		}

		current = append(current, sentence)
		currentTokens += sentenceTokens
	}

	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}

// SplitSentences cuts text after every run of '.', '!' or '?' and drops
// blank fragments. The terminator stays with its sentence.
func SplitSentences(text string) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/80+1)

	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
		}
		if sentence := normalizeSpace(string(runes[start : i+1])); hasWords(sentence) {
			out = append(out, sentence)
		}
		start = i + 1
	}
	if start < len(runes) {
		if sentence := normalizeSpace(string(runes[start:])); hasWords(sentence) {
			out = append(out, sentence)
		}
	}
	return out
}

// hasWords reports whether a fragment holds more than delimiters.
func hasWords(fragment string) bool {
	return strings.IndexFunc(fragment, func(r rune) bool {
		return !isTerminator(r) && !unicode.IsSpace(r)
	}) >= 0
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func trailingWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func normalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
