package chunking

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultEncoding = "cl100k_base"

// Tokenizer counts model tokens in a piece of text.
type Tokenizer interface {
	Count(text string) int
}

// WordTokenizer approximates tokens by whitespace-separated words.
type WordTokenizer struct{}

func (WordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// BPETokenizer counts tokens with the byte-pair encoding used by the OpenAI
// embedding model family.
type BPETokenizer struct {
	encoding string
	enc      *tiktoken.Tiktoken
}

func NewBPETokenizer(encoding string) (*BPETokenizer, error) {
	if strings.TrimSpace(encoding) == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", encoding, err)
	}
	return &BPETokenizer{encoding: encoding, enc: enc}, nil
}

func (t *BPETokenizer) Encoding() string {
	return t.encoding
}

func (t *BPETokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}
