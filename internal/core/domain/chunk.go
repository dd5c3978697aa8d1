package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

type Chunk struct {
	ChunkID    string    `json:"chunk_id"`
	Text       string    `json:"text"`
	ClassLevel string    `json:"class_level"`
	Subject    string    `json:"subject"`
	Chapter    string    `json:"chapter"`
	PageNumber int       `json:"page_number"`
	WordCount  int       `json:"word_count"`
	TextHash   string    `json:"text_hash,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkMetadata is the light payload kept next to a vector in the index.
type ChunkMetadata struct {
	ClassLevel string `json:"class_level"`
	Subject    string `json:"subject"`
	Chapter    string `json:"chapter"`
	PageNumber int    `json:"page_number"`
	WordCount  int    `json:"word_count"`
}

func (c Chunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		ClassLevel: c.ClassLevel,
		Subject:    c.Subject,
		Chapter:    c.Chapter,
		PageNumber: c.PageNumber,
		WordCount:  c.WordCount,
	}
}

// ChunkID derives the stable identifier of the index-th chunk of a chapter.
// Letters and digits of any script are kept, along with combining marks so
// Bengali vowel signs survive; everything else becomes '_'.
func ChunkID(classLevel, subject, chapter string, index int) string {
	raw := classLevel + "_" + subject + "_" + chapter + "_" + strconv.Itoa(index)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			return r
		}
		return '_'
	}, raw)
}

// TruncateRunes bounds text to at most limit runes.
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}
