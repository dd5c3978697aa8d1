package domain

import (
	"errors"
	"strings"
)

type RetrievalFilter struct {
	ClassLevel string `json:"class_level"`
	Subject    string `json:"subject,omitempty"`
	Chapter    string `json:"chapter,omitempty"`
}

func (f RetrievalFilter) Normalize() RetrievalFilter {
	return RetrievalFilter{
		ClassLevel: strings.TrimSpace(f.ClassLevel),
		Subject:    strings.TrimSpace(f.Subject),
		Chapter:    strings.TrimSpace(f.Chapter),
	}
}

func (f RetrievalFilter) Validate() error {
	if strings.TrimSpace(f.ClassLevel) == "" {
		return WrapError(ErrInvalidInput, "validate filter", errors.New("class_level is required"))
	}
	return nil
}

// RequireChapter validates the exact (class, subject, chapter) scope used by
// derived-content generation.
func (f RetrievalFilter) RequireChapter() error {
	if err := f.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(f.Subject) == "" {
		return WrapError(ErrInvalidInput, "validate filter", errors.New("subject is required"))
	}
	if strings.TrimSpace(f.Chapter) == "" {
		return WrapError(ErrInvalidInput, "validate filter", errors.New("chapter is required"))
	}
	return nil
}

// Matches reports whether meta satisfies every field set on the filter.
func (f RetrievalFilter) Matches(meta ChunkMetadata) bool {
	if f.ClassLevel != "" && f.ClassLevel != meta.ClassLevel {
		return false
	}
	if f.Subject != "" && f.Subject != meta.Subject {
		return false
	}
	if f.Chapter != "" && f.Chapter != meta.Chapter {
		return false
	}
	return true
}

// Fields returns the set filter fields keyed by their metadata name.
func (f RetrievalFilter) Fields() map[string]string {
	out := make(map[string]string, 3)
	if f.ClassLevel != "" {
		out["class_level"] = f.ClassLevel
	}
	if f.Subject != "" {
		out["subject"] = f.Subject
	}
	if f.Chapter != "" {
		out["chapter"] = f.Chapter
	}
	return out
}

type VectorHit struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

type RetrievalMatch struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
	Chunk   *Chunk  `json:"chunk"`
}

type Answer struct {
	Text       string           `json:"text"`
	Confidence int              `json:"confidence"`
	Sources    []RetrievalMatch `json:"sources"`
	Query      string           `json:"query"`
	Filter     RetrievalFilter  `json:"filter"`
}

type CompletionRequest struct {
	Operation   string
	System      string
	User        string
	MaxTokens   int
	Temperature float32
	JSON        bool
}
