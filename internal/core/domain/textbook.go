package domain

import "time"

type IngestRequest struct {
	Filename    string
	ContentType string
	Body        []byte
	ClassLevel  string
	Subject     string
	ChapterName string
}

type IngestResult struct {
	ChunksCount int    `json:"chunks_count"`
	ClassLevel  string `json:"class_level"`
	Subject     string `json:"subject"`
	ChapterName string `json:"chapter_name"`
	ContentHash string `json:"content_hash"`
	Duplicate   bool   `json:"duplicate"`
}

// TextbookRecord remembers which source bytes produced a chapter's chunks.
type TextbookRecord struct {
	ClassLevel  string    `json:"class_level"`
	Subject     string    `json:"subject"`
	Chapter     string    `json:"chapter"`
	ContentHash string    `json:"content_hash"`
	Filename    string    `json:"filename"`
	StorageKey  string    `json:"storage_key"`
	ChunksCount int       `json:"chunks_count"`
	IngestedAt  time.Time `json:"ingested_at"`
}

type IngestJob struct {
	ID          string    `json:"id"`
	StorageKey  string    `json:"storage_key"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type,omitempty"`
	ClassLevel  string    `json:"class_level"`
	Subject     string    `json:"subject"`
	ChapterName string    `json:"chapter_name,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Page is the cleaned text of one source page, numbered from 1.
type Page struct {
	Number int
	Text   string
}
