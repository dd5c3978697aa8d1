package httpadapter

import "github.com/kirillkom/nctb-tutor/internal/core/domain"

type healthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	Version        string `json:"version"`
	RAGInitialized bool   `json:"rag_initialized"`
	RAGState       string `json:"rag_state"`
	Timestamp      string `json:"timestamp"`
}

type curriculumResponse struct {
	Status     string            `json:"status"`
	Curriculum domain.Curriculum `json:"curriculum"`
}

type uploadResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ChunksCount int    `json:"chunks_count"`
	ClassLevel  string `json:"class_level"`
	Subject     string `json:"subject"`
	ChapterName string `json:"chapter_name"`
	Duplicate   bool   `json:"duplicate"`
	ContentHash string `json:"content_hash,omitempty"`
	JobID       string `json:"job_id,omitempty"`
}

// chunkView is the flat chunk shape returned by search and as answer sources.
type chunkView struct {
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	ClassLevel string  `json:"class_level"`
	Subject    string  `json:"subject"`
	Chapter    string  `json:"chapter"`
	PageNumber int     `json:"page_number"`
	WordCount  int     `json:"word_count"`
}

type askQuestionResponse struct {
	Status            string      `json:"status"`
	Answer            string      `json:"answer"`
	Confidence        int         `json:"confidence"`
	SourceChunksCount int         `json:"source_chunks_count"`
	Sources           []chunkView `json:"sources"`
	Query             string      `json:"query"`
	ClassLevel        string      `json:"class_level"`
	Subject           string      `json:"subject"`
	Chapter           string      `json:"chapter"`
}

type searchContentResponse struct {
	Status     string      `json:"status"`
	Chunks     []chunkView `json:"chunks"`
	TotalFound int         `json:"total_found"`
	Query      string      `json:"query"`
	ClassLevel string      `json:"class_level"`
	Subject    string      `json:"subject"`
	Chapter    string      `json:"chapter"`
}

type summaryResponse struct {
	Status       string `json:"status"`
	Summary      string `json:"summary"`
	Chapter      string `json:"chapter"`
	ClassLevel   string `json:"class_level"`
	Subject      string `json:"subject"`
	SourceChunks int    `json:"source_chunks"`
}

type quizResponse struct {
	Status       string       `json:"status"`
	Quiz         *domain.Quiz `json:"quiz"`
	Chapter      string       `json:"chapter"`
	ClassLevel   string       `json:"class_level"`
	Subject      string       `json:"subject"`
	SourceChunks int          `json:"source_chunks"`
}

func toChunkViews(matches []domain.RetrievalMatch) []chunkView {
	out := make([]chunkView, 0, len(matches))
	for _, m := range matches {
		view := chunkView{ChunkID: m.ChunkID, Score: m.Score}
		if m.Chunk != nil {
			view.Text = m.Chunk.Text
			view.ClassLevel = m.Chunk.ClassLevel
			view.Subject = m.Chunk.Subject
			view.Chapter = m.Chunk.Chapter
			view.PageNumber = m.Chunk.PageNumber
			view.WordCount = m.Chunk.WordCount
		}
		out = append(out, view)
	}
	return out
}
