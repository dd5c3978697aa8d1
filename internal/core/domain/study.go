package domain

type Summary struct {
	Text             string `json:"text"`
	Chapter          string `json:"chapter"`
	ClassLevel       string `json:"class_level"`
	Subject          string `json:"subject"`
	SourceChunkCount int    `json:"source_chunk_count"`
}

type MCQ struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type ShortQuestion struct {
	Question     string `json:"question"`
	SampleAnswer string `json:"sample_answer"`
}

type Quiz struct {
	MCQs           []MCQ           `json:"mcqs"`
	ShortQuestions []ShortQuestion `json:"short_questions"`
	RawContent     string          `json:"raw_content,omitempty"`

	SourceChunkCount int `json:"-"`
}
