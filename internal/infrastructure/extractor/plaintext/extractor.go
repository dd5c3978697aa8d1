package plaintext

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/chunking"
)

// Extractor reads UTF-8 text. Form feeds separate pages.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, filename string, data []byte) ([]domain.Page, error) {
	if !utf8.Valid(data) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("unsupported binary format: "+filename))
	}

	var pages []domain.Page
	for i, raw := range strings.Split(string(data), "\f") {
		text := chunking.Clean(raw)
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}
	return pages, nil
}
