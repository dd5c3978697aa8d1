package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/chunking"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the cleaned plain text of every non-empty page.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (pages []domain.Page, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s: malformed pdf: %v", filename, r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s: %w", filename, err))
	}

	fonts := make(map[string]*pdf.Font)
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		raw, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s page %d: %w", filename, i, err))
		}
		text := chunking.Clean(raw)
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return pages, nil
}
