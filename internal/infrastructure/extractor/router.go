// Package extractor picks a text extractor by file format.
package extractor

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/core/ports"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/extractor/plaintext"
)

var pdfMagic = []byte("%PDF-")

type Router struct {
	pdf  ports.TextExtractor
	text ports.TextExtractor
}

func NewRouter() *Router {
	return &Router{pdf: pdf.NewExtractor(), text: plaintext.NewExtractor()}
}

func (r *Router) Extract(ctx context.Context, filename string, data []byte) ([]domain.Page, error) {
	if IsPDF(filename, data) {
		return r.pdf.Extract(ctx, filename, data)
	}
	return r.text.Extract(ctx, filename, data)
}

func IsPDF(filename string, data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic) || strings.EqualFold(filepath.Ext(filename), ".pdf")
}
