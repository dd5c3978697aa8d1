package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	key := "abc123_Physics_Chapter_1.pdf"

	if err := store.Save(ctx, key, strings.NewReader("body")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "body" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestOpenRejectsTraversalAndMissing(t *testing.T) {
	store, _ := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../x"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.Open(context.Background(), "missing"); !domain.IsKind(err, domain.ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
}
