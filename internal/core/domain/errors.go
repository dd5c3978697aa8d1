package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrContentNotFound    = errors.New("no content found")
	ErrUpstreamService    = errors.New("upstream service error")
	ErrMalformedOutput    = errors.New("malformed model output")
	ErrServiceDegraded    = errors.New("RAG pipeline not initialized")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
