package chat

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("invalid request")
	ErrNoLinksFound     = errors.New("no links found")
	ErrNoContent        = errors.New("no content found to process")
	ErrNoValidDocuments = errors.New("no valid documents to process")
	ErrTimeout          = errors.New("upstream timeout")
	ErrExternal         = errors.New("upstream service error")
)

// classify wraps a collaborator failure as ErrTimeout or ErrExternal.
func classify(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", stage, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", stage, ErrExternal, err)
}
