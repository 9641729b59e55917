package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/xserver-renew/internal/domain"
)

// staleMarkers are DevTools protocol messages for nodes that went away
// between lookup and use.
var staleMarkers = []string{
	"No node with given id found",
	"Could not find node with given id",
	"Node is detached from document",
	"Node with given id does not belong to the document",
	"Cannot find context with specified id",
	"Cannot find object with id",
}

// classify maps driver errors onto the domain taxonomy. parent is the
// caller's context; its own cancellation is reported unchanged.
func classify(parent context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if parentErr := parent.Err(); parentErr != nil {
		return fmt.Errorf("%s: %w", op, parentErr)
	}
	if errors.Is(err, domain.ErrStaleReference) || errors.Is(err, domain.ErrElementNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, domain.ErrElementNotFound)
	}
	if isStale(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStaleReference, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func isStale(err error) bool {
	msg := err.Error()
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
