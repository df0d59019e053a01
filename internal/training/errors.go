package training

import (
	"fmt"

	"github.com/abishek0504/iron-path-app-sub003/internal/errors"
)

var (
	// ErrInvalidArgument is returned for malformed or ambiguous caller input.
	ErrInvalidArgument = errors.NewSentinel("invalid argument")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrNotApplicable is returned when a well-formed request yields no recommendation because curated data is
	// missing. It is a designed outcome, not a fault.
	ErrNotApplicable = errors.NewSentinel("not applicable")
	// ErrUpstreamUnavailable wraps storage failures. Callers may retry.
	ErrUpstreamUnavailable = errors.NewSentinel("upstream unavailable")
)

// upstream marks err as an infrastructure failure.
func upstream(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}
