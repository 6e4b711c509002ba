package rib

import (
	"errors"
	"fmt"
)

// Error kinds, per spec.md §7. Callers distinguish them with errors.Is.
var (
	// ErrInvalidInput covers malformed prefixes, illegal link-local
	// next-hops, unknown VRFs and similar: rejected before any mutation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrHwUpdateError means the downstream FIB programmer rejected a
	// published snapshot; it triggers the rollback protocol.
	ErrHwUpdateError = errors.New("hardware update rejected")
	// ErrFatalInconsistency means rollback republish failed or a
	// post-commit invariant check failed; not recoverable.
	ErrFatalInconsistency = errors.New("fatal RIB inconsistency")
	// ErrCorruptSnapshot means a snapshot failed structural validation.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrUnknownVRF is returned by operations on a RouterID that was
	// never created via EnsureVRF/Reconfigure.
	ErrUnknownVRF = fmt.Errorf("%w: unknown VRF", ErrInvalidInput)
)

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}

// WrapInvalidConfig builds an ErrInvalidInput-kind error for rejected
// reconfigure input (spec.md §4.5's InvalidConfig), exported for the
// config package's validation.
func WrapInvalidConfig(format string, args ...any) error {
	return wrapf(ErrInvalidInput, format, args...)
}
