package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork            = errors.New("network failure")
	ErrValidation         = errors.New("validation failed")
	ErrAuth               = errors.New("authentication failed")
	ErrViewerCapability   = errors.New("viewer not supported")
	ErrDocumentConversion = errors.New("document not viewable")
	ErrStaleResponse      = errors.New("stale response")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
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

// UserMessage returns the most specific user-facing text carried by err,
// or fallback when err does not carry one.
func UserMessage(err error, fallback string) string {
	var carrier interface{ UserMessage() string }
	if errors.As(err, &carrier) {
		if msg := carrier.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
