package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownID         = errors.New("unknown item id")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyRunning    = errors.New("rename run already in progress")
	ErrUpstream          = errors.New("naming service failure")
	ErrArchiveIO         = errors.New("archive content fetch failed")
	ErrNothingToArchive  = errors.New("no renamed items to archive")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
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
