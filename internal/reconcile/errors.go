package reconcile

import (
	"errors"
	"fmt"
)

var ErrCancelled = errors.New("sync cancelled")

// SyncError wraps a provider failure. The store is never touched when one is returned.
type SyncError struct {
	Provider string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s sync failed: %v", e.Provider, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
