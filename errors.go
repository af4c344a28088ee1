package querycache

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed Store.
	ErrClosed = errors.New("querycache: store closed")
	// ErrProviderRejected is recorded when the provider refused a write under pressure.
	ErrProviderRejected = errors.New("querycache: provider rejected write")
	// ErrNoFetcher is returned when a key is fetched without a fetch function
	// and none was registered for it before.
	ErrNoFetcher = errors.New("querycache: no fetch function for key")
)

// FetchError is what a failed fetch leaves on the entry. The previous
// value, if any, stays in place next to it.
type FetchError struct {
	Key       string
	RequestID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q (request %s): %v", e.Key, e.RequestID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// InvalidateError reports a failed generation bump or value delete while
// invalidating or evicting a key. Staleness is applied regardless.
type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
