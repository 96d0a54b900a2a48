package status

import (
	"errors"
	"fmt"
)

var (
	ErrNoAccessToken = errors.New("auth: no access token available")
	ErrRefreshFailed = errors.New("auth: failed to refresh token")
	ErrLoginFailed   = errors.New("auth: login rejected")
)

// RetryError reports a request that still failed after the post-refresh
// retry. The session itself is valid, so callers should not force a logout.
type RetryError struct {
	Status int
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("auth: request failed after token refresh: status %d", e.Status)
}
