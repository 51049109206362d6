package types

import (
	"context"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
)

// Error tags classify provider failures so the coordinator and the job
// queue can decide between retry, token refresh and giving up without
// inspecting provider-specific error types.
var (
	// ErrTagTransient marks failures worth retrying: timeouts, rate
	// limits, 5xx responses, network errors.
	ErrTagTransient = goerr.NewTag("transient")

	// ErrTagAuth marks rejected or expired credentials.
	ErrTagAuth = goerr.NewTag("auth")

	// ErrTagNotFound marks a remote resource that no longer exists.
	ErrTagNotFound = goerr.NewTag("not_found")

	// ErrTagPermanent marks failures that will not succeed on retry,
	// such as validation rejections.
	ErrTagPermanent = goerr.NewTag("permanent")
)

// ErrNotFound is the sentinel every repository backend wraps when a
// requested record does not exist.
var ErrNotFound = goerr.New("record not found", goerr.T(ErrTagNotFound))

// IsTransient reports whether the error should be retried.
func IsTransient(err error) bool {
	if goerr.HasTag(err, ErrTagTransient) {
		return true
	}
	// Deadline expiry without an explicit tag is treated as transient.
	return errors.Is(err, context.DeadlineExceeded)
}

// IsAuthError reports whether the error indicates bad credentials.
func IsAuthError(err error) bool {
	return goerr.HasTag(err, ErrTagAuth)
}

// IsNotFound reports whether the remote resource is gone.
func IsNotFound(err error) bool {
	return goerr.HasTag(err, ErrTagNotFound)
}

// TagForStatus maps an HTTP response status to a tagging option for
// goerr.New or goerr.Wrap.
func TagForStatus(status int) goerr.Option {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return goerr.T(ErrTagAuth)
	case status == http.StatusNotFound || status == http.StatusGone:
		return goerr.T(ErrTagNotFound)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return goerr.T(ErrTagTransient)
	default:
		return goerr.T(ErrTagPermanent)
	}
}
