package errors

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInvalidToken            = errors.New("invalid token")
	ErrForbidden               = errors.New("forbidden")
	ErrGroupNotFound           = errors.New("group not found")
	ErrStoreUnavailable        = errors.New("record store unavailable")
	ErrAttachmentUploadFailed  = errors.New("attachment upload failed")
	ErrAuthorizationResolution = errors.New("authorization resolution failed")
)

// HTTPStatusFromError maps domain errors to HTTP status codes at the
// handler boundary.
func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrGroupNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrAuthorizationResolution):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrAttachmentUploadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
