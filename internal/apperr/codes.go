package apperr

import "net/http"

type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeUnauthenticated   Code = "UNAUTHENTICATED"
	CodePermissionDenied  Code = "PERMISSION_DENIED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeResourceExhausted Code = "RESOURCE_EXHAUSTED"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeInternal          Code = "INTERNAL"
)

var httpStatus = map[Code]int{
	CodeInvalidArgument:   http.StatusBadRequest,
	CodeUnauthenticated:   http.StatusUnauthorized,
	CodePermissionDenied:  http.StatusForbidden,
	CodeNotFound:          http.StatusNotFound,
	CodeResourceExhausted: http.StatusTooManyRequests,
	CodeUnavailable:       http.StatusServiceUnavailable,
	CodeInternal:          http.StatusInternalServerError,
}
