package errx

import "net/http"

// Type represents the category of error
type Type string

const (
	TypeInternal      Type = "INTERNAL"
	TypeValidation    Type = "VALIDATION"
	TypeAuthorization Type = "AUTHORIZATION"
	TypeNotFound      Type = "NOT_FOUND"
	TypeConflict      Type = "CONFLICT"

	// TypeRateLimit is returned when a caller exceeded an attempt budget
	TypeRateLimit Type = "RATE_LIMIT"

	// TypeExternal represents failures of a broker or another remote service
	TypeExternal Type = "EXTERNAL"
)

func (t Type) String() string {
	return string(t)
}

// Status is the default HTTP status of the type. Registered codes may override it.
func (t Type) Status() int {
	switch t {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeAuthorization:
		return http.StatusUnauthorized
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeRateLimit:
		return http.StatusTooManyRequests
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
