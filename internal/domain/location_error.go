package domain

import "fmt"

// LocationErrorKind classifies a failed geolocation attempt.
type LocationErrorKind string

const (
	LocationDenied      LocationErrorKind = "denied"
	LocationUnavailable LocationErrorKind = "unavailable"
	LocationTimeout     LocationErrorKind = "timeout"
)

// Platform error codes as reported by browser geolocation.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

var remediation = map[LocationErrorKind]string{
	LocationDenied:      "Location permission denied. Please enable location access in your browser settings, or search for your area instead.",
	LocationUnavailable: "Your location could not be determined right now. Please search for your area instead.",
	LocationTimeout:     "Getting your location took too long. Please try again, or search for your area instead.",
}

// LocationError is the classified, user-facing failure of a geolocation
// request. Code preserves the raw platform code for diagnostics.
type LocationError struct {
	Kind    LocationErrorKind `json:"kind"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("geolocation %s (code %d): %s", e.Kind, e.Code, e.Message)
}

// NewLocationError builds a LocationError carrying the remediation text for
// kind.
func NewLocationError(kind LocationErrorKind, code int) *LocationError {
	return &LocationError{Kind: kind, Code: code, Message: remediation[kind]}
}

// ClassifyPlatformCode maps a raw platform code to a LocationError. Unknown
// codes are treated as "unavailable".
func ClassifyPlatformCode(code int) *LocationError {
	switch code {
	case CodePermissionDenied:
		return NewLocationError(LocationDenied, code)
	case CodeTimeout:
		return NewLocationError(LocationTimeout, code)
	default:
		return NewLocationError(LocationUnavailable, code)
	}
}
