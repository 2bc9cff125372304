package relay

import (
	"strings"
)

// ErrorClass represents whether a delivery failure is permanent or transient.
type ErrorClass int

const (
	// ErrorClassTransient indicates a retry on a later cycle may succeed.
	ErrorClassTransient ErrorClass = iota
	// ErrorClassPermanent indicates the target message is gone for good.
	ErrorClassPermanent
	// ErrorClassUnknown indicates the error type cannot be determined.
	ErrorClassUnknown
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ClassifyDeliveryError classifies Bot API relay errors.
//
// Permanent errors (the video no longer exists or can never be copied):
// - message to copy / forward not found
// - message can't be forwarded, message id invalid
// - chat not found, bot blocked by the user
//
// Transient errors:
// - rate limiting (429, retry after)
// - network failures, timeouts, 5xx
//
// Unknown errors are treated as transient: the cursor advances either way,
// so misclassification only affects the wording shown to the user.
func ClassifyDeliveryError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}

	lower := strings.ToLower(err.Error())

	permanentPatterns := []string{
		"message to copy not found",
		"message to forward not found",
		"message not found",
		"message can't be forwarded",
		"message_id_invalid",
		"message to be replied not found",
		"chat not found",
		"bot was blocked",
		"user is deactivated",
	}
	for _, pattern := range permanentPatterns {
		if strings.Contains(lower, pattern) {
			return ErrorClassPermanent
		}
	}

	transientPatterns := []string{
		"too many requests",
		"retry after",
		"429",
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"bad gateway",
		"service unavailable",
		"gateway timeout",
		"internal server error",
		"eof",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(lower, pattern) {
			return ErrorClassTransient
		}
	}

	return ErrorClassTransient
}

// IsPermanentDeliveryError reports whether the target video is gone for good.
func IsPermanentDeliveryError(err error) bool {
	return ClassifyDeliveryError(err) == ErrorClassPermanent
}
