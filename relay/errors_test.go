package relay

import (
	"errors"
	"testing"
)

func TestClassifyDeliveryError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want ErrorClass
	}{
		{"copy target gone", "Bad Request: message to copy not found", ErrorClassPermanent},
		{"forward target gone", "Bad Request: message to forward not found", ErrorClassPermanent},
		{"invalid id", "Bad Request: MESSAGE_ID_INVALID", ErrorClassPermanent},
		{"chat gone", "Bad Request: chat not found", ErrorClassPermanent},
		{"blocked", "Forbidden: bot was blocked by the user", ErrorClassPermanent},
		{"rate limited", "Too Many Requests: retry after 30", ErrorClassTransient},
		{"timeout", "Post \"https://api.telegram.org\": context deadline exceeded (Client.Timeout exceeded)", ErrorClassTransient},
		{"conn reset", "read tcp: connection reset by peer", ErrorClassTransient},
		{"bad gateway", "Bad Gateway", ErrorClassTransient},
		{"unrecognized", "something odd happened", ErrorClassTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDeliveryError(errors.New(tt.msg))
			if got != tt.want {
				t.Errorf("ClassifyDeliveryError(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassifyNilError(t *testing.T) {
	if got := ClassifyDeliveryError(nil); got != ErrorClassUnknown {
		t.Errorf("ClassifyDeliveryError(nil) = %v, want unknown", got)
	}
}

func TestIsPermanentDeliveryError(t *testing.T) {
	if !IsPermanentDeliveryError(errors.New("message to copy not found")) {
		t.Errorf("gone message not classified permanent")
	}
	if IsPermanentDeliveryError(errors.New("retry after 5")) {
		t.Errorf("rate limit classified permanent")
	}
}

func TestErrorClassString(t *testing.T) {
	if ErrorClassPermanent.String() != "permanent" || ErrorClassTransient.String() != "transient" || ErrorClassUnknown.String() != "unknown" {
		t.Errorf("ErrorClass.String() mismatch")
	}
}
