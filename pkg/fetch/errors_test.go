package fetch

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want []string
	}{
		{
			name: "with status code",
			err: &Error{
				ID:         "42",
				StatusCode: 503,
				Class:      ErrorClassServer,
				Err:        errors.New("unexpected status 503 Service Unavailable"),
			},
			want: []string{"server", "42", "503"},
		},
		{
			name: "network error without status",
			err: &Error{
				ID:    "7",
				Class: ErrorClassNetwork,
				Err:   errors.New("connection refused"),
			},
			want: []string{"network", "7", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, part := range tt.want {
				if !strings.Contains(msg, part) {
					t.Errorf("Error() = %q, want it to contain %q", msg, part)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("timeout")
	err := &Error{ID: "1", Class: ErrorClassNetwork, Err: inner}

	if !errors.Is(err, inner) {
		t.Errorf("errors.Is() = false, want unwrapping to reach the inner error")
	}
}

func TestClassOf(t *testing.T) {
	fe := &Error{ID: "1", Class: ErrorClassDecode, Err: errors.New("bad json")}
	wrapped := fmt.Errorf("attempt failed: %w", fe)

	if got := classOf(wrapped); got != ErrorClassDecode {
		t.Errorf("classOf(wrapped *Error) = %q, want %q", got, ErrorClassDecode)
	}
	if got := classOf(errors.New("plain")); got != ErrorClassNetwork {
		t.Errorf("classOf(plain error) = %q, want fallback %q", got, ErrorClassNetwork)
	}
}
