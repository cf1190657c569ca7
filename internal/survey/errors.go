package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

// Sentinel errors for survey backend failures.
var (
	ErrUnreachable = errors.New("survey backend unreachable")
	ErrTimeout     = errors.New("survey backend timeout")
	ErrBackend     = errors.New("survey backend error")
	ErrBadResponse = errors.New("survey backend returned an invalid response")
)

// APIError is a non-2xx response from the backend. Message is taken from the
// JSON body when the backend provides one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("survey backend error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return ErrBackend }

// newAPIError reads at most 64KiB of body to extract the backend's message.
func newAPIError(status int, body io.Reader) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(body, 64<<10))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(raw, &payload) == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
