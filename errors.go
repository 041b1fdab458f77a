package main

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// AuthStep identifies the handshake step that failed. A failed handshake is
// never resumed; callers retry from the beginning.
type AuthStep int

const (
	AuthQrUnavailable AuthStep = iota
	AuthQrExpired
	AuthTicketInvalid
	AuthLoginFailed
)

func (s AuthStep) String() string {
	switch s {
	case AuthQrUnavailable:
		return "qr unavailable"
	case AuthQrExpired:
		return "qr expired"
	case AuthTicketInvalid:
		return "ticket invalid"
	case AuthLoginFailed:
		return "login failed"
	}
	return "unknown"
}

// AuthError is fatal to the handshake that produced it.
type AuthError struct {
	Step AuthStep
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Step)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func NewAuthError(step AuthStep, err error) error {
	return &AuthError{Step: step, Err: err}
}

// IsAuthStep reports whether err is an AuthError for the given step.
func IsAuthStep(err error, step AuthStep) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Step == step
}

// maxSnippetLen bounds response excerpts carried in errors so logs stay
// readable and order payloads never leak whole.
const maxSnippetLen = 128

// ProtocolError reports an unparsable or unexpectedly shaped response from
// the remote service. Retryable at the step level.
type ProtocolError struct {
	Endpoint string
	Snippet  string
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %v (body: %s)", e.Endpoint, e.Err, e.Snippet)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func NewProtocolError(endpoint string, body []byte, err error) error {
	return &ProtocolError{Endpoint: endpoint, Snippet: truncateSnippet(body), Err: err}
}

func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

func truncateSnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetLen {
		s = s[:maxSnippetLen]
	}
	return s
}

// retryableErrorPatterns contains error message substrings that indicate
// transient network failures.
var retryableErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"context deadline exceeded",
	"TLS handshake timeout",
	"EOF",
	"malformed HTTP response",
	"transport connection broken",
	"use of closed network connection",
}

// IsRetryableError checks if the error is temporary and worth retrying on the
// next loop iteration.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var ae *AuthError
	if errors.As(err, &ae) {
		return false
	}

	if IsProtocolError(err) {
		return true
	}

	if isNetworkTimeout(err) {
		return true
	}

	return containsRetryablePattern(err.Error())
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func containsRetryablePattern(errStr string) bool {
	for _, pattern := range retryableErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
