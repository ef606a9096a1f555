package ejson

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Error types for user-facing errors
var (
	ErrCommandFailed     = errors.New("command failed")
	ErrMissingPrivateKey = errors.New("No provided private key for decryption")
	ErrMissingPublicKey  = errors.New("Not found public key in ejson file")
	ErrInvalidPublicKey  = errors.New("invalid public key")
)

// RedactedError wraps an error with a message that has secrets and user
// paths removed, while preserving the error chain for errors.Is/errors.As.
type RedactedError struct {
	message string
	wrapped error
}

// Error returns the redacted error message.
func (e *RedactedError) Error() string {
	return e.message
}

// Unwrap returns the wrapped error, preserving the error chain.
func (e *RedactedError) Unwrap() error {
	return e.wrapped
}

var (
	homePattern  = regexp.MustCompile(`/home/[^/\s]+`)
	usersPattern = regexp.MustCompile(`/Users/[^/\s]+`)
)

// translateCommandError builds the error for a failed tool invocation.
func translateCommandError(tool string, runErr error, res *Result, secrets ...string) error {
	if errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("operation cancelled: %w", context.Canceled)
	}
	if errors.Is(runErr, context.DeadlineExceeded) {
		return fmt.Errorf("operation timed out: %w", context.DeadlineExceeded)
	}

	var detail string
	switch {
	case runErr != nil:
		detail = runErr.Error()
	case strings.TrimSpace(res.Stderr) != "":
		detail = strings.TrimSpace(res.Stderr)
	default:
		detail = fmt.Sprintf("%s exited with status %d", tool, res.ExitCode)
	}

	return &RedactedError{
		message: fmt.Sprintf("%s: %s", ErrCommandFailed, redactSensitiveInfo(detail, secrets...)),
		wrapped: ErrCommandFailed,
	}
}

// redactSensitiveInfo removes secrets and user home paths from msg and
// limits its length.
func redactSensitiveInfo(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, "***")
		}
	}

	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" && home != "/" {
		msg = strings.ReplaceAll(msg, home, "$HOME")
	}
	msg = homePattern.ReplaceAllString(msg, "/home/<user>")
	msg = usersPattern.ReplaceAllString(msg, "/Users/<user>")

	return msg
}
