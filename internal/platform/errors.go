package platform

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxErrorLength bounds diagnostics copied from external tools into task records.
const MaxErrorLength = 300

var (
	// ErrNotFound is returned for unknown task ids and unresolvable artifacts.
	ErrNotFound = errors.New("not found")

	// ErrAdapterTimeout marks an adapter invocation that exceeded its bound.
	ErrAdapterTimeout = errors.New("adapter timed out")

	// ErrAdapterFailure marks any other adapter-side failure.
	ErrAdapterFailure = errors.New("adapter failed")

	// ErrUnknownPlatform is wrapped in a ValidationError when no adapter is registered.
	ErrUnknownPlatform = errors.New("unknown platform")
)

// ValidationError rejects a request before any task is created.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RateLimitedError is returned when admission is denied.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %d seconds", e.RetryAfterSeconds())
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1.
func (e *RateLimitedError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Error is a classified adapter error. Kind is ErrAdapterTimeout or ErrAdapterFailure.
type Error struct {
	Platform string
	Kind     error
	Message  string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Timeout reports that the platform's bounded operation ran out of time.
func Timeout(platform string, after time.Duration) *Error {
	return &Error{
		Platform: platform,
		Kind:     ErrAdapterTimeout,
		Message:  fmt.Sprintf("%s download timed out after %s", DisplayName(platform), after),
	}
}

// Failure reports an adapter failure with a truncated diagnostic.
func Failure(platform, format string, args ...any) *Error {
	return &Error{
		Platform: platform,
		Kind:     ErrAdapterFailure,
		Message:  Truncate(fmt.Sprintf(format, args...), MaxErrorLength),
	}
}

// Classify converts any error returned by an adapter into an *Error.
func Classify(platform string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Platform == "" {
			pe.Platform = platform
		}
		pe.Message = Truncate(pe.Message, MaxErrorLength)
		return pe
	}
	return Failure(platform, "%s download failed: %v", DisplayName(platform), err)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// DisplayName returns the human form of a platform key.
func DisplayName(platform string) string {
	switch platform {
	case "youtube":
		return "YouTube"
	case "tiktok":
		return "TikTok"
	case "":
		return "Adapter"
	}
	return strings.ToUpper(platform[:1]) + platform[1:]
}
