package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransientNetwork marks timeouts and connection resets. Eligible for
	// the single in-candidate fetch retry.
	ErrTransientNetwork = errors.New("transient network error")
	// ErrPermanentFetch marks 4xx responses and robots denials. The candidate
	// is abandoned, never retried.
	ErrPermanentFetch = errors.New("permanent fetch error")
	// ErrParse marks structural extraction that found nothing usable.
	ErrParse = errors.New("parse error")
	// ErrQuotaExceeded marks a backend signalling rate limits. The backend is
	// skipped for the remainder of the run.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrConfiguration marks unusable settings detected at runtime.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransientNetwork
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether an error is eligible for the fetch retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}

// IsPermanent reports whether a candidate should be abandoned without retry.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentFetch)
}

// IsQuota reports whether a backend hit its rate limit.
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
