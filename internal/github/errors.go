package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v68/github"
)

// FailureKind classifies a GitHub API failure into the small set of
// conditions the bot reports differently in chat.
type FailureKind int

const (
	FailGeneric FailureKind = iota
	FailNotFound
	FailForbidden
	FailUnauthorized
	FailGone
	FailValidation
	FailRateLimited
	FailUnavailable
)

// Message is the user-facing chat line for this kind of failure.
func (k FailureKind) Message() string {
	switch k {
	case FailNotFound:
		return "not found"
	case FailForbidden:
		return "forbidden (the bot's credential lacks access)"
	case FailUnauthorized:
		return "unauthorized (check the bot's credential)"
	case FailGone:
		return "gone (issues are disabled on that repository)"
	case FailValidation:
		return "GitHub rejected the request as invalid"
	case FailRateLimited:
		return "GitHub rate limit hit, try again later"
	case FailUnavailable:
		return "GitHub is unavailable, try again later"
	default:
		return "GitHub request failed"
	}
}

// APIError is a classified GitHub failure.
type APIError struct {
	Kind   FailureKind
	Status int
	Err    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s (status %d): %v", e.Kind.Message(), e.Status, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error, defaulting to
// FailGeneric for anything unclassified.
func KindOf(err error) FailureKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return FailGeneric
}

// classify wraps an error from go-github with its FailureKind.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{Kind: FailRateLimited, Status: http.StatusForbidden, Err: err}
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &APIError{Kind: FailRateLimited, Status: http.StatusForbidden, Err: err}
	}

	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		kind := FailGeneric
		switch errResp.Response.StatusCode {
		case http.StatusNotFound:
			kind = FailNotFound
		case http.StatusForbidden:
			kind = FailForbidden
		case http.StatusUnauthorized:
			kind = FailUnauthorized
		case http.StatusGone:
			kind = FailGone
		case http.StatusUnprocessableEntity:
			kind = FailValidation
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			kind = FailUnavailable
		}
		return &APIError{Kind: kind, Status: errResp.Response.StatusCode, Err: err}
	}

	return &APIError{Kind: FailGeneric, Err: err}
}
