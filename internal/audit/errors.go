package audit

import (
	"errors"

	"github.com/temirov/repoaudit/internal/githubapi"
	"github.com/temirov/repoaudit/internal/locator"
	"github.com/temirov/repoaudit/internal/oracle"
	"github.com/temirov/repoaudit/internal/report"
)

// ErrorKind names a class of audit failure.
type ErrorKind string

// Audit failure kinds.
const (
	ErrorKindInvalidRepositoryURL  ErrorKind = "InvalidRepositoryUrl"
	ErrorKindRepositoryNotFound    ErrorKind = "RepositoryNotFound"
	ErrorKindRateLimitExceeded     ErrorKind = "RateLimitExceeded"
	ErrorKindHostingAPIError       ErrorKind = "HostingApiError"
	ErrorKindAuditUnavailable      ErrorKind = "AuditUnavailable"
	ErrorKindIncompleteAuditResult ErrorKind = "IncompleteAuditResult"
	ErrorKindUnknown               ErrorKind = "Unknown"
)

// AccessTokenGuidanceMessage is shown when supplying a token would let the audit proceed.
const AccessTokenGuidanceMessage = "GitHub rejected the anonymous request (rate limit). Supply an access token with --token, --token-source env:NAME|file:PATH, or the GH_TOKEN/GITHUB_TOKEN environment variables."

// ClassifyError maps err onto the audit error taxonomy. A nil error has no kind.
func ClassifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, locator.ErrInvalidRepositoryURL):
		return ErrorKindInvalidRepositoryURL
	case errors.Is(err, githubapi.ErrRepositoryNotFound):
		return ErrorKindRepositoryNotFound
	case errors.Is(err, githubapi.ErrRateLimitExceeded):
		return ErrorKindRateLimitExceeded
	case errors.Is(err, githubapi.ErrHostingAPI):
		return ErrorKindHostingAPIError
	case errors.Is(err, oracle.ErrAuditUnavailable):
		if everyAttemptIncomplete(err) {
			return ErrorKindIncompleteAuditResult
		}
		return ErrorKindAuditUnavailable
	case errors.Is(err, report.ErrIncompleteAuditResult):
		return ErrorKindIncompleteAuditResult
	default:
		return ErrorKindUnknown
	}
}

// RequiresAccessToken reports whether err should steer the user toward supplying an access token.
func RequiresAccessToken(err error) bool {
	return ClassifyError(err) == ErrorKindRateLimitExceeded
}

// everyAttemptIncomplete reports whether each oracle tier answered, but with a structurally incomplete payload.
func everyAttemptIncomplete(err error) bool {
	var unavailableError oracle.AuditUnavailableError
	if !errors.As(err, &unavailableError) || len(unavailableError.Attempts) == 0 {
		return false
	}
	for _, attempt := range unavailableError.Attempts {
		if !errors.Is(attempt.Cause, report.ErrIncompleteAuditResult) {
			return false
		}
	}
	return true
}
