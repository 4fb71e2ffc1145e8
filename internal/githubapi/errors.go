package githubapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
)

const (
	repositoryNotFoundMessageConstant         = "repository not found or private"
	rateLimitExceededMessageConstant          = "GitHub API rate limit exceeded; provide an access token"
	hostingAPIErrorMessageConstant            = "GitHub API error"
	hostingAPIErrorWithStatusTemplateConstant = "%s: %s (%s)"
	hostingAPIErrorWithCauseTemplateConstant  = "%s (%s): %v"
	hostingAPIErrorBareTemplateConstant       = "%s (%s)"
	responseDecodingErrorTemplateConstant     = "%s response decoding failed: %v"
)

// Error kinds surfaced by the hosting client. HostingAPIError matches exactly one of them through errors.Is.
var (
	ErrRepositoryNotFound = errors.New(repositoryNotFoundMessageConstant)
	ErrRateLimitExceeded  = errors.New(rateLimitExceededMessageConstant)
	ErrHostingAPI         = errors.New(hostingAPIErrorMessageConstant)
)

// HostingAPIError describes a failed hosting API request.
type HostingAPIError struct {
	Operation  OperationName
	StatusCode int
	Status     string
	Kind       error
	Cause      error
}

// Error renders a human-readable description suitable for direct display.
func (apiError HostingAPIError) Error() string {
	kind := apiError.Kind
	if kind == nil {
		kind = ErrHostingAPI
	}
	if len(apiError.Status) > 0 {
		return fmt.Sprintf(hostingAPIErrorWithStatusTemplateConstant, kind.Error(), apiError.Status, apiError.Operation)
	}
	if apiError.Cause != nil {
		return fmt.Sprintf(hostingAPIErrorWithCauseTemplateConstant, kind.Error(), apiError.Operation, apiError.Cause)
	}
	return fmt.Sprintf(hostingAPIErrorBareTemplateConstant, kind.Error(), apiError.Operation)
}

// Is matches the error kind sentinel.
func (apiError HostingAPIError) Is(target error) bool {
	if apiError.Kind == nil {
		return target == ErrHostingAPI
	}
	return target == apiError.Kind
}

// Unwrap exposes the transport or API error.
func (apiError HostingAPIError) Unwrap() error {
	return apiError.Cause
}

// ResponseDecodingError indicates an undecodable content payload.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying decoding error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

func translateError(operation OperationName, response *github.Response, requestError error) error {
	statusCode, status := responseStatus(response)

	var kind error
	var rateLimitError *github.RateLimitError
	var abuseRateLimitError *github.AbuseRateLimitError
	var errorResponse *github.ErrorResponse
	switch {
	case errors.As(requestError, &rateLimitError):
		kind = ErrRateLimitExceeded
		if statusCode == 0 && rateLimitError.Response != nil {
			statusCode, status = rateLimitError.Response.StatusCode, rateLimitError.Response.Status
		}
	case errors.As(requestError, &abuseRateLimitError):
		kind = ErrRateLimitExceeded
		if statusCode == 0 && abuseRateLimitError.Response != nil {
			statusCode, status = abuseRateLimitError.Response.StatusCode, abuseRateLimitError.Response.Status
		}
	case errors.As(requestError, &errorResponse):
		if statusCode == 0 && errorResponse.Response != nil {
			statusCode, status = errorResponse.Response.StatusCode, errorResponse.Response.Status
		}
	}

	if kind == nil {
		switch statusCode {
		case http.StatusForbidden, http.StatusTooManyRequests:
			kind = ErrRateLimitExceeded
		case http.StatusNotFound:
			kind = ErrRepositoryNotFound
		default:
			kind = ErrHostingAPI
		}
	}

	return HostingAPIError{
		Operation:  operation,
		StatusCode: statusCode,
		Status:     status,
		Kind:       kind,
		Cause:      requestError,
	}
}

func responseStatus(response *github.Response) (int, string) {
	if response == nil || response.Response == nil {
		return 0, ""
	}
	return response.StatusCode, response.Status
}
