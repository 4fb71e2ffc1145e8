package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Default model tiers, most capable first.
const (
	PrimaryTierModelConstant   = "gemini-2.5-pro"
	SecondaryTierModelConstant = "gemini-2.5-flash"
	DefaultTierTimeoutConstant = 3 * time.Minute
)

const (
	auditUnavailableMessageConstant  = "audit unavailable"
	emptyResponseMessageConstant     = "oracle returned an empty response"
	oracleMissingMessageConstant     = "oracle not configured"
	tiersMissingMessageConstant      = "no model tiers configured"
	blankTierModelMessageConstant    = "model tier has an empty name"
	auditUnavailableTemplateConstant = "%s after %d tier(s): %v"
	tierFailureTemplateConstant      = "%s: %v"
	attemptSeparatorConstant         = "; "
	logFieldModelConstant            = "model"
	logFieldAttemptConstant          = "attempt"
	logFieldTimeoutConstant          = "timeout"
	logFieldDurationConstant         = "duration"
	logFieldFailureConstant          = "error"
	tierAttemptMessageConstant       = "requesting audit from model tier"
	tierFailedMessageConstant        = "model tier failed"
	tierSucceededMessageConstant     = "model tier succeeded"
	tiersExhaustedMessageConstant    = "all model tiers failed"
)

var (
	// ErrAuditUnavailable indicates every configured tier failed.
	ErrAuditUnavailable = errors.New(auditUnavailableMessageConstant)
	// ErrEmptyResponse indicates a tier answered without any payload.
	ErrEmptyResponse = errors.New(emptyResponseMessageConstant)
	// ErrOracleMissing indicates a TieredRequestor was built without an Oracle.
	ErrOracleMissing = errors.New(oracleMissingMessageConstant)
	// ErrTiersMissing indicates a TieredRequestor was built without tiers.
	ErrTiersMissing = errors.New(tiersMissingMessageConstant)
	// ErrBlankTierModel indicates a tier without a model name.
	ErrBlankTierModel = errors.New(blankTierModelMessageConstant)
)

// Oracle answers one audit request using the named model.
type Oracle interface {
	Generate(executionContext context.Context, model string, request Request) (string, error)
}

// Tier is one model capability tier. A zero Timeout leaves the call bounded only by the caller's context.
type Tier struct {
	Model   string
	Timeout time.Duration
}

// DefaultTiers returns the primary and secondary Gemini tiers.
func DefaultTiers() []Tier {
	return []Tier{
		{Model: PrimaryTierModelConstant, Timeout: DefaultTierTimeoutConstant},
		{Model: SecondaryTierModelConstant, Timeout: DefaultTierTimeoutConstant},
	}
}

// Response is a payload together with the tier that produced it.
type Response struct {
	Model   string
	Payload string
}

// ResponseHandler validates a tier's response. A non-nil error counts as a failure of that tier.
type ResponseHandler func(response Response) error

// AttemptObserver is notified as tiers are attempted.
type AttemptObserver interface {
	OnTierAttempt(tier Tier, attemptIndex int)
	OnTierFailure(tier Tier, attemptIndex int, failure error)
}

// AttemptFailure records why one tier failed.
type AttemptFailure struct {
	Model string
	Cause error
}

// AuditUnavailableError is returned once every tier has failed. It unwraps to the last tier's cause.
type AuditUnavailableError struct {
	Attempts []AttemptFailure
	Cause    error
}

// Error summarizes every failed attempt.
func (unavailableError AuditUnavailableError) Error() string {
	attemptDescriptions := make([]string, 0, len(unavailableError.Attempts))
	for _, attempt := range unavailableError.Attempts {
		attemptDescriptions = append(attemptDescriptions, fmt.Sprintf(tierFailureTemplateConstant, attempt.Model, attempt.Cause))
	}
	return fmt.Sprintf(auditUnavailableTemplateConstant, auditUnavailableMessageConstant, len(unavailableError.Attempts), strings.Join(attemptDescriptions, attemptSeparatorConstant))
}

// Is matches ErrAuditUnavailable.
func (unavailableError AuditUnavailableError) Is(target error) bool {
	return target == ErrAuditUnavailable
}

// Unwrap exposes the last tier's cause.
func (unavailableError AuditUnavailableError) Unwrap() error {
	return unavailableError.Cause
}

// TieredRequestor tries each tier once, in order, until one produces an accepted response.
type TieredRequestor struct {
	logger   *zap.Logger
	oracle   Oracle
	tiers    []Tier
	observer AttemptObserver
}

// NewTieredRequestor validates tiers and constructs a TieredRequestor. observer may be nil.
func NewTieredRequestor(logger *zap.Logger, oracle Oracle, tiers []Tier, observer AttemptObserver) (*TieredRequestor, error) {
	if oracle == nil {
		return nil, ErrOracleMissing
	}
	if len(tiers) == 0 {
		return nil, ErrTiersMissing
	}
	for _, tier := range tiers {
		if len(strings.TrimSpace(tier.Model)) == 0 {
			return nil, ErrBlankTierModel
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredRequestor{
		logger:   logger,
		oracle:   oracle,
		tiers:    append([]Tier(nil), tiers...),
		observer: observer,
	}, nil
}

// Tiers returns the configured tiers in attempt order.
func (requestor *TieredRequestor) Tiers() []Tier {
	return append([]Tier(nil), requestor.tiers...)
}

// Request sends request to each tier in order and returns the first response
// that handler accepts. Each tier is attempted at most once; a cancelled
// executionContext stops the walk before the next tier.
func (requestor *TieredRequestor) Request(executionContext context.Context, request Request, handler ResponseHandler) (Response, error) {
	failures := make([]AttemptFailure, 0, len(requestor.tiers))
	var lastCause error

	for attemptIndex, tier := range requestor.tiers {
		if contextError := executionContext.Err(); contextError != nil {
			lastCause = contextError
			break
		}

		response, attemptError := requestor.attempt(executionContext, tier, attemptIndex, request, handler)
		if attemptError == nil {
			return response, nil
		}

		failures = append(failures, AttemptFailure{Model: tier.Model, Cause: attemptError})
		lastCause = attemptError
		if requestor.observer != nil {
			requestor.observer.OnTierFailure(tier, attemptIndex, attemptError)
		}
	}

	requestor.logger.Warn(tiersExhaustedMessageConstant, zap.Int(logFieldAttemptConstant, len(failures)), zap.Error(lastCause))
	return Response{}, AuditUnavailableError{Attempts: failures, Cause: lastCause}
}

func (requestor *TieredRequestor) attempt(executionContext context.Context, tier Tier, attemptIndex int, request Request, handler ResponseHandler) (Response, error) {
	if requestor.observer != nil {
		requestor.observer.OnTierAttempt(tier, attemptIndex)
	}
	tierLogger := requestor.logger.With(zap.String(logFieldModelConstant, tier.Model), zap.Int(logFieldAttemptConstant, attemptIndex+1))
	tierLogger.Debug(tierAttemptMessageConstant, zap.Duration(logFieldTimeoutConstant, tier.Timeout))

	tierContext := executionContext
	if tier.Timeout > 0 {
		var cancel context.CancelFunc
		tierContext, cancel = context.WithTimeout(executionContext, tier.Timeout)
		defer cancel()
	}

	startedAt := time.Now()
	payload, generateError := requestor.oracle.Generate(tierContext, tier.Model, request)
	if generateError == nil && len(strings.TrimSpace(payload)) == 0 {
		generateError = ErrEmptyResponse
	}

	response := Response{Model: tier.Model, Payload: payload}
	if generateError == nil && handler != nil {
		generateError = handler(response)
	}
	if generateError != nil {
		tierLogger.Warn(tierFailedMessageConstant, zap.Duration(logFieldDurationConstant, time.Since(startedAt)), zap.String(logFieldFailureConstant, generateError.Error()))
		return Response{}, generateError
	}

	tierLogger.Debug(tierSucceededMessageConstant, zap.Duration(logFieldDurationConstant, time.Since(startedAt)))
	return response, nil
}
