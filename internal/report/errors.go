package report

import (
	"errors"
	"fmt"
	"strings"
)

const (
	incompleteAuditResultMessageConstant = "incomplete audit result"
	missingFieldsTemplateConstant        = "%s: missing required fields: %s"
	undecodablePayloadTemplateConstant   = "%s: %v"
	missingFieldsSeparatorConstant       = ", "
)

// ErrIncompleteAuditResult indicates the oracle payload lacked required structure.
var ErrIncompleteAuditResult = errors.New(incompleteAuditResultMessageConstant)

// IncompleteAuditResultError reports which required fields were absent, or why the payload could not be decoded.
type IncompleteAuditResultError struct {
	MissingFields []string
	Cause         error
}

// Error describes the missing structure.
func (incompleteError IncompleteAuditResultError) Error() string {
	if len(incompleteError.MissingFields) > 0 {
		return fmt.Sprintf(missingFieldsTemplateConstant, incompleteAuditResultMessageConstant, strings.Join(incompleteError.MissingFields, missingFieldsSeparatorConstant))
	}
	if incompleteError.Cause != nil {
		return fmt.Sprintf(undecodablePayloadTemplateConstant, incompleteAuditResultMessageConstant, incompleteError.Cause)
	}
	return incompleteAuditResultMessageConstant
}

// Is matches ErrIncompleteAuditResult.
func (incompleteError IncompleteAuditResultError) Is(target error) bool {
	return target == ErrIncompleteAuditResult
}

// Unwrap exposes the decoding cause.
func (incompleteError IncompleteAuditResultError) Unwrap() error {
	return incompleteError.Cause
}
