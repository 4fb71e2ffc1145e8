package report

import (
	"errors"
	"fmt"
	"strings"
)

// ScorePolicy decides how reported totals relate to the metric scores.
type ScorePolicy string

// Supported score policies.
const (
	// ScorePolicyTrust keeps the oracle's totals unverified.
	ScorePolicyTrust ScorePolicy = "trust"
	// ScorePolicyRecompute replaces reported totals with sums of the metric scores.
	ScorePolicyRecompute ScorePolicy = "recompute"
	// ScorePolicyFlag keeps reported totals and records every mismatch as a warning.
	ScorePolicyFlag ScorePolicy = "flag"
)

const (
	unknownScorePolicyMessageConstant  = "unknown score policy"
	unknownScorePolicyTemplateConstant = "%w %q (expected trust, recompute, or flag)"
)

// ErrUnknownScorePolicy indicates an unsupported score policy name.
var ErrUnknownScorePolicy = errors.New(unknownScorePolicyMessageConstant)

// ParseScorePolicy converts a configuration value into a ScorePolicy. An empty value selects ScorePolicyTrust.
func ParseScorePolicy(value string) (ScorePolicy, error) {
	normalizedValue := ScorePolicy(strings.ToLower(strings.TrimSpace(value)))
	switch normalizedValue {
	case "":
		return ScorePolicyTrust, nil
	case ScorePolicyTrust, ScorePolicyRecompute, ScorePolicyFlag:
		return normalizedValue, nil
	default:
		return "", fmt.Errorf(unknownScorePolicyTemplateConstant, ErrUnknownScorePolicy, value)
	}
}
