// Package oracle obtains a structured audit from a generative model.
//
// BuildRequest assembles the fixed grading rubric and the per-call
// instructions around a formatted evidence document. TieredRequestor walks an
// ordered list of model tiers, moving to the next tier on any failure
// (transport error, timeout, empty or rejected payload) and failing with
// AuditUnavailableError once every tier has been tried exactly once.
// GeminiOracle is the Oracle implementation backed by the Gemini API.
package oracle
