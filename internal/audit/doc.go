// Package audit runs repository audits end to end.
//
// Service.RunAudit is the single entry point: it parses the repository URL,
// gathers evidence through the hosting API, asks the oracle tiers for a
// structured audit, and normalizes the answer into a report.AuditResult.
// CommandBuilder exposes the workflow as the "audit" Cobra command, and
// ClassifyError maps failures onto the user-facing error taxonomy.
package audit
