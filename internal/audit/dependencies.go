package audit

import (
	"context"

	"github.com/temirov/repoaudit/internal/evidence"
	"github.com/temirov/repoaudit/internal/locator"
	"github.com/temirov/repoaudit/internal/report"
)

// EvidenceFetcher gathers the evidence bundle for a repository.
type EvidenceFetcher interface {
	Fetch(executionContext context.Context, repository locator.RepositoryIdentifier, accessToken string) (evidence.Bundle, error)
}

// ResultNormalizer converts a raw oracle payload into an AuditResult.
type ResultNormalizer interface {
	Normalize(payload string, repoName string, modelUsed string) (report.AuditResult, error)
}
