package oracle

import (
	"fmt"
	"strings"
	"time"

	"github.com/temirov/repoaudit/internal/evidence"
	"github.com/temirov/repoaudit/internal/report"
)

// Request is the payload handed to an Oracle.
type Request struct {
	SystemInstruction string
	Prompt            string
}

const (
	currentDateLayoutConstant = "January 2006"

	systemInstructionPreambleTemplate = `Role: You are a Principal Engineer and Technical Due Diligence Auditor with 20 years of experience in high-frequency trading and critical infrastructure. You are cynical, detail-oriented, and distrustful of hype. You hate happy-path programming.
Current Date: %s. Ignore any warnings about dates being in the future relative to your training data.

Objective: Analyze the provided repository context and perform a brutal reality audit. Distinguish generated boilerplate ("vibe coding") from engineering substance (production grade).

INPUT DATA ANALYSIS PROTOCOL:
1. Analyze the commit history: "wip", "fix", "update" spam versus descriptive, atomic commits. Look for solo-dev patterns masquerading as a team.
2. Analyze the source samples: is the logic defensive, typed, efficient, or basic if/else spaghetti?
3. Analyze the manifests: are dependencies pinned? Are there unused bloated libraries?

SCORING MATRIX:
Evaluate the project on the 5 categories below. Each category has exactly 4 metrics, listed in order.
Score every metric from 0 (failing) to %d (state of the art) and give a one or two sentence rationale that cites the evidence.`

	systemInstructionCategoryTemplate = "\n\n%s (key %q, total 0-%d)"
	systemInstructionMetricTemplate   = "\n%d. %s: %s"

	systemInstructionClosingTemplate = `

RESPONSE CONTRACT:
- "categories": the 5 categories above, in order, each with its title and its 4 metrics as {label, score, rationale}.
- "scores": the category totals keyed architecture, core, performance, security, qa (each the sum of its metrics, 0-%d) and "total" (the sum of the five totals, 0-%d).
- "vibe_check": a narrative explaining the score calculation and the vibe ratio. Be brutal about why points were lost, referencing the source code and commits you saw.
- "remediation_steps": exactly %d steps to bring the project to state of the art, each prefixed with its priority and area, for example "[Critical - Security]: ...".
- "verdict_narrative": a short paragraph with the final verdict.
- "verdict_short": the project summarized in one ruthless sentence.`

	promptTemplate = `Analyze this repository: %s

AUTO-FETCHED REPOSITORY CONTEXT:
%s

Instructions:
1. Commit History Check: look at the %s section. Are there many "fix" or "wip" commits? Is it a solo developer?
2. File Tree Check: look at the %s section. Is it well structured or a flat mess?
3. Code Intelligence Check: look at the %s section. Read the code. Is it smart? Does it use advanced types and patterns, or is it beginner level?
4. Date Awareness: today is %s. A last commit within the past year is RECENT. Do not mark the project as abandoned unless it is years old.

Execute the reality check and vibe audit protocol. Be hyper-critical. Assume guilt until proven innocent.`
)

// BuildRequest assembles the system instruction and prompt for one audit.
// now anchors the date-awareness directives.
func BuildRequest(repositoryURL string, formattedContext string, now time.Time) Request {
	currentDate := now.Format(currentDateLayoutConstant)
	return Request{
		SystemInstruction: buildSystemInstruction(currentDate),
		Prompt: fmt.Sprintf(
			promptTemplate,
			strings.TrimSpace(repositoryURL),
			formattedContext,
			evidence.CommitLogSectionLabel,
			evidence.FileTreeSectionLabel,
			evidence.SourceSamplesSectionLabel,
			currentDate,
		),
	}
}

func buildSystemInstruction(currentDate string) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(systemInstructionPreambleTemplate, currentDate, report.MetricScoreMaximum))
	for _, category := range report.Rubric() {
		builder.WriteString(fmt.Sprintf(systemInstructionCategoryTemplate, category.Title, category.Key, report.CategoryScoreMaximum))
		for metricIndex, metric := range category.Metrics {
			builder.WriteString(fmt.Sprintf(systemInstructionMetricTemplate, metricIndex+1, metric.Label, metric.Question))
		}
	}
	builder.WriteString(fmt.Sprintf(systemInstructionClosingTemplate, report.CategoryScoreMaximum, report.TotalScoreMaximum, report.RemediationStepsCount))
	return builder.String()
}
