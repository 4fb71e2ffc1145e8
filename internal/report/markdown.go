package report

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	markdownFileNameTemplateConstant     = "AUDIT_%s.md"
	markdownFallbackRepoNameConstant     = "repository"
	markdownTitleTemplateConstant        = "# Repository Audit: %s"
	markdownVerdictQuoteTemplateConstant = "> %s"
	markdownModelLineTemplateConstant    = "_Model: %s_"
	markdownScoresHeadingConstant        = "## Scores"
	markdownScoreTableHeaderConstant     = "| Category | Score |\n| --- | ---: |"
	markdownScoreRowTemplateConstant     = "| %s | %d/%d |"
	markdownTotalRowTemplateConstant     = "| **Total** | **%d/%d** |"
	markdownMatrixHeadingConstant        = "## The 20-Point Matrix"
	markdownCategoryHeadingTemplate      = "### %s"
	markdownMetricLineTemplateConstant   = "%d. **[%d/%d] %s**: %s"
	markdownVibeCheckHeadingConstant     = "## Vibe Check"
	markdownRemediationHeadingConstant   = "## Pareto Fix Plan"
	markdownRemediationLineTemplate      = "%d. %s"
	markdownVerdictHeadingConstant       = "## Final Verdict"
	markdownWarningsHeadingConstant      = "## Data Quality Warnings"
	markdownWarningLineTemplateConstant  = "- %s"
	markdownBlockSeparatorConstant       = "\n\n"
	markdownLineSeparatorConstant        = "\n"
)

var markdownFileNameUnsafeCharacters = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// MarkdownFileName returns the default export file name for repoName.
func MarkdownFileName(repoName string) string {
	sanitizedName := strings.Trim(markdownFileNameUnsafeCharacters.ReplaceAllString(repoName, "_"), "_.")
	if len(sanitizedName) == 0 {
		sanitizedName = markdownFallbackRepoNameConstant
	}
	return fmt.Sprintf(markdownFileNameTemplateConstant, sanitizedName)
}

// RenderMarkdown renders result as a Markdown document. The output depends only on result.
func RenderMarkdown(result AuditResult) string {
	blocks := []string{
		fmt.Sprintf(markdownTitleTemplateConstant, result.RepoName),
		fmt.Sprintf(markdownVerdictQuoteTemplateConstant, result.VerdictShort),
	}
	if len(result.ModelUsed) > 0 {
		blocks = append(blocks, fmt.Sprintf(markdownModelLineTemplateConstant, result.ModelUsed))
	}

	blocks = append(blocks, markdownScoresHeadingConstant, renderScoreTable(result.Scores))

	blocks = append(blocks, markdownMatrixHeadingConstant)
	for _, category := range result.Categories {
		blocks = append(blocks, fmt.Sprintf(markdownCategoryHeadingTemplate, category.Title))
		metricLines := make([]string, 0, len(category.Metrics))
		for metricIndex, metric := range category.Metrics {
			metricLines = append(metricLines, fmt.Sprintf(markdownMetricLineTemplateConstant, metricIndex+1, metric.Score, MetricScoreMaximum, metric.Label, metric.Rationale))
		}
		if len(metricLines) > 0 {
			blocks = append(blocks, strings.Join(metricLines, markdownLineSeparatorConstant))
		}
	}

	blocks = append(blocks, markdownVibeCheckHeadingConstant, result.VibeCheckNarrative)

	remediationLines := make([]string, 0, len(result.RemediationSteps))
	for stepIndex, step := range result.RemediationSteps {
		remediationLines = append(remediationLines, fmt.Sprintf(markdownRemediationLineTemplate, stepIndex+1, step))
	}
	blocks = append(blocks, markdownRemediationHeadingConstant, strings.Join(remediationLines, markdownLineSeparatorConstant))

	blocks = append(blocks, markdownVerdictHeadingConstant, result.VerdictNarrative)

	if len(result.Warnings) > 0 {
		warningLines := make([]string, 0, len(result.Warnings))
		for _, warning := range result.Warnings {
			warningLines = append(warningLines, fmt.Sprintf(markdownWarningLineTemplateConstant, warning))
		}
		blocks = append(blocks, markdownWarningsHeadingConstant, strings.Join(warningLines, markdownLineSeparatorConstant))
	}

	return strings.Join(blocks, markdownBlockSeparatorConstant) + markdownLineSeparatorConstant
}

func renderScoreTable(scores Scores) string {
	rows := []string{markdownScoreTableHeaderConstant}
	for _, category := range rubricCategories {
		rows = append(rows, fmt.Sprintf(markdownScoreRowTemplateConstant, category.Title, scores.CategoryScore(category.Key), CategoryScoreMaximum))
	}
	rows = append(rows, fmt.Sprintf(markdownTotalRowTemplateConstant, scores.Total, TotalScoreMaximum))
	return strings.Join(rows, markdownLineSeparatorConstant)
}
