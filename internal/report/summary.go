package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	summaryBarWidthConstant         = 20
	summaryFilledCellConstant       = "█"
	summaryEmptyCellConstant        = "░"
	summaryTitleTemplateConstant    = "%s (%s)"
	summaryRowTemplateConstant      = "%-*s %s %3d/%d"
	summaryTotalTemplateConstant    = "TOTAL %d/%d"
	summaryWarningTemplateConstant  = "! %s"
	summaryLineSeparatorConstant    = "\n"
	summaryHighScoreRatioConstant   = 0.7
	summaryMediumScoreRatioConstant = 0.4
	summaryTitleColorConstant       = "#7D56F4"
	summaryHighScoreColorConstant   = "#00FF00"
	summaryMediumScoreColorConstant = "#FFA500"
	summaryLowScoreColorConstant    = "#FF0000"
	summaryDimColorConstant         = "240"
)

// RenderSummary writes a compact score summary to writer. Colors are emitted
// only when writer is a terminal that supports them.
func RenderSummary(writer io.Writer, result AuditResult) error {
	renderer := lipgloss.NewRenderer(writer)
	titleStyle := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(summaryTitleColorConstant))
	dimStyle := renderer.NewStyle().Foreground(lipgloss.Color(summaryDimColorConstant))
	verdictStyle := renderer.NewStyle().Italic(true)

	labelWidth := 0
	for _, category := range rubricCategories {
		labelWidth = max(labelWidth, len(category.Title))
	}

	lines := []string{titleStyle.Render(fmt.Sprintf(summaryTitleTemplateConstant, result.RepoName, result.ModelUsed))}
	for _, category := range rubricCategories {
		score := result.Scores.CategoryScore(category.Key)
		scoreStyle := renderer.NewStyle().Foreground(lipgloss.Color(scoreColor(score, CategoryScoreMaximum)))
		lines = append(lines, fmt.Sprintf(summaryRowTemplateConstant, labelWidth, category.Title, scoreStyle.Render(scoreBar(score, CategoryScoreMaximum)), score, CategoryScoreMaximum))
	}

	totalStyle := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(scoreColor(result.Scores.Total, TotalScoreMaximum)))
	lines = append(lines, totalStyle.Render(fmt.Sprintf(summaryTotalTemplateConstant, result.Scores.Total, TotalScoreMaximum)))
	lines = append(lines, verdictStyle.Render(result.VerdictShort))
	for _, warning := range result.Warnings {
		lines = append(lines, dimStyle.Render(fmt.Sprintf(summaryWarningTemplateConstant, warning)))
	}

	_, writeError := io.WriteString(writer, strings.Join(lines, summaryLineSeparatorConstant)+summaryLineSeparatorConstant)
	return writeError
}

func scoreBar(score int, maximum int) string {
	filledCells := 0
	if maximum > 0 {
		filledCells = clamp(score*summaryBarWidthConstant/maximum, 0, summaryBarWidthConstant)
	}
	return strings.Repeat(summaryFilledCellConstant, filledCells) + strings.Repeat(summaryEmptyCellConstant, summaryBarWidthConstant-filledCells)
}

func scoreColor(score int, maximum int) string {
	if maximum <= 0 {
		return summaryLowScoreColorConstant
	}
	ratio := float64(score) / float64(maximum)
	switch {
	case ratio >= summaryHighScoreRatioConstant:
		return summaryHighScoreColorConstant
	case ratio >= summaryMediumScoreRatioConstant:
		return summaryMediumScoreColorConstant
	default:
		return summaryLowScoreColorConstant
	}
}
