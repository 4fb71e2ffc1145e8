package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Required top-level fields of the oracle payload.
const (
	FieldCategories       = "categories"
	FieldScores           = "scores"
	FieldVerdictShort     = "verdict_short"
	FieldVerdictNarrative = "verdict_narrative"
	FieldVibeCheck        = "vibe_check"
	FieldRemediationSteps = "remediation_steps"
	FieldTotal            = "total"
)

const (
	jsonObjectOpenConstant               = "{"
	jsonObjectCloseConstant              = "}"
	jsonNullLiteralConstant              = "null"
	payloadWithoutObjectMessageConstant  = "payload does not contain a JSON object"
	remediationTruncatedTemplateConstant = "remediation plan listed %d steps; kept the first %d"
	remediationShortTemplateConstant     = "remediation plan listed %d steps; expected %d"
	categoryCountTemplateConstant        = "oracle reported %d categories; expected %d"
	categoryMismatchTemplateConstant     = "category %q metrics sum to %d but the reported total is %d"
	grandTotalMismatchTemplateConstant   = "category totals sum to %d but the reported grand total is %d"
	recomputeUnavailableTemplateConstant = "cannot recompute totals from %d categories; kept the reported totals"
	metricCountTemplateConstant          = "category %q lists %d metrics; expected %d"
	categoryUnmatchedTemplateConstant    = "category %q does not match a rubric category"
	metricClampedTemplateConstant        = "metric %q in category %q scored %d; clamped to %d"
	scoreClampedTemplateConstant         = "score %q reported %d; clamped to %d"
	unmatchedRubricIndexConstant         = -1
	scoreMagnitudeLimitConstant          = 1_000_000
)

var errPayloadWithoutObject = errors.New(payloadWithoutObjectMessageConstant)

var fencedBlockPattern = regexp.MustCompile("(?s)```[A-Za-z]*\\s*(.*?)```")

var requiredFieldNames = []string{
	FieldCategories,
	FieldScores,
	FieldVerdictShort,
	FieldVerdictNarrative,
	FieldVibeCheck,
	FieldRemediationSteps,
}

type payloadCategory struct {
	Title   string          `json:"title"`
	Metrics []payloadMetric `json:"metrics"`
}

type payloadMetric struct {
	Label     string          `json:"label"`
	Score     json.RawMessage `json:"score"`
	Rationale string          `json:"rationale"`
}

// Normalizer validates oracle payloads and shapes them into AuditResult values.
type Normalizer struct {
	policy ScorePolicy
}

// NewNormalizer constructs a Normalizer applying policy to score totals. An empty policy trusts the oracle.
func NewNormalizer(policy ScorePolicy) Normalizer {
	if len(policy) == 0 {
		policy = ScorePolicyTrust
	}
	return Normalizer{policy: policy}
}

// Policy returns the configured score policy.
func (normalizer Normalizer) Policy() ScorePolicy {
	return normalizer.policy
}

// Normalize decodes payload and returns the canonical result.
//
// Markdown fences and prose around the JSON object are tolerated. Any missing
// or empty required field yields IncompleteAuditResultError; individually
// missing scores default to 0 and every score is clamped to its rubric range,
// with a warning for each value the clamp changed. Categories are keyed to the
// rubric by title, so a reordered payload keeps each total with its category.
func (normalizer Normalizer) Normalize(payload string, repoName string, modelUsed string) (AuditResult, error) {
	objectText, extractError := extractJSONObject(payload)
	if extractError != nil {
		return AuditResult{}, IncompleteAuditResultError{Cause: extractError}
	}

	var fields map[string]json.RawMessage
	if decodeError := json.Unmarshal([]byte(objectText), &fields); decodeError != nil {
		return AuditResult{}, IncompleteAuditResultError{Cause: decodeError}
	}

	var missingFields []string
	categories, categoriesPresent := decodeCategories(fields[FieldCategories])
	scoreFields, scoresPresent := decodeObject(fields[FieldScores])
	verdictShort, verdictShortPresent := decodeText(fields[FieldVerdictShort])
	verdictNarrative, verdictNarrativePresent := decodeText(fields[FieldVerdictNarrative])
	vibeCheck, vibeCheckPresent := decodeText(fields[FieldVibeCheck])
	remediationSteps, remediationPresent := decodeTextList(fields[FieldRemediationSteps])

	presence := []bool{categoriesPresent, scoresPresent, verdictShortPresent, verdictNarrativePresent, vibeCheckPresent, remediationPresent}
	for fieldIndex, present := range presence {
		if !present {
			missingFields = append(missingFields, requiredFieldNames[fieldIndex])
		}
	}
	if len(missingFields) > 0 {
		return AuditResult{}, IncompleteAuditResultError{MissingFields: missingFields}
	}

	result := AuditResult{
		RepoName:           repoName,
		ModelUsed:          modelUsed,
		VerdictShort:       verdictShort,
		VerdictNarrative:   verdictNarrative,
		VibeCheckNarrative: vibeCheck,
	}

	rubricIndexes := matchRubricCategories(categories)
	result.Categories, result.Warnings = shapeCategories(categories, rubricIndexes, result.Warnings)
	result.Scores, result.Warnings = shapeScores(scoreFields, result.Warnings)
	result.RemediationSteps, result.Warnings = shapeRemediationSteps(remediationSteps, result.Warnings)
	result.Warnings = normalizer.applyScorePolicy(&result, rubricIndexes, result.Warnings)

	return result, nil
}

func (normalizer Normalizer) applyScorePolicy(result *AuditResult, rubricIndexes []int, warnings []string) []string {
	switch normalizer.policy {
	case ScorePolicyRecompute:
		if matchedCount := countMatched(rubricIndexes); matchedCount != len(rubricCategories) {
			return append(warnings, fmt.Sprintf(recomputeUnavailableTemplateConstant, matchedCount))
		}
		for categoryIndex, category := range result.Categories {
			if rubricIndex := rubricIndexes[categoryIndex]; rubricIndex != unmatchedRubricIndexConstant {
				result.Scores.setCategoryScore(rubricCategories[rubricIndex].Key, clamp(category.MetricSum(), 0, CategoryScoreMaximum))
			}
		}
		result.Scores.Total = clamp(result.Scores.CategorySum(), 0, TotalScoreMaximum)
		return warnings
	case ScorePolicyFlag:
		return appendScoreMismatches(*result, rubricIndexes, warnings)
	default:
		return warnings
	}
}

func appendScoreMismatches(result AuditResult, rubricIndexes []int, warnings []string) []string {
	if len(result.Categories) != len(rubricCategories) {
		warnings = append(warnings, fmt.Sprintf(categoryCountTemplateConstant, len(result.Categories), len(rubricCategories)))
	}
	for categoryIndex, category := range result.Categories {
		rubricIndex := rubricIndexes[categoryIndex]
		if rubricIndex == unmatchedRubricIndexConstant {
			continue
		}
		if len(category.Metrics) != MetricsPerCategory {
			warnings = append(warnings, fmt.Sprintf(metricCountTemplateConstant, category.Title, len(category.Metrics), MetricsPerCategory))
		}
		reportedTotal := result.Scores.CategoryScore(rubricCategories[rubricIndex].Key)
		if metricSum := category.MetricSum(); metricSum != reportedTotal {
			warnings = append(warnings, fmt.Sprintf(categoryMismatchTemplateConstant, category.Title, metricSum, reportedTotal))
		}
	}
	if categorySum := result.Scores.CategorySum(); categorySum != result.Scores.Total {
		warnings = append(warnings, fmt.Sprintf(grandTotalMismatchTemplateConstant, categorySum, result.Scores.Total))
	}
	return warnings
}

// matchRubricCategories returns the rubric index of every payload category, or
// unmatchedRubricIndexConstant. Titles match case-insensitively and each rubric
// category is claimed once. Position decides only for blank titles, or for every
// category when no title matches the rubric at all.
func matchRubricCategories(categories []payloadCategory) []int {
	rubricIndexes := make([]int, len(categories))
	claimed := make([]bool, len(rubricCategories))
	titleMatched := false
	for categoryIndex, category := range categories {
		rubricIndexes[categoryIndex] = unmatchedRubricIndexConstant
		title := strings.TrimSpace(category.Title)
		for rubricIndex, rubricCategory := range rubricCategories {
			if !claimed[rubricIndex] && strings.EqualFold(title, rubricCategory.Title) {
				rubricIndexes[categoryIndex] = rubricIndex
				claimed[rubricIndex] = true
				titleMatched = true
				break
			}
		}
	}

	for categoryIndex, category := range categories {
		if rubricIndexes[categoryIndex] != unmatchedRubricIndexConstant || categoryIndex >= len(rubricCategories) || claimed[categoryIndex] {
			continue
		}
		if titleMatched && len(strings.TrimSpace(category.Title)) > 0 {
			continue
		}
		rubricIndexes[categoryIndex] = categoryIndex
		claimed[categoryIndex] = true
	}
	return rubricIndexes
}

func countMatched(rubricIndexes []int) int {
	matched := 0
	for _, rubricIndex := range rubricIndexes {
		if rubricIndex != unmatchedRubricIndexConstant {
			matched++
		}
	}
	return matched
}

func shapeCategories(categories []payloadCategory, rubricIndexes []int, warnings []string) ([]Category, []string) {
	shaped := make([]Category, 0, len(categories))
	for categoryIndex, category := range categories {
		rubricIndex := rubricIndexes[categoryIndex]
		title := strings.TrimSpace(category.Title)
		if len(title) == 0 && rubricIndex != unmatchedRubricIndexConstant {
			title = rubricCategories[rubricIndex].Title
		}
		if rubricIndex == unmatchedRubricIndexConstant {
			warnings = append(warnings, fmt.Sprintf(categoryUnmatchedTemplateConstant, title))
		}

		metrics := make([]Metric, 0, len(category.Metrics))
		for metricIndex, metric := range category.Metrics {
			label := strings.TrimSpace(metric.Label)
			if len(label) == 0 && rubricIndex != unmatchedRubricIndexConstant && metricIndex < len(rubricCategories[rubricIndex].Metrics) {
				label = rubricCategories[rubricIndex].Metrics[metricIndex].Label
			}
			reportedScore := numericScore(metric.Score)
			score := clamp(reportedScore, 0, MetricScoreMaximum)
			if score != reportedScore {
				warnings = append(warnings, fmt.Sprintf(metricClampedTemplateConstant, label, title, reportedScore, score))
			}
			metrics = append(metrics, Metric{
				Label:     label,
				Score:     score,
				Rationale: strings.TrimSpace(metric.Rationale),
			})
		}
		shaped = append(shaped, Category{Title: title, Metrics: metrics})
	}
	return shaped, warnings
}

func shapeScores(scoreFields map[string]json.RawMessage, warnings []string) (Scores, []string) {
	var scores Scores
	for _, key := range CategoryKeys() {
		var score int
		score, warnings = clampReportedScore(string(key), numericScore(scoreFields[string(key)]), CategoryScoreMaximum, warnings)
		scores.setCategoryScore(key, score)
	}
	scores.Total, warnings = clampReportedScore(FieldTotal, numericScore(scoreFields[FieldTotal]), TotalScoreMaximum, warnings)
	return scores, warnings
}

func clampReportedScore(field string, reportedScore int, maximum int, warnings []string) (int, []string) {
	score := clamp(reportedScore, 0, maximum)
	if score != reportedScore {
		warnings = append(warnings, fmt.Sprintf(scoreClampedTemplateConstant, field, reportedScore, score))
	}
	return score, warnings
}

func shapeRemediationSteps(steps []string, warnings []string) ([]string, []string) {
	switch {
	case len(steps) > RemediationStepsCount:
		warnings = append(warnings, fmt.Sprintf(remediationTruncatedTemplateConstant, len(steps), RemediationStepsCount))
		return steps[:RemediationStepsCount], warnings
	case len(steps) < RemediationStepsCount:
		warnings = append(warnings, fmt.Sprintf(remediationShortTemplateConstant, len(steps), RemediationStepsCount))
	}
	return steps, warnings
}

// extractJSONObject prefers the first fenced block holding an object, then
// falls back to the span between the first "{" and the last "}" of the payload.
func extractJSONObject(payload string) (string, error) {
	for _, fencedBlock := range fencedBlockPattern.FindAllStringSubmatch(payload, -1) {
		if objectText, spanError := braceSpan(fencedBlock[1]); spanError == nil {
			return objectText, nil
		}
	}
	return braceSpan(payload)
}

func braceSpan(text string) (string, error) {
	openIndex := strings.Index(text, jsonObjectOpenConstant)
	closeIndex := strings.LastIndex(text, jsonObjectCloseConstant)
	if openIndex < 0 || closeIndex < openIndex {
		return "", errPayloadWithoutObject
	}
	return text[openIndex : closeIndex+1], nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return len(trimmed) == 0 || trimmed == jsonNullLiteralConstant
}

func decodeText(raw json.RawMessage) (string, bool) {
	if isAbsent(raw) {
		return "", false
	}
	var text string
	if json.Unmarshal(raw, &text) != nil {
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, len(text) > 0
}

func decodeTextList(raw json.RawMessage) ([]string, bool) {
	if isAbsent(raw) {
		return nil, false
	}
	var elements []json.RawMessage
	if json.Unmarshal(raw, &elements) != nil {
		return nil, false
	}
	texts := make([]string, 0, len(elements))
	for _, element := range elements {
		if text, present := decodeText(element); present {
			texts = append(texts, text)
		}
	}
	return texts, len(texts) > 0
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if isAbsent(raw) {
		return nil, false
	}
	var object map[string]json.RawMessage
	if json.Unmarshal(raw, &object) != nil {
		return nil, false
	}
	return object, true
}

func decodeCategories(raw json.RawMessage) ([]payloadCategory, bool) {
	if isAbsent(raw) {
		return nil, false
	}
	var categories []payloadCategory
	if json.Unmarshal(raw, &categories) != nil {
		return nil, false
	}
	return categories, len(categories) > 0
}

// numericScore accepts JSON numbers and numeric strings, rounding fractions. Anything else counts as 0.
func numericScore(raw json.RawMessage) int {
	if isAbsent(raw) {
		return 0
	}
	var number float64
	if json.Unmarshal(raw, &number) == nil {
		return roundScore(number)
	}
	var text string
	if json.Unmarshal(raw, &text) == nil {
		if parsed, parseError := strconv.ParseFloat(strings.TrimSpace(text), 64); parseError == nil {
			return roundScore(parsed)
		}
	}
	return 0
}

func roundScore(value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int(math.Round(min(max(value, -scoreMagnitudeLimitConstant), scoreMagnitudeLimitConstant)))
}

func clamp(value int, lower int, upper int) int {
	return min(max(value, lower), upper)
}
