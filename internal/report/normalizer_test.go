package report_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repoaudit/internal/report"
)

const (
	testRepoNameConstant  = "widget"
	testModelUsedConstant = "gemini-2.5-pro"
)

func completePayload(testInstance *testing.T, mutate func(payload map[string]any)) string {
	testInstance.Helper()
	categories := make([]any, 0, 5)
	for _, category := range report.Rubric() {
		metrics := make([]any, 0, len(category.Metrics))
		for _, metric := range category.Metrics {
			metrics = append(metrics, map[string]any{"label": metric.Label, "score": 3, "rationale": "ok"})
		}
		categories = append(categories, map[string]any{"title": category.Title, "metrics": metrics})
	}
	steps := make([]any, 0, 10)
	for stepIndex := 1; stepIndex <= 10; stepIndex++ {
		steps = append(steps, fmt.Sprintf("Step %d", stepIndex))
	}
	payload := map[string]any{
		"categories": categories,
		"scores": map[string]any{
			"architecture": 12, "core": 12, "performance": 12, "security": 12, "qa": 12, "total": 60,
		},
		"verdict_short":     "Solid but unremarkable.",
		"verdict_narrative": "The code mostly does what it says.",
		"vibe_check":        "Human written.",
		"remediation_steps": steps,
	}
	if mutate != nil {
		mutate(payload)
	}
	encoded, encodeError := json.Marshal(payload)
	require.NoError(testInstance, encodeError)
	return string(encoded)
}

func TestNormalizerAcceptsCompletePayload(testInstance *testing.T) {
	normalizer := report.NewNormalizer(report.ScorePolicyTrust)
	result, normalizeError := normalizer.Normalize(completePayload(testInstance, nil), testRepoNameConstant, testModelUsedConstant)
	require.NoError(testInstance, normalizeError)

	require.Equal(testInstance, testRepoNameConstant, result.RepoName)
	require.Equal(testInstance, testModelUsedConstant, result.ModelUsed)
	require.Equal(testInstance, "Solid but unremarkable.", result.VerdictShort)
	require.Len(testInstance, result.Categories, 5)
	require.Len(testInstance, result.RemediationSteps, 10)
	require.Equal(testInstance, report.Scores{Architecture: 12, Core: 12, Performance: 12, Security: 12, QA: 12, Total: 60}, result.Scores)
	require.Empty(testInstance, result.Warnings)
}

func TestNormalizerRejectsMissingRequiredFields(testInstance *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(payload map[string]any)
		missingFields []string
	}{
		{
			name:          "scores missing",
			mutate:        func(payload map[string]any) { delete(payload, "scores") },
			missingFields: []string{report.FieldScores},
		},
		{
			name:          "scores null",
			mutate:        func(payload map[string]any) { payload["scores"] = nil },
			missingFields: []string{report.FieldScores},
		},
		{
			name: "verdict and remediation missing",
			mutate: func(payload map[string]any) {
				payload["verdict_short"] = "  "
				payload["remediation_steps"] = []any{}
			},
			missingFields: []string{report.FieldVerdictShort, report.FieldRemediationSteps},
		},
		{
			name:          "categories of the wrong type",
			mutate:        func(payload map[string]any) { payload["categories"] = "none" },
			missingFields: []string{report.FieldCategories},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			_, normalizeError := report.NewNormalizer(report.ScorePolicyTrust).Normalize(completePayload(subTest, testCase.mutate), testRepoNameConstant, testModelUsedConstant)
			require.ErrorIs(subTest, normalizeError, report.ErrIncompleteAuditResult)

			var incompleteError report.IncompleteAuditResultError
			require.ErrorAs(subTest, normalizeError, &incompleteError)
			require.Equal(subTest, testCase.missingFields, incompleteError.MissingFields)
		})
	}
}

func TestNormalizerRejectsUndecodablePayload(testInstance *testing.T) {
	for _, payload := range []string{"", "the oracle declined", "{not json}"} {
		_, normalizeError := report.NewNormalizer("").Normalize(payload, testRepoNameConstant, testModelUsedConstant)
		require.ErrorIs(testInstance, normalizeError, report.ErrIncompleteAuditResult, payload)
	}
}

func TestNormalizerDefaultsAndClampsScores(testInstance *testing.T) {
	payload := completePayload(testInstance, func(payload map[string]any) {
		categories := payload["categories"].([]any)
		firstCategory := categories[0].(map[string]any)
		metrics := firstCategory["metrics"].([]any)
		delete(metrics[0].(map[string]any), "score")
		metrics[1].(map[string]any)["score"] = 9
		metrics[2].(map[string]any)["score"] = "4"
		metrics[3].(map[string]any)["score"] = 2.6
		delete(metrics[3].(map[string]any), "label")
		firstCategory["title"] = ""
		payload["scores"] = map[string]any{"core": 25, "security": -3, "total": 150}
	})

	result, normalizeError := report.NewNormalizer(report.ScorePolicyTrust).Normalize(payload, testRepoNameConstant, testModelUsedConstant)
	require.NoError(testInstance, normalizeError)

	firstCategory := result.Categories[0]
	require.Equal(testInstance, report.Rubric()[0].Title, firstCategory.Title)
	require.Equal(testInstance, []int{0, 5, 4, 3}, metricScores(firstCategory))
	require.Equal(testInstance, report.Rubric()[0].Metrics[3].Label, firstCategory.Metrics[3].Label)
	require.Equal(testInstance, report.Scores{Core: 20, Total: 100}, result.Scores)
	require.Equal(testInstance, []string{
		`metric "Dependency Bloat" in category "Architecture & Vibe" scored 9; clamped to 5`,
		`score "core" reported 25; clamped to 20`,
		`score "security" reported -3; clamped to 0`,
		`score "total" reported 150; clamped to 100`,
	}, result.Warnings)
}

func TestNormalizerFlagReportsClampedCategory(testInstance *testing.T) {
	payload := completePayload(testInstance, func(payload map[string]any) {
		architectureMetrics := payload["categories"].([]any)[0].(map[string]any)["metrics"].([]any)
		for _, metric := range architectureMetrics {
			metric.(map[string]any)["score"] = 9
		}
		payload["scores"] = map[string]any{
			"architecture": 36, "core": 12, "performance": 12, "security": 12, "qa": 12, "total": 84,
		}
	})

	result, normalizeError := report.NewNormalizer(report.ScorePolicyFlag).Normalize(payload, testRepoNameConstant, testModelUsedConstant)
	require.NoError(testInstance, normalizeError)

	architecture := report.Rubric()[0]
	expectedWarnings := make([]string, 0, len(architecture.Metrics)+2)
	for _, metric := range architecture.Metrics {
		expectedWarnings = append(expectedWarnings, fmt.Sprintf("metric %q in category %q scored 9; clamped to 5", metric.Label, architecture.Title))
	}
	expectedWarnings = append(expectedWarnings,
		`score "architecture" reported 36; clamped to 20`,
		"category totals sum to 68 but the reported grand total is 84",
	)
	require.Equal(testInstance, report.Scores{Architecture: 20, Core: 12, Performance: 12, Security: 12, QA: 12, Total: 84}, result.Scores)
	require.Equal(testInstance, expectedWarnings, result.Warnings)
}

func TestNormalizerMatchesCategoriesByTitle(testInstance *testing.T) {
	reorderedPayload := completePayload(testInstance, func(payload map[string]any) {
		categories := payload["categories"].([]any)
		qualityCategory := categories[4].(map[string]any)
		for _, metric := range qualityCategory["metrics"].([]any) {
			metric.(map[string]any)["score"] = 0
		}
		categories[1].(map[string]any)["title"] = strings.ToLower(report.Rubric()[1].Title)
		payload["categories"] = append([]any{qualityCategory}, categories[:4]...)
	})

	testCases := []struct {
		name             string
		policy           report.ScorePolicy
		expectedScores   report.Scores
		expectedWarnings []string
	}{
		{
			name:           "trust keeps reported totals",
			policy:         report.ScorePolicyTrust,
			expectedScores: report.Scores{Architecture: 12, Core: 12, Performance: 12, Security: 12, QA: 12, Total: 60},
		},
		{
			name:           "recompute keys sums by title",
			policy:         report.ScorePolicyRecompute,
			expectedScores: report.Scores{Architecture: 12, Core: 12, Performance: 12, Security: 12, QA: 0, Total: 48},
		},
		{
			name:             "flag compares against the titled category",
			policy:           report.ScorePolicyFlag,
			expectedScores:   report.Scores{Architecture: 12, Core: 12, Performance: 12, Security: 12, QA: 12, Total: 60},
			expectedWarnings: []string{`category "QA & Operations" metrics sum to 0 but the reported total is 12`},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			result, normalizeError := report.NewNormalizer(testCase.policy).Normalize(reorderedPayload, testRepoNameConstant, testModelUsedConstant)
			require.NoError(subTest, normalizeError)
			require.Equal(subTest, report.Rubric()[4].Title, result.Categories[0].Title)
			require.Equal(subTest, testCase.expectedScores, result.Scores)
			require.Equal(subTest, testCase.expectedWarnings, result.Warnings)
		})
	}
}

func TestNormalizerWarnsAboutUnknownCategory(testInstance *testing.T) {
	payload := completePayload(testInstance, func(payload map[string]any) {
		payload["categories"].([]any)[2].(map[string]any)["title"] = "Speed"
	})

	result, normalizeError := report.NewNormalizer(report.ScorePolicyRecompute).Normalize(payload, testRepoNameConstant, testModelUsedConstant)
	require.NoError(testInstance, normalizeError)
	require.Equal(testInstance, report.Scores{Architecture: 12, Core: 12, Performance: 12, Security: 12, QA: 12, Total: 60}, result.Scores)
	require.Equal(testInstance, []string{
		`category "Speed" does not match a rubric category`,
		"cannot recompute totals from 4 categories; kept the reported totals",
	}, result.Warnings)
}

func TestNormalizerRepairsWrappedPayload(testInstance *testing.T) {
	testCases := []struct {
		name    string
		wrapper string
	}{
		{name: "fenced with prose", wrapper: "Here is the audit:\n```json\n%s\n```\nThanks."},
		{name: "braces in prose before the fence", wrapper: "Scores use {0..5} per metric.\n```json\n%s\n```\nSee {notes}."},
		{name: "bare object in prose", wrapper: "Audit follows %s done"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			wrappedPayload := fmt.Sprintf(testCase.wrapper, completePayload(subTest, nil))
			result, normalizeError := report.NewNormalizer(report.ScorePolicyTrust).Normalize(wrappedPayload, testRepoNameConstant, testModelUsedConstant)
			require.NoError(subTest, normalizeError)
			require.Equal(subTest, 60, result.Scores.Total)
		})
	}
}

func TestNormalizerRemediationStepBounds(testInstance *testing.T) {
	testCases := []struct {
		name          string
		stepCount     int
		expectedSteps int
		warning       string
	}{
		{name: "extra steps truncated", stepCount: 12, expectedSteps: 10, warning: "remediation plan listed 12 steps; kept the first 10"},
		{name: "short plan kept with warning", stepCount: 7, expectedSteps: 7, warning: "remediation plan listed 7 steps; expected 10"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			payload := completePayload(subTest, func(payload map[string]any) {
				steps := make([]any, 0, testCase.stepCount)
				for stepIndex := 0; stepIndex < testCase.stepCount; stepIndex++ {
					steps = append(steps, fmt.Sprintf("Step %d", stepIndex))
				}
				payload["remediation_steps"] = steps
			})
			result, normalizeError := report.NewNormalizer(report.ScorePolicyTrust).Normalize(payload, testRepoNameConstant, testModelUsedConstant)
			require.NoError(subTest, normalizeError)
			require.Len(subTest, result.RemediationSteps, testCase.expectedSteps)
			require.Equal(subTest, []string{testCase.warning}, result.Warnings)
		})
	}
}

func TestNormalizerScorePolicies(testInstance *testing.T) {
	inconsistentPayload := completePayload(testInstance, func(payload map[string]any) {
		payload["scores"] = map[string]any{
			"architecture": 15, "core": 12, "performance": 12, "security": 12, "qa": 12, "total": 70,
		}
	})

	testCases := []struct {
		name             string
		policy           report.ScorePolicy
		expectedScores   report.Scores
		expectedWarnings []string
	}{
		{
			name:           "trust keeps reported totals",
			policy:         report.ScorePolicyTrust,
			expectedScores: report.Scores{Architecture: 15, Core: 12, Performance: 12, Security: 12, QA: 12, Total: 70},
		},
		{
			name:           "recompute sums metrics",
			policy:         report.ScorePolicyRecompute,
			expectedScores: report.Scores{Architecture: 12, Core: 12, Performance: 12, Security: 12, QA: 12, Total: 60},
		},
		{
			name:           "flag reports mismatches",
			policy:         report.ScorePolicyFlag,
			expectedScores: report.Scores{Architecture: 15, Core: 12, Performance: 12, Security: 12, QA: 12, Total: 70},
			expectedWarnings: []string{
				`category "Architecture & Vibe" metrics sum to 12 but the reported total is 15`,
				"category totals sum to 63 but the reported grand total is 70",
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			result, normalizeError := report.NewNormalizer(testCase.policy).Normalize(inconsistentPayload, testRepoNameConstant, testModelUsedConstant)
			require.NoError(subTest, normalizeError)
			require.Equal(subTest, testCase.expectedScores, result.Scores)
			require.Equal(subTest, testCase.expectedWarnings, result.Warnings)
		})
	}
}

func TestNormalizerRecomputeRequiresFullRubric(testInstance *testing.T) {
	payload := completePayload(testInstance, func(payload map[string]any) {
		payload["categories"] = payload["categories"].([]any)[:3]
	})
	result, normalizeError := report.NewNormalizer(report.ScorePolicyRecompute).Normalize(payload, testRepoNameConstant, testModelUsedConstant)
	require.NoError(testInstance, normalizeError)
	require.Equal(testInstance, 60, result.Scores.Total)
	require.Len(testInstance, result.Warnings, 1)
	require.True(testInstance, strings.HasPrefix(result.Warnings[0], "cannot recompute totals from 3 categories"))
}

func TestParseScorePolicy(testInstance *testing.T) {
	testCases := []struct {
		input    string
		expected report.ScorePolicy
		failure  bool
	}{
		{input: "", expected: report.ScorePolicyTrust},
		{input: " Recompute ", expected: report.ScorePolicyRecompute},
		{input: "flag", expected: report.ScorePolicyFlag},
		{input: "ignore", failure: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.input, func(subTest *testing.T) {
			policy, parseError := report.ParseScorePolicy(testCase.input)
			if testCase.failure {
				require.ErrorIs(subTest, parseError, report.ErrUnknownScorePolicy)
				return
			}
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expected, policy)
		})
	}
}

func metricScores(category report.Category) []int {
	scores := make([]int, 0, len(category.Metrics))
	for _, metric := range category.Metrics {
		scores = append(scores, metric.Score)
	}
	return scores
}
