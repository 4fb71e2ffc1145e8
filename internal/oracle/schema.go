package oracle

import (
	"google.golang.org/genai"

	"github.com/temirov/repoaudit/internal/report"
)

const (
	schemaFieldTitleConstant     = "title"
	schemaFieldMetricsConstant   = "metrics"
	schemaFieldLabelConstant     = "label"
	schemaFieldScoreConstant     = "score"
	schemaFieldRationaleConstant = "rationale"
)

// ResponseSchema describes the structured payload the oracle must return.
// Field names match what report.Normalizer requires.
func ResponseSchema() *genai.Schema {
	metricSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			schemaFieldLabelConstant:     {Type: genai.TypeString},
			schemaFieldScoreConstant:     {Type: genai.TypeInteger, Minimum: genai.Ptr[float64](0), Maximum: genai.Ptr[float64](report.MetricScoreMaximum)},
			schemaFieldRationaleConstant: {Type: genai.TypeString},
		},
		Required:         []string{schemaFieldLabelConstant, schemaFieldScoreConstant, schemaFieldRationaleConstant},
		PropertyOrdering: []string{schemaFieldLabelConstant, schemaFieldScoreConstant, schemaFieldRationaleConstant},
	}

	categorySchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			schemaFieldTitleConstant: {Type: genai.TypeString},
			schemaFieldMetricsConstant: {
				Type:     genai.TypeArray,
				Items:    metricSchema,
				MinItems: genai.Ptr[int64](report.MetricsPerCategory),
				MaxItems: genai.Ptr[int64](report.MetricsPerCategory),
			},
		},
		Required:         []string{schemaFieldTitleConstant, schemaFieldMetricsConstant},
		PropertyOrdering: []string{schemaFieldTitleConstant, schemaFieldMetricsConstant},
	}

	scoreProperties := map[string]*genai.Schema{}
	scoreFieldNames := make([]string, 0, len(report.CategoryKeys())+1)
	for _, key := range report.CategoryKeys() {
		scoreProperties[string(key)] = &genai.Schema{Type: genai.TypeInteger, Minimum: genai.Ptr[float64](0), Maximum: genai.Ptr[float64](report.CategoryScoreMaximum)}
		scoreFieldNames = append(scoreFieldNames, string(key))
	}
	scoreProperties[report.FieldTotal] = &genai.Schema{Type: genai.TypeInteger, Minimum: genai.Ptr[float64](0), Maximum: genai.Ptr[float64](report.TotalScoreMaximum)}
	scoreFieldNames = append(scoreFieldNames, report.FieldTotal)

	topLevelFieldNames := []string{
		report.FieldCategories,
		report.FieldScores,
		report.FieldVibeCheck,
		report.FieldRemediationSteps,
		report.FieldVerdictNarrative,
		report.FieldVerdictShort,
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			report.FieldCategories: {
				Type:     genai.TypeArray,
				Items:    categorySchema,
				MinItems: genai.Ptr[int64](int64(len(report.CategoryKeys()))),
				MaxItems: genai.Ptr[int64](int64(len(report.CategoryKeys()))),
			},
			report.FieldScores: {
				Type:             genai.TypeObject,
				Properties:       scoreProperties,
				Required:         scoreFieldNames,
				PropertyOrdering: scoreFieldNames,
			},
			report.FieldVibeCheck: {Type: genai.TypeString},
			report.FieldRemediationSteps: {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				MinItems: genai.Ptr[int64](report.RemediationStepsCount),
				MaxItems: genai.Ptr[int64](report.RemediationStepsCount),
			},
			report.FieldVerdictNarrative: {Type: genai.TypeString},
			report.FieldVerdictShort:     {Type: genai.TypeString},
		},
		Required:         topLevelFieldNames,
		PropertyOrdering: topLevelFieldNames,
	}
}
