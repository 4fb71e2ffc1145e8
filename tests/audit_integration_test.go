package tests

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repoaudit/internal/report"
)

const (
	auditIntegrationCommandName             = "audit"
	auditIntegrationRepositoryURL           = "https://github.com/acme/widget"
	auditIntegrationOutputFlag              = "--output"
	auditIntegrationMarkdownFileFlag        = "--markdown-file"
	auditIntegrationTierFlag                = "--tier"
	auditIntegrationGitHubBaseURLEnvKey     = "REPOAUDIT_TOOLS_AUDIT_GITHUB_BASE_URL"
	auditIntegrationOracleBaseURLEnvKey     = "REPOAUDIT_TOOLS_AUDIT_ORACLE_BASE_URL"
	auditIntegrationExpectedAuthorization   = "Bearer test-token"
	auditIntegrationMetricScore             = 3
	auditIntegrationSummaryTotal            = "TOTAL 60/100"
	auditIntegrationMarkdownFileName        = "AUDIT_widget.md"
	auditIntegrationRateLimitGuidanceMarker = "GH_TOKEN"
	auditIntegrationPrimaryModel            = "gemini-2.5-pro"
	auditIntegrationFallbackModel           = "gemini-2.5-flash"
	auditIntegrationCustomModel             = "integration-model"
	auditIntegrationSummaryCaseName         = "summary_output"
	auditIntegrationJSONCaseName            = "json_output"
	auditIntegrationFallbackCaseName        = "primary_tier_fails"
	auditIntegrationCustomTierCaseName      = "custom_tier_flag"
)

type hostingRecorder struct {
	mutex          sync.Mutex
	authorizations []string
}

func (recorder *hostingRecorder) record(request *http.Request) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.authorizations = append(recorder.authorizations, request.Header.Get("Authorization"))
}

func (recorder *hostingRecorder) recorded() []string {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return append([]string(nil), recorder.authorizations...)
}

func writeIntegrationJSON(responseWriter http.ResponseWriter, statusCode int, body string) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(statusCode)
	_, _ = responseWriter.Write([]byte(body))
}

func encodedIntegrationContent(path string, content string) string {
	return fmt.Sprintf(`{"type":"file","encoding":"base64","path":%q,"content":%q}`, path, base64.StdEncoding.EncodeToString([]byte(content)))
}

func newHostingServer(testInstance *testing.T, metadataStatus int) (*httptest.Server, *hostingRecorder) {
	testInstance.Helper()
	recorder := &hostingRecorder{}
	serveMux := http.NewServeMux()
	serveMux.HandleFunc("GET /repos/acme/widget", func(responseWriter http.ResponseWriter, request *http.Request) {
		if metadataStatus != http.StatusOK {
			writeIntegrationJSON(responseWriter, metadataStatus, `{"message":"API rate limit exceeded"}`)
			return
		}
		writeIntegrationJSON(responseWriter, http.StatusOK, `{"full_name":"acme/widget","description":"Widgets","default_branch":"main"}`)
	})
	serveMux.HandleFunc("GET /repos/acme/widget/readme", func(responseWriter http.ResponseWriter, request *http.Request) {
		writeIntegrationJSON(responseWriter, http.StatusOK, encodedIntegrationContent("README.md", "# Widget\n"))
	})
	serveMux.HandleFunc("GET /repos/acme/widget/commits", func(responseWriter http.ResponseWriter, request *http.Request) {
		writeIntegrationJSON(responseWriter, http.StatusOK, `[{"sha":"0123456789abcdef","commit":{"message":"Add parser","author":{"name":"Ada","date":"2025-10-01T10:00:00Z"}}}]`)
	})
	serveMux.HandleFunc("GET /repos/acme/widget/git/trees/main", func(responseWriter http.ResponseWriter, request *http.Request) {
		writeIntegrationJSON(responseWriter, http.StatusOK, `{"sha":"tree-sha","truncated":false,"tree":[
			{"path":"README.md","type":"blob","size":9},
			{"path":"go.mod","type":"blob","size":32}
		]}`)
	})
	serveMux.HandleFunc("GET /repos/acme/widget/contents/{filePath...}", func(responseWriter http.ResponseWriter, request *http.Request) {
		filePath := request.PathValue("filePath")
		if filePath == "go.mod" {
			writeIntegrationJSON(responseWriter, http.StatusOK, encodedIntegrationContent(filePath, "module example.com/widget\n"))
			return
		}
		writeIntegrationJSON(responseWriter, http.StatusNotFound, `{"message":"Not Found"}`)
	})

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		recorder.record(request)
		serveMux.ServeHTTP(responseWriter, request)
	}))
	testInstance.Cleanup(server.Close)
	return server, recorder
}

func integrationAuditPayload(testInstance *testing.T) string {
	testInstance.Helper()
	categories := make([]any, 0, len(report.Rubric()))
	for _, category := range report.Rubric() {
		metrics := make([]any, 0, len(category.Metrics))
		for _, metric := range category.Metrics {
			metrics = append(metrics, map[string]any{"label": metric.Label, "score": auditIntegrationMetricScore, "rationale": "Observed in evidence."})
		}
		categories = append(categories, map[string]any{"title": category.Title, "metrics": metrics})
	}
	steps := make([]any, 0, report.RemediationStepsCount)
	for stepIndex := 1; stepIndex <= report.RemediationStepsCount; stepIndex++ {
		steps = append(steps, fmt.Sprintf("[Medium - QA]: Step %d", stepIndex))
	}
	categoryTotal := auditIntegrationMetricScore * report.MetricsPerCategory
	encoded, encodeError := json.Marshal(map[string]any{
		"categories": categories,
		"scores": map[string]any{
			"architecture": categoryTotal, "core": categoryTotal, "performance": categoryTotal,
			"security": categoryTotal, "qa": categoryTotal, "total": categoryTotal * 5,
		},
		"verdict_short":     "Small and tidy.",
		"verdict_narrative": "The widget module is small.",
		"vibe_check":        "Human written.",
		"remediation_steps": steps,
	})
	require.NoError(testInstance, encodeError)
	return string(encoded)
}

// newModelServer answers generateContent calls for every model except the failing ones.
func newModelServer(testInstance *testing.T, payload string, failingModels ...string) (*httptest.Server, func() []string) {
	testInstance.Helper()
	var mutex sync.Mutex
	var requestedPaths []string

	candidateBody, encodeError := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": payload}}},
			"finishReason": "STOP",
		}},
	})
	require.NoError(testInstance, encodeError)

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		mutex.Lock()
		requestedPaths = append(requestedPaths, request.URL.Path)
		mutex.Unlock()
		for _, failingModel := range failingModels {
			if strings.Contains(request.URL.Path, "models/"+failingModel+":") {
				writeIntegrationJSON(responseWriter, http.StatusBadRequest, `{"error":{"code":400,"message":"model rejected","status":"INVALID_ARGUMENT"}}`)
				return
			}
		}
		writeIntegrationJSON(responseWriter, http.StatusOK, string(candidateBody))
	}))
	testInstance.Cleanup(server.Close)

	return server, func() []string {
		mutex.Lock()
		defer mutex.Unlock()
		return append([]string(nil), requestedPaths...)
	}
}

func TestAuditCommandIntegration(testInstance *testing.T) {
	testCases := []struct {
		name           string
		arguments      []string
		failingModels  []string
		expectedModels []string
		validateOutput func(subTest *testing.T, standardOutput string)
	}{
		{
			name:           auditIntegrationSummaryCaseName,
			arguments:      []string{auditIntegrationOutputFlag, "summary"},
			expectedModels: []string{auditIntegrationPrimaryModel},
			validateOutput: func(subTest *testing.T, standardOutput string) {
				require.Contains(subTest, standardOutput, auditIntegrationSummaryTotal)
			},
		},
		{
			name:           auditIntegrationJSONCaseName,
			arguments:      []string{auditIntegrationOutputFlag, "json"},
			expectedModels: []string{auditIntegrationPrimaryModel},
			validateOutput: func(subTest *testing.T, standardOutput string) {
				decoded := map[string]any{}
				require.NoError(subTest, json.Unmarshal([]byte(standardOutput), &decoded))
				require.Equal(subTest, "widget", decoded["repo_name"])
				require.Equal(subTest, auditIntegrationPrimaryModel, decoded["model_used"])
			},
		},
		{
			name:           auditIntegrationFallbackCaseName,
			arguments:      []string{auditIntegrationOutputFlag, "json"},
			failingModels:  []string{auditIntegrationPrimaryModel},
			expectedModels: []string{auditIntegrationPrimaryModel, auditIntegrationFallbackModel},
			validateOutput: func(subTest *testing.T, standardOutput string) {
				decoded := map[string]any{}
				require.NoError(subTest, json.Unmarshal([]byte(standardOutput), &decoded))
				require.Equal(subTest, auditIntegrationFallbackModel, decoded["model_used"])
			},
		},
		{
			name:           auditIntegrationCustomTierCaseName,
			arguments:      []string{auditIntegrationOutputFlag, "summary", auditIntegrationTierFlag, auditIntegrationCustomModel},
			expectedModels: []string{auditIntegrationCustomModel},
			validateOutput: func(subTest *testing.T, standardOutput string) {
				require.Contains(subTest, standardOutput, auditIntegrationSummaryTotal)
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(integrationSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(subTest *testing.T) {
			hostingServer, hostingRequests := newHostingServer(subTest, http.StatusOK)
			modelServer, modelRequests := newModelServer(subTest, integrationAuditPayload(subTest), testCase.failingModels...)

			arguments := append([]string{auditIntegrationCommandName, auditIntegrationRepositoryURL}, testCase.arguments...)
			result := runIntegrationCommand(subTest, map[string]string{
				auditIntegrationGitHubBaseURLEnvKey: hostingServer.URL,
				auditIntegrationOracleBaseURLEnvKey: modelServer.URL,
			}, arguments...)
			requireSuccessfulRun(subTest, result)

			testCase.validateOutput(subTest, result.standardOutput)

			requestedPaths := modelRequests()
			require.Len(subTest, requestedPaths, len(testCase.expectedModels))
			for pathIndex, expectedModel := range testCase.expectedModels {
				require.Contains(subTest, requestedPaths[pathIndex], "models/"+expectedModel+":generateContent")
			}

			for _, authorization := range hostingRequests.recorded() {
				require.Equal(subTest, auditIntegrationExpectedAuthorization, authorization)
			}
		})
	}
}

func TestAuditCommandIntegrationWritesMarkdownFile(testInstance *testing.T) {
	hostingServer, _ := newHostingServer(testInstance, http.StatusOK)
	modelServer, _ := newModelServer(testInstance, integrationAuditPayload(testInstance))
	exportDirectory := testInstance.TempDir()

	result := runIntegrationCommand(testInstance, map[string]string{
		auditIntegrationGitHubBaseURLEnvKey: hostingServer.URL,
		auditIntegrationOracleBaseURLEnvKey: modelServer.URL,
	}, auditIntegrationCommandName, auditIntegrationRepositoryURL, auditIntegrationOutputFlag, "summary", auditIntegrationMarkdownFileFlag, exportDirectory)
	requireSuccessfulRun(testInstance, result)

	markdownContent, readError := os.ReadFile(filepath.Join(exportDirectory, auditIntegrationMarkdownFileName))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(markdownContent), "widget")
}

func TestAuditCommandIntegrationReportsRateLimit(testInstance *testing.T) {
	hostingServer, _ := newHostingServer(testInstance, http.StatusForbidden)
	modelServer, modelRequests := newModelServer(testInstance, integrationAuditPayload(testInstance))

	result := runIntegrationCommand(testInstance, map[string]string{
		auditIntegrationGitHubBaseURLEnvKey: hostingServer.URL,
		auditIntegrationOracleBaseURLEnvKey: modelServer.URL,
	}, auditIntegrationCommandName, auditIntegrationRepositoryURL)

	require.Error(testInstance, result.runError)
	require.Empty(testInstance, result.standardOutput)
	require.Contains(testInstance, result.standardError, "RateLimitExceeded")
	require.Contains(testInstance, result.standardError, auditIntegrationRateLimitGuidanceMarker)
	require.Empty(testInstance, modelRequests())
}
