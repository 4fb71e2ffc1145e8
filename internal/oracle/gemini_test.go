package oracle_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repoaudit/internal/oracle"
)

const (
	testGeminiAPIKeyConstant = "test-gemini-key"
	testGeminiModelConstant  = "gemini-test"
)

type recordedGeminiRequest struct {
	path string
	body map[string]any
}

func newGeminiTestServer(testInstance *testing.T, statusCode int, responseBody string) (*httptest.Server, func() []recordedGeminiRequest) {
	testInstance.Helper()
	var mutex sync.Mutex
	var recordedRequests []recordedGeminiRequest

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		requestBody, _ := io.ReadAll(request.Body)
		decodedBody := map[string]any{}
		_ = json.Unmarshal(requestBody, &decodedBody)

		mutex.Lock()
		recordedRequests = append(recordedRequests, recordedGeminiRequest{path: request.URL.Path, body: decodedBody})
		mutex.Unlock()

		responseWriter.Header().Set("Content-Type", "application/json")
		responseWriter.WriteHeader(statusCode)
		_, _ = responseWriter.Write([]byte(responseBody))
	}))
	testInstance.Cleanup(server.Close)

	return server, func() []recordedGeminiRequest {
		mutex.Lock()
		defer mutex.Unlock()
		return append([]recordedGeminiRequest(nil), recordedRequests...)
	}
}

func newTestGeminiOracle(testInstance *testing.T, server *httptest.Server) *oracle.GeminiOracle {
	testInstance.Helper()
	geminiOracle, creationError := oracle.NewGeminiOracle(context.Background(), oracle.GeminiConfiguration{
		APIKey:     testGeminiAPIKeyConstant,
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	require.NoError(testInstance, creationError)
	return geminiOracle
}

func TestGeminiOracleGenerate(testInstance *testing.T) {
	server, recordedRequests := newGeminiTestServer(testInstance, http.StatusOK, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "{\"verdict_short\":\"fine\"}"}]},
			"finishReason": "STOP"
		}]
	}`)
	geminiOracle := newTestGeminiOracle(testInstance, server)

	payload, generateError := geminiOracle.Generate(context.Background(), testGeminiModelConstant, oracle.Request{
		SystemInstruction: "grade strictly",
		Prompt:            "audit acme/widget",
	})
	require.NoError(testInstance, generateError)
	require.Equal(testInstance, `{"verdict_short":"fine"}`, payload)

	requests := recordedRequests()
	require.Len(testInstance, requests, 1)
	require.True(testInstance, strings.HasSuffix(requests[0].path, "models/"+testGeminiModelConstant+":generateContent"), requests[0].path)

	encodedBody, encodeError := json.Marshal(requests[0].body)
	require.NoError(testInstance, encodeError)
	require.Contains(testInstance, string(encodedBody), "audit acme/widget")
	require.Contains(testInstance, string(encodedBody), "grade strictly")
	require.Contains(testInstance, string(encodedBody), "application/json")
	require.Contains(testInstance, string(encodedBody), "remediation_steps")
}

func TestGeminiOracleFailures(testInstance *testing.T) {
	testCases := []struct {
		name         string
		statusCode   int
		responseBody string
	}{
		{name: "server error", statusCode: http.StatusInternalServerError, responseBody: `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`},
		{name: "empty candidates", statusCode: http.StatusOK, responseBody: `{"candidates":[]}`},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			server, _ := newGeminiTestServer(subTest, testCase.statusCode, testCase.responseBody)
			geminiOracle := newTestGeminiOracle(subTest, server)

			_, generateError := geminiOracle.Generate(context.Background(), testGeminiModelConstant, oracle.Request{Prompt: "audit"})
			require.Error(subTest, generateError)
		})
	}
}

func TestNewGeminiOracleRequiresAPIKey(testInstance *testing.T) {
	_, creationError := oracle.NewGeminiOracle(context.Background(), oracle.GeminiConfiguration{APIKey: "  "})
	require.ErrorIs(testInstance, creationError, oracle.ErrAPIKeyMissing)
}
