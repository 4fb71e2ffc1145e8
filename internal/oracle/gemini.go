package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultTemperatureConstant is the sampling temperature used when none is configured.
	DefaultTemperatureConstant      = 0.7
	jsonResponseMIMETypeConstant    = "application/json"
	apiKeyMissingMessageConstant    = "oracle API key is required"
	clientCreationTemplateConstant  = "unable to create Gemini client: %w"
	generateContentTemplateConstant = "model %s: %w"
	blockedPromptTemplateConstant   = "model %s blocked the prompt: %s"
)

// ErrAPIKeyMissing indicates the Gemini API key was not provided.
var ErrAPIKeyMissing = errors.New(apiKeyMissingMessageConstant)

// GeminiConfiguration configures GeminiOracle.
type GeminiConfiguration struct {
	APIKey string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL     string
	HTTPClient  *http.Client
	Temperature float32
}

// GeminiOracle answers audit requests through the Gemini API with a JSON response schema.
type GeminiOracle struct {
	client      *genai.Client
	temperature float32
	schema      *genai.Schema
}

// NewGeminiOracle constructs a GeminiOracle.
func NewGeminiOracle(executionContext context.Context, configuration GeminiConfiguration) (*GeminiOracle, error) {
	apiKey := strings.TrimSpace(configuration.APIKey)
	if len(apiKey) == 0 {
		return nil, ErrAPIKeyMissing
	}

	clientConfiguration := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: configuration.HTTPClient,
	}
	if baseURL := strings.TrimSpace(configuration.BaseURL); len(baseURL) > 0 {
		clientConfiguration.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, clientError := genai.NewClient(executionContext, clientConfiguration)
	if clientError != nil {
		return nil, fmt.Errorf(clientCreationTemplateConstant, clientError)
	}

	temperature := configuration.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperatureConstant
	}

	return &GeminiOracle{client: client, temperature: temperature, schema: ResponseSchema()}, nil
}

// Generate sends request to model and returns the raw JSON text of the answer.
func (oracle *GeminiOracle) Generate(executionContext context.Context, model string, request Request) (string, error) {
	generationConfiguration := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(request.SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(oracle.temperature),
		ResponseMIMEType:  jsonResponseMIMETypeConstant,
		ResponseSchema:    oracle.schema,
	}

	response, generateError := oracle.client.Models.GenerateContent(executionContext, model, genai.Text(request.Prompt), generationConfiguration)
	if generateError != nil {
		return "", fmt.Errorf(generateContentTemplateConstant, model, generateError)
	}
	if response.PromptFeedback != nil && len(response.PromptFeedback.BlockReason) > 0 {
		return "", fmt.Errorf(blockedPromptTemplateConstant, model, response.PromptFeedback.BlockReason)
	}

	text := response.Text()
	if len(strings.TrimSpace(text)) == 0 {
		return "", fmt.Errorf(generateContentTemplateConstant, model, ErrEmptyResponse)
	}
	return text, nil
}
