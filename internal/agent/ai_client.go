// Package agent contains the language-model pieces of the chat backend: the
// transport client, the main dialogue router, the structured-extraction
// client and the profile workflow coordinator.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IvanMacRib/ParentPalMVP/internal/config"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type AIModelRequest struct {
	Model        string
	SystemPrompt string
	Conversation []ChatTurn
	UserPrompt   string
	// ResponseSchema, when set, constrains the model to a JSON object of this
	// shape (responses API json_schema text format).
	ResponseSchema map[string]any
	SchemaName     string
}

type AIModelResponse struct {
	Answer string
	Model  string
	Usage  AIUsage
}

type AIClient interface {
	Query(ctx context.Context, req AIModelRequest) (AIModelResponse, error)
}

type OpenAIResponsesClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
}

func NewOpenAIResponsesClient(cfg config.Config) *OpenAIResponsesClient {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	return &OpenAIResponsesClient{
		apiKey:          strings.TrimSpace(cfg.OpenAIAPIKey),
		baseURL:         strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"),
		model:           strings.TrimSpace(cfg.OpenAIModel),
		maxOutputTokens: cfg.AIMaxOutputTokens,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

func (c *OpenAIResponsesClient) Query(ctx context.Context, req AIModelRequest) (AIModelResponse, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return AIModelResponse{}, errors.New("OPENAI_API_KEY is not configured")
	}
	if strings.TrimSpace(c.baseURL) == "" {
		return AIModelResponse{}, errors.New("OPENAI_BASE_URL is not configured")
	}
	requestModel := strings.TrimSpace(req.Model)
	if requestModel == "" {
		requestModel = strings.TrimSpace(c.model)
	}
	if requestModel == "" {
		return AIModelResponse{}, errors.New("OPENAI_MODEL is not configured")
	}

	type inputText struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type inputBlock struct {
		Role    string      `json:"role"`
		Content []inputText `json:"content"`
	}

	input := make([]inputBlock, 0, len(req.Conversation)+2)
	if prompt := strings.TrimSpace(req.SystemPrompt); prompt != "" {
		input = append(input, inputBlock{
			Role:    "system",
			Content: []inputText{{Type: "input_text", Text: prompt}},
		})
	}
	for _, turn := range req.Conversation {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		contentType := "input_text"
		if role == "assistant" {
			contentType = "output_text"
		}
		input = append(input, inputBlock{
			Role:    role,
			Content: []inputText{{Type: contentType, Text: content}},
		})
	}
	if prompt := strings.TrimSpace(req.UserPrompt); prompt != "" {
		input = append(input, inputBlock{
			Role:    "user",
			Content: []inputText{{Type: "input_text", Text: prompt}},
		})
	}
	if len(input) == 0 {
		return AIModelResponse{}, errors.New("AI request input is empty")
	}

	maxTokens := c.maxOutputTokens
	if maxTokens < 600 {
		maxTokens = 600
	}
	payload := map[string]any{
		"model":             requestModel,
		"input":             input,
		"max_output_tokens": maxTokens,
	}
	if req.ResponseSchema != nil {
		schemaName := strings.TrimSpace(req.SchemaName)
		if schemaName == "" {
			schemaName = "structured_output"
		}
		payload["text"] = map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   schemaName,
				"schema": req.ResponseSchema,
			},
		}
	} else {
		payload["text"] = map[string]any{"verbosity": "low"}
	}

	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return AIModelResponse{}, err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(bodyRaw))
	if err != nil {
		return AIModelResponse{}, err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return AIModelResponse{}, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return AIModelResponse{}, err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return AIModelResponse{}, fmt.Errorf("openai responses error (%d): %s", response.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	parsed := parseJSONStringMap(responseBody)
	answer := extractResponseAnswer(parsed)
	if strings.TrimSpace(answer) == "" {
		if isMaxOutputTokenIncomplete(parsed) {
			return AIModelResponse{}, errors.New("openai response incomplete due max_output_tokens")
		}
		log.Printf("openai response had no extractable answer: %s", truncateForLog(string(responseBody), 1200))
		return AIModelResponse{}, errors.New("openai response answer is empty")
	}

	usageMap, _ := parsed["usage"].(map[string]any)
	modelName := strings.TrimSpace(toString(parsed["model"]))
	if modelName == "" {
		modelName = requestModel
	}

	return AIModelResponse{
		Answer: answer,
		Model:  modelName,
		Usage: AIUsage{
			PromptTokens:     int(extractNumberFromMap(usageMap, "input_tokens", "prompt_tokens")),
			CompletionTokens: int(extractNumberFromMap(usageMap, "output_tokens", "completion_tokens")),
			TotalTokens:      int(extractNumberFromMap(usageMap, "total_tokens")),
		},
	}, nil
}

func extractResponseAnswer(data map[string]any) string {
	direct := strings.TrimSpace(toString(data["output_text"]))
	if direct != "" {
		return direct
	}

	outputs, ok := data["output"].([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0)
	for _, item := range outputs {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		contentList, ok := block["content"].([]any)
		if !ok {
			continue
		}
		for _, contentItem := range contentList {
			contentMap, ok := contentItem.(map[string]any)
			if !ok {
				continue
			}
			contentType := strings.ToLower(strings.TrimSpace(toString(contentMap["type"])))
			if contentType != "output_text" && contentType != "text" {
				continue
			}
			if text := strings.TrimSpace(extractResponseTextValue(contentMap)); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func extractResponseTextValue(content map[string]any) string {
	if content == nil {
		return ""
	}
	if text := strings.TrimSpace(toString(content["text"])); text != "" {
		return text
	}
	if textMap, ok := content["text"].(map[string]any); ok {
		if value := strings.TrimSpace(toString(textMap["value"])); value != "" {
			return value
		}
	}
	return strings.TrimSpace(toString(content["output_text"]))
}

func isMaxOutputTokenIncomplete(parsed map[string]any) bool {
	if parsed == nil {
		return false
	}
	details, ok := parsed["incomplete_details"].(map[string]any)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(toString(details["reason"])), "max_output_tokens")
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}

func parseJSONStringMap(input []byte) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	var result map[string]any
	if err := json.Unmarshal(input, &result); err != nil || result == nil {
		return map[string]any{}
	}
	return result
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func extractNumberFromMap(data map[string]any, keys ...string) float64 {
	if data == nil {
		return 0
	}
	for _, key := range keys {
		raw, ok := data[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case string:
			var parsed float64
			if _, err := fmt.Sscanf(v, "%f", &parsed); err == nil {
				return parsed
			}
		}
	}
	return 0
}
