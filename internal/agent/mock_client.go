package agent

import (
	"context"
	"strings"
)

// MockAIClient stands in for the model during local development without an
// API key. Router calls get a canned classification; extraction calls get an
// empty object, which flows through as a needs-input result.
type MockAIClient struct {
	Model string
}

func (m MockAIClient) Query(_ context.Context, req AIModelRequest) (AIModelResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = strings.TrimSpace(m.Model)
	}
	if model == "" {
		model = "mock"
	}

	answer := `{"workflow": "general", "response": "Mock response: ` + strings.TrimSpace(req.UserPrompt) + `"}`
	if req.ResponseSchema != nil {
		answer = "{}"
	} else {
		lowered := strings.ToLower(req.UserPrompt)
		if strings.Contains(lowered, "profile") || strings.Contains(lowered, "spouse") || strings.Contains(lowered, "child") {
			answer = `{"workflow": "profile", "action": "view", "context": "profile request", "response": "Let me check your profile."}`
		}
	}

	return AIModelResponse{
		Answer: answer,
		Model:  model,
		Usage: AIUsage{
			PromptTokens:     120,
			CompletionTokens: 80,
			TotalTokens:      200,
		},
	}, nil
}
