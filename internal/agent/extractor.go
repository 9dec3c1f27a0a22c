package agent

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/IvanMacRib/ParentPalMVP/internal/profile"
)

const needsInputPrompt = "I couldn't extract the necessary information. Could you provide more details?"

// ExtractionResult is either a set of extracted field values or a
// needs-input signal carrying a clarification prompt. NeedsInput is not an
// error; a transport or model failure surfaces as *ExtractionError instead.
type ExtractionResult struct {
	NeedsInput bool
	Prompt     string
	Fields     profile.Fields
}

// Extractor turns free text into typed profile fields through one
// schema-constrained model call per request.
type Extractor struct {
	ai    AIClient
	model string
}

func NewExtractor(ai AIClient, model string) *Extractor {
	return &Extractor{ai: ai, model: strings.TrimSpace(model)}
}

func (e *Extractor) Extract(ctx context.Context, message string, action Action) (ExtractionResult, error) {
	schema, ok := action.extractionSchema()
	if !ok {
		return ExtractionResult{}, &UnknownActionError{Action: string(action)}
	}

	response, err := e.ai.Query(ctx, AIModelRequest{
		Model:          e.model,
		SystemPrompt:   extractionSystemPrompt(action),
		UserPrompt:     message,
		ResponseSchema: schema,
		SchemaName:     "extract_profile_data",
	})
	if err != nil {
		return ExtractionResult{}, &ExtractionError{Err: err}
	}

	fields, ok := parseModelJSONObject(response.Answer)
	if !ok || len(fields) == 0 {
		log.Printf("extraction produced no structured result action=%s answer=%s", action, truncateForLog(response.Answer, 400))
		return ExtractionResult{NeedsInput: true, Prompt: needsInputPrompt}, nil
	}

	return ExtractionResult{Fields: normalizeExtractedFields(fields)}, nil
}

func extractionSystemPrompt(action Action) string {
	base := strings.Join([]string{
		"You are the ParentPal Profile Assistant, helping users provide their profile information",
		"in a natural, conversational way. Extract information only when users clearly provide it.",
		"IMPORTANT: Maintain a warm, friendly, and conversational tone throughout. Avoid sounding",
		"robotic or form-like. Don't ask for information in a rigid sequence - flow naturally with",
		"the conversation. If a user shares a story or additional context, acknowledge it before",
		"continuing with profile collection.",
		"",
		"Respond with exactly one JSON object matching the provided schema. Include only fields the",
		"user actually provided; leave everything else out.",
	}, "\n")

	switch action {
	case ActionUpdateProfile:
		return base + "\n\nCollecting or updating basic profile information. Extract name (firstName, middleName, lastName), date of birth (MM/DD/YYYY), and address if provided."
	case ActionAddSpouse:
		return base + "\n\nCollecting spouse information. Extract name (firstName, middleName, lastName) and date of birth (MM/DD/YYYY) if provided."
	case ActionAddChild:
		return base + "\n\nCollecting child information. Extract name (firstName, middleName, lastName), date of birth (MM/DD/YYYY), interests (list), and medical considerations (list) if provided."
	case ActionUpdateChild:
		return base + "\n\nUpdating an existing child's information. Extract the child identifier plus any changed fields: name parts, date of birth (MM/DD/YYYY), interests, medical considerations."
	default:
		return base
	}
}

// normalizeExtractedFields drops empty values so the missing-field check sees
// "empty string from the model" the same as "absent".
func normalizeExtractedFields(raw map[string]any) profile.Fields {
	fields := make(profile.Fields, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				fields[key] = trimmed
			}
		case nil:
			// skip
		default:
			fields[key] = value
		}
	}
	return fields
}

// parseModelJSONObject parses a model answer that should be a JSON object,
// tolerating code fences, surrounding prose and mildly malformed JSON.
func parseModelJSONObject(answer string) (map[string]any, bool) {
	candidate := strings.TrimSpace(answer)
	if candidate == "" {
		return nil, false
	}
	if strings.HasPrefix(candidate, "```") {
		candidate = strings.TrimSpace(strings.TrimPrefix(candidate, "```json"))
		candidate = strings.TrimSpace(strings.TrimPrefix(candidate, "```"))
		candidate = strings.TrimSpace(strings.TrimSuffix(candidate, "```"))
	}
	if !strings.HasPrefix(candidate, "{") {
		start := strings.Index(candidate, "{")
		end := strings.LastIndex(candidate, "}")
		if start < 0 || end <= start {
			return nil, false
		}
		candidate = strings.TrimSpace(candidate[start : end+1])
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(candidate)
		if repairErr != nil {
			return nil, false
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return nil, false
		}
	}
	if parsed == nil {
		return nil, false
	}
	return parsed, true
}
