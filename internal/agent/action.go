package agent

import "strings"

// Action is the closed set of profile workflow operations. Each collecting
// action carries a static extraction schema; there is no runtime schema
// registry to fall through.
type Action string

const (
	ActionView          Action = "view"
	ActionUpdateProfile Action = "update_profile"
	ActionAddSpouse     Action = "add_spouse"
	ActionAddChild      Action = "add_child"
	ActionUpdateChild   Action = "update_child"
)

func ParseAction(value string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(value))) {
	case ActionView:
		return ActionView, true
	case ActionUpdateProfile:
		return ActionUpdateProfile, true
	case ActionAddSpouse:
		return ActionAddSpouse, true
	case ActionAddChild:
		return ActionAddChild, true
	case ActionUpdateChild:
		return ActionUpdateChild, true
	default:
		return "", false
	}
}

// routableActions is what the main dialogue agent may select; update_child is
// reachable only through an explicit workflow request.
var routableActions = map[Action]struct{}{
	ActionUpdateProfile: {},
	ActionAddSpouse:     {},
	ActionAddChild:      {},
	ActionView:          {},
}

func isRoutableAction(value string) bool {
	action, ok := ParseAction(value)
	if !ok {
		return false
	}
	_, ok = routableActions[action]
	return ok
}

// requiredFields is the per-action set the coordinator checks before
// persisting. update_child has no required extraction fields; its childId
// requirement is enforced separately.
func (a Action) requiredFields() []string {
	switch a {
	case ActionUpdateProfile:
		return []string{"firstName", "lastName", "dateOfBirth", "address"}
	case ActionAddSpouse, ActionAddChild:
		return []string{"firstName", "lastName", "dateOfBirth"}
	default:
		return nil
	}
}

type fieldSpec struct {
	name        string
	kind        string // "string" or "array"
	description string
}

func (a Action) extractionFields() ([]fieldSpec, bool) {
	switch a {
	case ActionUpdateProfile:
		return []fieldSpec{
			{name: "firstName", kind: "string", description: "User's first name"},
			{name: "middleName", kind: "string", description: "User's middle name"},
			{name: "lastName", kind: "string", description: "User's last name"},
			{name: "dateOfBirth", kind: "string", description: "User's date of birth in MM/DD/YYYY format"},
			{name: "address", kind: "string", description: "User's full address"},
		}, true
	case ActionAddSpouse:
		return []fieldSpec{
			{name: "firstName", kind: "string", description: "Spouse's first name"},
			{name: "middleName", kind: "string", description: "Spouse's middle name"},
			{name: "lastName", kind: "string", description: "Spouse's last name"},
			{name: "dateOfBirth", kind: "string", description: "Spouse's date of birth in MM/DD/YYYY format"},
		}, true
	case ActionAddChild:
		return []fieldSpec{
			{name: "firstName", kind: "string", description: "Child's first name"},
			{name: "middleName", kind: "string", description: "Child's middle name"},
			{name: "lastName", kind: "string", description: "Child's last name"},
			{name: "dateOfBirth", kind: "string", description: "Child's date of birth in MM/DD/YYYY format"},
			{name: "interests", kind: "array", description: "Child's interests"},
			{name: "medicalConsiderations", kind: "array", description: "Child's medical considerations"},
		}, true
	case ActionUpdateChild:
		return []fieldSpec{
			{name: "childId", kind: "string", description: "Identifier of the child record to update"},
			{name: "firstName", kind: "string", description: "Child's first name"},
			{name: "middleName", kind: "string", description: "Child's middle name"},
			{name: "lastName", kind: "string", description: "Child's last name"},
			{name: "dateOfBirth", kind: "string", description: "Child's date of birth in MM/DD/YYYY format"},
			{name: "interests", kind: "array", description: "Child's interests"},
			{name: "medicalConsiderations", kind: "array", description: "Child's medical considerations"},
		}, true
	default:
		return nil, false
	}
}

// extractionSchema renders the action's field set as a JSON schema for the
// model's structured-output format.
func (a Action) extractionSchema() (map[string]any, bool) {
	fields, ok := a.extractionFields()
	if !ok {
		return nil, false
	}
	properties := make(map[string]any, len(fields))
	for _, field := range fields {
		if field.kind == "array" {
			properties[field.name] = map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": field.description,
			}
			continue
		}
		properties[field.name] = map[string]any{
			"type":        "string",
			"description": field.description,
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}, true
}
