package agent

import (
	"reflect"
	"testing"
)

func TestParseAction(t *testing.T) {
	if action, ok := ParseAction(" Update_Profile "); !ok || action != ActionUpdateProfile {
		t.Fatalf("expected case-insensitive parse, got %q ok=%v", action, ok)
	}
	if _, ok := ParseAction("delete_profile"); ok {
		t.Fatalf("expected unknown action to fail")
	}
	if _, ok := ParseAction(""); ok {
		t.Fatalf("expected empty action to fail")
	}
}

func TestRoutableActions(t *testing.T) {
	for _, action := range []string{"view", "update_profile", "add_spouse", "add_child"} {
		if !isRoutableAction(action) {
			t.Fatalf("expected %q to be routable", action)
		}
	}
	if isRoutableAction("update_child") {
		t.Fatalf("update_child must not be selectable by the dialogue agent")
	}
	if isRoutableAction("nonsense") {
		t.Fatalf("unknown actions must not be routable")
	}
}

func TestRequiredFields(t *testing.T) {
	want := []string{"firstName", "lastName", "dateOfBirth", "address"}
	if got := ActionUpdateProfile.requiredFields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected required fields: %v", got)
	}
	want = []string{"firstName", "lastName", "dateOfBirth"}
	if got := ActionAddSpouse.requiredFields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected required fields: %v", got)
	}
	if got := ActionUpdateChild.requiredFields(); got != nil {
		t.Fatalf("update_child has no required extraction fields, got %v", got)
	}
	if got := ActionView.requiredFields(); got != nil {
		t.Fatalf("view has no required extraction fields, got %v", got)
	}
}

func TestExtractionSchemaShape(t *testing.T) {
	schema, ok := ActionAddChild.extractionSchema()
	if !ok {
		t.Fatalf("expected schema for add_child")
	}
	if schema["type"] != "object" || schema["additionalProperties"] != false {
		t.Fatalf("unexpected schema envelope: %v", schema)
	}
	properties := schema["properties"].(map[string]any)
	interests, ok := properties["interests"].(map[string]any)
	if !ok || interests["type"] != "array" {
		t.Fatalf("expected interests as array, got %v", properties["interests"])
	}
	if _, ok := properties["childId"]; ok {
		t.Fatalf("add_child schema must not include childId")
	}

	schema, _ = ActionUpdateChild.extractionSchema()
	properties = schema["properties"].(map[string]any)
	if _, ok := properties["childId"]; !ok {
		t.Fatalf("update_child schema must include childId")
	}

	if _, ok := ActionView.extractionSchema(); ok {
		t.Fatalf("view has no extraction schema")
	}
}
