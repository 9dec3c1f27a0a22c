package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/IvanMacRib/ParentPalMVP/internal/profile"
)

func newTestCoordinator(ai AIClient) (*Coordinator, *profile.MemoryStore) {
	store := profile.NewMemoryStore()
	return NewCoordinator(NewExtractor(ai, "test-model"), store), store
}

func seedCompleteUser(t *testing.T, store *profile.MemoryStore, userID string) {
	t.Helper()
	err := store.UpdateUser(context.Background(), userID, profile.Fields{
		"firstName":   "John",
		"lastName":    "Smith",
		"dateOfBirth": "03/15/1980",
		"address":     "123 Main St, Springfield, IL",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestWorkflowViewMissingProfile(t *testing.T) {
	ai := &stubAIClient{}
	coordinator, _ := newTestCoordinator(ai)

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID: "user-1", Action: "view", Message: "show my profile",
	})
	if resp.Status != "success" {
		t.Fatalf("expected success, got %q (%s)", resp.Status, resp.Error)
	}
	if !strings.Contains(resp.Response, "haven't set up your profile yet") {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
	if resp.ProfileStatus.Exists {
		t.Fatalf("expected exists=false")
	}
	if len(ai.requests) != 0 {
		t.Fatalf("view must not invoke the model")
	}
}

func TestWorkflowViewIncompleteProfile(t *testing.T) {
	coordinator, store := newTestCoordinator(&stubAIClient{})
	seedCompleteUser(t, store, "user-1")
	if err := store.AddOrReplaceSpouse(context.Background(), "user-1", profile.Fields{
		"firstName": "Jane", "lastName": "Smith",
	}); err != nil {
		t.Fatalf("seed spouse: %v", err)
	}

	resp := coordinator.Process(context.Background(), WorkflowRequest{UserID: "user-1", Action: "view"})
	if resp.Status != "success" {
		t.Fatalf("expected success, got %q", resp.Status)
	}
	if !strings.Contains(resp.Response, "Your profile is incomplete") ||
		!strings.Contains(resp.Response, "spouse_dateOfBirth") {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
}

func TestWorkflowViewCompleteProfile(t *testing.T) {
	coordinator, store := newTestCoordinator(&stubAIClient{})
	seedCompleteUser(t, store, "user-1")

	resp := coordinator.Process(context.Background(), WorkflowRequest{UserID: "user-1", Action: "view"})
	if !strings.Contains(resp.Response, "Your profile is complete!") {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
	if !resp.ProfileStatus.IsComplete {
		t.Fatalf("expected complete status")
	}
	if resp.ProfileStatus.ProfileData == nil {
		t.Fatalf("expected profile data")
	}
}

func TestWorkflowUpdateProfileSuccess(t *testing.T) {
	ai := &stubAIClient{answers: []string{
		`{"firstName":"John","lastName":"Smith","dateOfBirth":"03/15/1980","address":"123 Main St, Springfield, IL"}`,
	}}
	coordinator, store := newTestCoordinator(ai)

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID:  "user-1",
		Action:  "update_profile",
		Message: "I'm John Smith, born 03/15/1980, living at 123 Main St, Springfield, IL",
	})
	if resp.Status != "success" {
		t.Fatalf("expected success, got %q (%s)", resp.Status, resp.Error)
	}
	if resp.Response != "Great! I've got your profile information." {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
	// The returned status reflects the state after the write.
	if !resp.ProfileStatus.Exists || !resp.ProfileStatus.IsComplete {
		t.Fatalf("expected refreshed status, got %+v", resp.ProfileStatus)
	}

	graph, _ := store.GetProfile(context.Background(), "user-1")
	if graph.User.Name.FirstName != "John" || graph.User.Name.LastName != "Smith" {
		t.Fatalf("profile not persisted: %+v", graph.User)
	}
}

func TestWorkflowAddSpouseMissingFieldsNeedsInput(t *testing.T) {
	ai := &stubAIClient{answers: []string{`{"firstName":"Jane"}`}}
	coordinator, store := newTestCoordinator(ai)
	seedCompleteUser(t, store, "user-1")

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID: "user-1", Action: "add_spouse", Message: "my spouse is Jane",
	})
	if resp.Status != "needs_input" {
		t.Fatalf("expected needs_input, got %q (%s)", resp.Status, resp.Error)
	}
	if !strings.Contains(resp.Response, "lastName") || !strings.Contains(resp.Response, "dateOfBirth") {
		t.Fatalf("expected missing fields in prompt: %q", resp.Response)
	}
	if strings.Contains(resp.Response, "firstName") {
		t.Fatalf("provided field listed as missing: %q", resp.Response)
	}

	graph, _ := store.GetProfile(context.Background(), "user-1")
	if graph.Spouse != nil {
		t.Fatalf("needs_input must not write to the store")
	}
}

func TestWorkflowAddSpouseSuccess(t *testing.T) {
	ai := &stubAIClient{answers: []string{
		`{"firstName":"Jane","lastName":"Smith","dateOfBirth":"07/04/1982"}`,
	}}
	coordinator, store := newTestCoordinator(ai)
	seedCompleteUser(t, store, "user-1")

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID: "user-1", Action: "add_spouse", Message: "my spouse is Jane Smith, born 07/04/1982",
	})
	if resp.Status != "success" {
		t.Fatalf("expected success, got %q (%s)", resp.Status, resp.Error)
	}
	if resp.Response != "I've recorded your spouse's information." {
		t.Fatalf("unexpected response: %q", resp.Response)
	}

	graph, _ := store.GetProfile(context.Background(), "user-1")
	if graph.Spouse == nil || graph.Spouse.Name.FirstName != "Jane" {
		t.Fatalf("spouse not persisted: %+v", graph.Spouse)
	}
}

func TestWorkflowAddChildAdultRejectedWithoutWrite(t *testing.T) {
	adultDOB := time.Now().UTC().AddDate(-19, 0, -1).Format("01/02/2006")
	ai := &stubAIClient{answers: []string{
		fmt.Sprintf(`{"firstName":"Pat","lastName":"Smith","dateOfBirth":"%s"}`, adultDOB),
	}}
	coordinator, store := newTestCoordinator(ai)
	seedCompleteUser(t, store, "user-1")

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID: "user-1", Action: "add_child", Message: "my kid Pat",
	})
	if resp.Status != "error" {
		t.Fatalf("expected error, got %q", resp.Status)
	}
	if !strings.Contains(resp.Error, "under 18") {
		t.Fatalf("unexpected error detail: %q", resp.Error)
	}

	graph, _ := store.GetProfile(context.Background(), "user-1")
	if len(graph.Children) != 0 {
		t.Fatalf("rejected child must not persist")
	}
}

func TestWorkflowUpdateChild(t *testing.T) {
	store := profile.NewMemoryStore()
	seedCompleteUser(t, store, "user-1")
	childID, err := store.AddChild(context.Background(), "user-1", profile.Fields{
		"firstName": "Sam", "lastName": "Smith", "dateOfBirth": "06/01/2019",
	})
	if err != nil {
		t.Fatalf("seed child: %v", err)
	}

	ai := &stubAIClient{answers: []string{
		fmt.Sprintf(`{"childId":"%s","interests":["soccer","drawing"]}`, childID),
	}}
	coordinator := NewCoordinator(NewExtractor(ai, "test-model"), store)

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID: "user-1", Action: "update_child", Message: "Sam is into soccer and drawing",
	})
	if resp.Status != "success" {
		t.Fatalf("expected success, got %q (%s)", resp.Status, resp.Error)
	}
	if resp.Response != "I've updated your child's information." {
		t.Fatalf("unexpected response: %q", resp.Response)
	}

	graph, _ := store.GetProfile(context.Background(), "user-1")
	if len(graph.Children) != 1 || len(graph.Children[0].Interests) != 2 {
		t.Fatalf("child update not persisted: %+v", graph.Children)
	}
}

func TestWorkflowUpdateChildRequiresChildID(t *testing.T) {
	ai := &stubAIClient{answers: []string{`{"interests":["soccer"]}`}}
	coordinator, store := newTestCoordinator(ai)
	seedCompleteUser(t, store, "user-1")

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID: "user-1", Action: "update_child", Message: "they like soccer",
	})
	if resp.Status != "error" {
		t.Fatalf("expected error, got %q", resp.Status)
	}
	if !strings.Contains(resp.Error, "missing child ID") {
		t.Fatalf("unexpected error detail: %q", resp.Error)
	}
}

func TestWorkflowUnknownAction(t *testing.T) {
	ai := &stubAIClient{}
	coordinator, _ := newTestCoordinator(ai)

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID: "user-1", Action: "delete_profile", Message: "remove it all",
	})
	if resp.Status != "error" {
		t.Fatalf("expected error, got %q", resp.Status)
	}
	if !strings.Contains(resp.Error, "delete_profile") {
		t.Fatalf("expected action in error detail: %q", resp.Error)
	}
	if len(ai.requests) != 0 {
		t.Fatalf("unknown action must not invoke the model")
	}
}

func TestWorkflowExtractionFailure(t *testing.T) {
	ai := &stubAIClient{err: errors.New("upstream unavailable")}
	coordinator, _ := newTestCoordinator(ai)

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID: "user-1", Action: "update_profile", Message: "I'm John",
	})
	if resp.Status != "error" {
		t.Fatalf("expected error, got %q", resp.Status)
	}
	if resp.Response != "An unexpected error occurred while processing your request." {
		t.Fatalf("unexpected response: %q", resp.Response)
	}
	if !strings.Contains(resp.Error, "extraction failed") {
		t.Fatalf("unexpected error detail: %q", resp.Error)
	}
}

func TestWorkflowExtractionNeedsInputPassthrough(t *testing.T) {
	ai := &stubAIClient{answers: []string{`{}`}}
	coordinator, _ := newTestCoordinator(ai)

	resp := coordinator.Process(context.Background(), WorkflowRequest{
		UserID: "user-1", Action: "update_profile", Message: "hello",
	})
	if resp.Status != "needs_input" {
		t.Fatalf("expected needs_input, got %q", resp.Status)
	}
	if resp.Response != needsInputPrompt {
		t.Fatalf("unexpected prompt: %q", resp.Response)
	}
}
