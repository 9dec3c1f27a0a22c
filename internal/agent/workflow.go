package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/IvanMacRib/ParentPalMVP/internal/profile"
)

// WorkflowRequest is one profile workflow invocation from the router/HTTP
// boundary. Context is advisory and not used in routing logic.
type WorkflowRequest struct {
	UserID  string `json:"user_id"`
	Action  string `json:"action"`
	Message string `json:"message"`
	Context string `json:"context"`
}

type ProfileStatus struct {
	Exists        bool           `json:"exists"`
	IsComplete    bool           `json:"is_complete"`
	MissingFields []string       `json:"missing_fields"`
	ProfileData   map[string]any `json:"profile_data,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// WorkflowResponse is the coordinator's public shape. Status is one of
// "success", "needs_input" or "error"; no typed error crosses this boundary.
type WorkflowResponse struct {
	Status        string        `json:"status"`
	Response      string        `json:"response"`
	ProfileStatus ProfileStatus `json:"profile_status"`
	Error         string        `json:"error,omitempty"`
}

// Coordinator orchestrates one profile workflow request: fetch completion
// status, route by action, extract, validate, persist, recompute status.
// It holds no per-request state; the store handle is injected.
type Coordinator struct {
	extractor *Extractor
	store     profile.Store
}

func NewCoordinator(extractor *Extractor, store profile.Store) *Coordinator {
	return &Coordinator{extractor: extractor, store: store}
}

// Status reports the profile graph's existence and completion for a user.
// I/O failures are folded into the Error field rather than propagated.
func (w *Coordinator) Status(ctx context.Context, userID string) ProfileStatus {
	graph, err := w.store.GetProfile(ctx, userID)
	if err != nil {
		log.Printf("profile status lookup failed user_id=%s err=%v", userID, err)
		return ProfileStatus{Error: err.Error()}
	}
	completion := profile.CompletionOf(graph)
	return ProfileStatus{
		Exists:        graph.Exists,
		IsComplete:    completion.IsComplete,
		MissingFields: completion.MissingFields,
		ProfileData:   graphData(graph),
	}
}

func (w *Coordinator) Process(ctx context.Context, req WorkflowRequest) WorkflowResponse {
	status := w.Status(ctx, req.UserID)

	action, ok := ParseAction(req.Action)
	if !ok {
		err := &UnknownActionError{Action: req.Action}
		return WorkflowResponse{
			Status:        "error",
			Response:      "An error occurred while processing your request.",
			ProfileStatus: status,
			Error:         err.Error(),
		}
	}

	if action == ActionView {
		return w.viewResponse(status)
	}

	result, err := w.extractor.Extract(ctx, req.Message, action)
	if err != nil {
		log.Printf("extraction failed user_id=%s action=%s err=%v", req.UserID, action, err)
		return WorkflowResponse{
			Status:        "error",
			Response:      "An unexpected error occurred while processing your request.",
			ProfileStatus: status,
			Error:         err.Error(),
		}
	}
	if result.NeedsInput {
		return WorkflowResponse{
			Status:        "needs_input",
			Response:      result.Prompt,
			ProfileStatus: status,
		}
	}

	missing := missingRequiredFields(action, result.Fields)
	if len(missing) > 0 {
		log.Printf("extraction incomplete user_id=%s action=%s missing_fields=%s", req.UserID, action, strings.Join(missing, ","))
		return WorkflowResponse{
			Status:        "needs_input",
			Response:      "I need more information. Could you provide your " + strings.Join(missing, ", ") + "?",
			ProfileStatus: status,
		}
	}

	if err := w.validate(action, result.Fields); err != nil {
		return WorkflowResponse{
			Status:        "error",
			Response:      "The provided information is not valid.",
			ProfileStatus: status,
			Error:         err.Error(),
		}
	}

	if err := w.persist(ctx, req.UserID, action, result.Fields); err != nil {
		log.Printf("profile persistence failed user_id=%s action=%s err=%v", req.UserID, action, err)
		return WorkflowResponse{
			Status:        "error",
			Response:      "An error occurred while processing your request.",
			ProfileStatus: status,
			Error:         err.Error(),
		}
	}

	return WorkflowResponse{
		Status:        "success",
		Response:      successResponse(action),
		ProfileStatus: w.Status(ctx, req.UserID),
	}
}

func (w *Coordinator) viewResponse(status ProfileStatus) WorkflowResponse {
	if status.Error != "" {
		return WorkflowResponse{
			Status:        "error",
			Response:      "There was an issue retrieving your profile information.",
			ProfileStatus: status,
			Error:         status.Error,
		}
	}
	response := "Your profile is complete! Let me know if you'd like to view or update any information."
	if !status.Exists {
		response = "I see you haven't set up your profile yet. Would you like to create one now?"
	} else if !status.IsComplete {
		response = "Your profile is incomplete. The following information is missing: " +
			strings.Join(status.MissingFields, ", ") + ". Would you like to add this information?"
	}
	return WorkflowResponse{
		Status:        "success",
		Response:      response,
		ProfileStatus: status,
	}
}

// missingRequiredFields is computed before any logging or persistence uses
// the extracted data.
func missingRequiredFields(action Action, fields profile.Fields) []string {
	required := action.requiredFields()
	missing := make([]string, 0, len(required))
	for _, name := range required {
		raw, ok := fields[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if s, isString := raw.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func (w *Coordinator) validate(action Action, fields profile.Fields) error {
	now := time.Now().UTC()
	switch action {
	case ActionUpdateProfile:
		_, err := profile.NewUserProfile(fields, now)
		return err
	case ActionAddSpouse:
		_, err := profile.NewSpouseProfile(fields, now)
		return err
	case ActionAddChild:
		_, err := profile.NewChildProfile(fields, now)
		return err
	case ActionUpdateChild:
		// Partial update; the merged record is validated by the store.
		return nil
	default:
		return &UnknownActionError{Action: string(action)}
	}
}

func (w *Coordinator) persist(ctx context.Context, userID string, action Action, fields profile.Fields) error {
	switch action {
	case ActionUpdateProfile:
		if err := w.store.UpdateUser(ctx, userID, fields); err != nil {
			return wrapStoreError(action, err)
		}
	case ActionAddSpouse:
		if err := w.store.AddOrReplaceSpouse(ctx, userID, fields); err != nil {
			return wrapStoreError(action, err)
		}
	case ActionAddChild:
		if _, err := w.store.AddChild(ctx, userID, fields); err != nil {
			return wrapStoreError(action, err)
		}
	case ActionUpdateChild:
		childID, _ := fields["childId"].(string)
		childID = strings.TrimSpace(childID)
		if childID == "" {
			return &WorkflowError{Action: action, Err: errors.New("missing child ID for update operation")}
		}
		delete(fields, "childId")
		if err := w.store.UpdateChild(ctx, userID, childID, fields); err != nil {
			return wrapStoreError(action, err)
		}
	default:
		return &UnknownActionError{Action: string(action)}
	}
	return nil
}

// wrapStoreError keeps domain errors recognizable and tags everything else
// with the attempted action.
func wrapStoreError(action Action, err error) error {
	var validationErr *profile.ValidationError
	var notFoundErr *profile.NotFoundError
	if errors.As(err, &validationErr) || errors.As(err, &notFoundErr) {
		return err
	}
	return &WorkflowError{Action: action, Err: err}
}

func successResponse(action Action) string {
	switch action {
	case ActionUpdateProfile:
		return "Great! I've got your profile information."
	case ActionAddSpouse:
		return "I've recorded your spouse's information."
	case ActionAddChild:
		return "I've recorded your child's information."
	case ActionUpdateChild:
		return "I've updated your child's information."
	default:
		return "Done."
	}
}

func graphData(graph profile.Graph) map[string]any {
	encoded, err := json.Marshal(graph)
	if err != nil {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal(encoded, &data); err != nil {
		return nil
	}
	return data
}
