package agent

import (
	"context"
	"log"
	"strings"
	"sync"
)

const routerHistoryExchanges = 5

const welcomeMessage = "Welcome to ParentPal! I'm thrilled to have you with us. " +
	"Let's get started on setting up your profile. This will help us tailor your experience " +
	"and provide you with the most relevant information and suggestions. " +
	"If you need any help along the way, just let me know!"

var routerSystemPrompt = strings.Join([]string{
	"You are ParentPal's main assistant, responsible for helping users with various tasks and routing them to appropriate workflows.",
	"",
	"Your primary responsibilities are:",
	"1. Engage in general conversation with users",
	"2. Identify what users need and route them to specific workflows when needed",
	"3. For now, the first workflow being implemented is the profile workflow.",
	"",
	"PROFILE WORKFLOW TRIGGERS:",
	"- First user sign-in.",
	`- Explicit profile requests ("I want to update my profile", "How do I add my spouse?")`,
	"- Missing profile information for a task requested by the user.",
	"- Profile completion reminders.",
	"",
	"When profile workflow is needed, respond with:",
	`{"workflow": "profile", "action": "update_profile|add_spouse|add_child|view", "context": "reason for profile workflow", "response": "your conversational response"}`,
	"",
	"For general conversation, respond with:",
	`{"workflow": "general", "response": "your conversational response"}`,
	"",
	"Respond with exactly one JSON object and nothing else.",
}, "\n")

// RouterResult is the classification outcome for one message. Workflow is
// one of "general", "profile" or "error".
type RouterResult struct {
	Workflow string `json:"workflow"`
	Action   string `json:"action,omitempty"`
	Context  string `json:"context,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	UserID   string `json:"user_id"`
}

// Router is the main dialogue agent. It keeps a bounded window of recent
// exchanges per user id; histories are never shared across users.
type Router struct {
	ai    AIClient
	model string

	mu      sync.Mutex
	history map[string][]ChatTurn
}

func NewRouter(ai AIClient, model string) *Router {
	return &Router{
		ai:      ai,
		model:   strings.TrimSpace(model),
		history: make(map[string][]ChatTurn),
	}
}

// Process classifies the message as general chat or a profile workflow
// request. Model-invocation failures never propagate; they come back as a
// workflow "error" result.
func (r *Router) Process(ctx context.Context, userID, message string) RouterResult {
	response, err := r.ai.Query(ctx, AIModelRequest{
		Model:        r.model,
		SystemPrompt: routerSystemPrompt,
		Conversation: r.historyFor(userID),
		UserPrompt:   message,
	})
	if err != nil {
		log.Printf("router model call failed user_id=%s err=%v", userID, err)
		return RouterResult{Workflow: "error", Error: err.Error(), UserID: userID}
	}

	r.recordExchange(userID, message, response.Answer)

	result := RouterResult{UserID: userID}
	parsed, ok := parseModelJSONObject(response.Answer)
	if !ok {
		// Unparseable output still reads as a reply; treat it as general chat.
		return RouterResult{Workflow: "general", Response: response.Answer, UserID: userID}
	}

	result.Workflow = strings.ToLower(strings.TrimSpace(toString(parsed["workflow"])))
	result.Action = strings.TrimSpace(toString(parsed["action"]))
	result.Context = strings.TrimSpace(toString(parsed["context"]))
	result.Response = strings.TrimSpace(toString(parsed["response"]))

	if result.Workflow != "profile" {
		result.Workflow = "general"
		if result.Response == "" {
			result.Response = response.Answer
		}
		return result
	}

	// Ambiguous or first-time profile signals default to onboarding.
	if !isRoutableAction(result.Action) {
		result.Action = string(ActionUpdateProfile)
		result.Context = "New user sign-in"
		result.Response = welcomeMessage
	}
	return result
}

func (r *Router) historyFor(userID string) []ChatTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	turns := r.history[userID]
	window := make([]ChatTurn, len(turns))
	copy(window, turns)
	return window
}

func (r *Router) recordExchange(userID, message, reply string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	turns := append(r.history[userID],
		ChatTurn{Role: "user", Content: message},
		ChatTurn{Role: "assistant", Content: reply},
	)
	if max := routerHistoryExchanges * 2; len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	r.history[userID] = turns
}
