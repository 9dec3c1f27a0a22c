package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IvanMacRib/ParentPalMVP/internal/agent"
)

type chatRequest struct {
	Message string `json:"message"`
}

// chat routes one message: the main dialogue agent classifies it, and
// profile-workflow messages continue into the coordinator.
func (a *App) chat(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload chatRequest
	if !mustJSON(c, &payload) {
		return
	}

	routed := a.router.Process(c.Request.Context(), userID, payload.Message)
	if routed.Workflow == "error" {
		writeError(c, http.StatusInternalServerError, routed.Error)
		return
	}

	if routed.Workflow == "profile" {
		// The router always selects a routable action for profile results.
		response := a.workflow.Process(c.Request.Context(), agent.WorkflowRequest{
			UserID:  userID,
			Action:  routed.Action,
			Context: routed.Context,
			Message: payload.Message,
		})
		c.JSON(http.StatusOK, response)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": routed.Response})
}

func (a *App) profileStatus(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	status := a.workflow.Status(c.Request.Context(), userID)
	if status.Error != "" {
		writeError(c, http.StatusInternalServerError, status.Error)
		return
	}
	c.JSON(http.StatusOK, status)
}
