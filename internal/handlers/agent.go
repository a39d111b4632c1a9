package handlers

import (
	"log"
	"net/http"
	"strings"

	"mediagrab/internal/agent"
	"mediagrab/internal/platform"

	"github.com/labstack/echo/v4"
)

// AgentHandler はチャットエージェントのハンドラー
type AgentHandler struct {
	agent *agent.Agent
}

func NewAgentHandler(a *agent.Agent) *AgentHandler {
	return &AgentHandler{agent: a}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat はメッセージからダウンロード候補を返す
func (h *AgentHandler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, platform.Invalid("", "invalid request body"))
	}
	if strings.TrimSpace(req.Message) == "" {
		return writeError(c, platform.Invalid("message", "must not be empty"))
	}

	resp, err := h.agent.Chat(c.Request().Context(), req.Message)
	if err != nil {
		log.Printf("Agent error: %v", err)
		return c.JSON(http.StatusOK, agent.Response{
			Message:    "Sorry, something went wrong: " + platform.Truncate(err.Error(), platform.MaxErrorLength),
			Intentions: []agent.Intention{},
		})
	}
	if resp.Intentions == nil {
		resp.Intentions = []agent.Intention{}
	}
	return c.JSON(http.StatusOK, resp)
}
