package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/types"
)

type ChatHandler struct {
	kojo service.IKojoService
}

func NewChatHandler(kojo service.IKojoService) *ChatHandler {
	return &ChatHandler{kojo: kojo}
}

func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/chat", h.Chat)
}

// Chat answers a free-form message from the assistant.
func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.ChatRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := h.kojo.Chat(c.Request.Context(), userID.String(), req.Message)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.ChatResponse{
		Message:     reply.Message,
		QueryType:   reply.QueryType,
		Source:      reply.Source,
		Suggestions: reply.Suggestions,
	})
}
