package api

import (
	"alcyxob/run-coach/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatHandler holds the chat service dependency.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatMessageRequest defines the expected JSON for an incoming message.
type ChatMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatMessageResponse reports whether the adjustment flow handled the
// message and, if so, the coach's reply.
type ChatMessageResponse struct {
	Handled bool   `json:"handled"`
	Message string `json:"message,omitempty"`
}

// HandleMessage handles POST /chat/message.
func (h *ChatHandler) HandleMessage(c *gin.Context) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	userID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid user ID in token.")
		return
	}

	var req ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	reply, err := h.chatService.HandleMessage(c.Request.Context(), userID, req.Message)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to process message.")
		return
	}

	c.JSON(http.StatusOK, ChatMessageResponse{Handled: reply.Handled, Message: reply.Message})
}
