package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kb-assist-platform/internal/logger"
	"kb-assist-platform/internal/rag"
	"kb-assist-platform/middleware"
	"kb-assist-platform/models"
	"kb-assist-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const historyWindow = 10

// ConversationLog is the persistence surface the chat routes need.
// *store.MessageStore satisfies it.
type ConversationLog interface {
	Append(ctx context.Context, turn models.ConversationTurn) error
	Recent(ctx context.Context, tenantID, userID, conversationID string, n int) ([]models.ConversationTurn, error)
	History(ctx context.Context, tenantID, userID, conversationID string) (*models.ConversationHistory, error)
}

func SetupChatRoutes(router *gin.Engine, svc *rag.Service, messages ConversationLog, authMiddleware *middleware.AuthMiddleware) {
	chat := router.Group("/chat")
	chat.Use(authMiddleware.RequireAuth())
	chat.Use(middleware.EnrichTrace())

	chat.POST("/ask", func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		userID := middleware.GetUserID(c)
		tenantID := middleware.GetTenantID(c)

		conversationID := req.ConversationID
		if conversationID == "" {
			conversationID = fmt.Sprintf("%s_%s", tenantID, uuid.NewString())
		}

		ctx, cancel := contextWithTimeout(c, 60*time.Second)
		defer cancel()

		history, err := messages.Recent(ctx, tenantID, userID, conversationID, historyWindow)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load conversation history", gin.H{"error": err.Error()})
			return
		}

		reply, err := svc.Answer(ctx, req.Message, tenantID, history, userID)
		if err != nil {
			utils.RespondWithCoreError(c, err)
			return
		}

		// The assistant turn gets a strictly later timestamp so the pair
		// always reads back in question-then-answer order.
		now := time.Now()
		appendTurn(ctx, messages, conversationID, tenantID, userID, models.TurnRoleUser, req.Message, now)
		appendTurn(ctx, messages, conversationID, tenantID, userID, models.TurnRoleAssistant, reply, now.Add(time.Millisecond))

		c.JSON(http.StatusOK, models.AskResponse{
			Reply:          reply,
			ConversationID: conversationID,
			Timestamp:      now,
		})
	})

	chat.GET("/conversations/:conversation_id", func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, 10*time.Second)
		defer cancel()

		history, err := messages.History(ctx,
			middleware.GetTenantID(c),
			middleware.GetUserID(c),
			c.Param("conversation_id"),
		)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve conversation", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, history)
	})
}

func appendTurn(ctx context.Context, messages ConversationLog, conversationID, tenantID, userID, role, content string, ts time.Time) {
	err := messages.Append(ctx, models.ConversationTurn{
		ConversationID: conversationID,
		TenantID:       tenantID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		Timestamp:      ts,
	})
	if err != nil {
		// The answer was already generated; losing a log row is not fatal.
		logger.Error("Failed to persist conversation turn",
			"conversation_id", conversationID, "error", err)
	}
}

func contextWithTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}
