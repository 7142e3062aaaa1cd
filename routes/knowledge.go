package routes

import (
	"net/http"
	"time"

	"kb-assist-platform/internal/logger"
	"kb-assist-platform/internal/queue"
	"kb-assist-platform/internal/store"
	"kb-assist-platform/middleware"
	"kb-assist-platform/models"
	"kb-assist-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
)

func SetupKnowledgeRoutes(router *gin.Engine, documents *store.DocumentStore, asynqClient *asynq.Client, authMiddleware *middleware.AuthMiddleware, roleMiddleware *middleware.RoleMiddleware) {
	knowledge := router.Group("/knowledge")
	knowledge.Use(authMiddleware.RequireAuth())
	knowledge.Use(middleware.EnrichTrace())

	// Submit extracted document text. The document is created PENDING and
	// chunk ingestion runs asynchronously; approval is a separate step.
	knowledge.POST("/documents", func(c *gin.Context) {
		var req models.CreateDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		tenantID := middleware.GetTenantID(c)

		ctx, cancel := contextWithTimeout(c, 10*time.Second)
		defer cancel()

		doc, err := documents.Create(ctx, tenantID, req.Name, req.TagIDs)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create document", gin.H{"error": err.Error()})
			return
		}

		task, err := queue.NewIngestTask(doc.ID.Hex(), tenantID, req.Text)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build ingest task", gin.H{"error": err.Error()})
			return
		}
		if _, err := asynqClient.EnqueueContext(ctx, task); err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue ingest task", gin.H{"error": err.Error()})
			return
		}

		logger.Info("Document submitted", "document_id", doc.ID.Hex(), "tenant_id", tenantID)

		c.JSON(http.StatusAccepted, toDocumentResponse(doc))
	})

	knowledge.GET("/documents", func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, 10*time.Second)
		defer cancel()

		docs, err := documents.List(ctx, middleware.GetTenantID(c))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", gin.H{"error": err.Error()})
			return
		}

		responses := make([]models.DocumentResponse, 0, len(docs))
		for i := range docs {
			responses = append(responses, toDocumentResponse(&docs[i]))
		}
		c.JSON(http.StatusOK, gin.H{"documents": responses, "total": len(responses)})
	})

	knowledge.POST("/documents/:id/approve", roleMiddleware.AdminGuard(), setStatusHandler(documents, models.DocumentApproved))
	knowledge.POST("/documents/:id/reject", roleMiddleware.AdminGuard(), setStatusHandler(documents, models.DocumentRejected))

	knowledge.DELETE("/documents/:id", roleMiddleware.AdminGuard(), func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, 10*time.Second)
		defer cancel()

		err := documents.Delete(ctx, middleware.GetTenantID(c), c.Param("id"))
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete document", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})
}

func setStatusHandler(documents *store.DocumentStore, status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, 10*time.Second)
		defer cancel()

		err := documents.SetStatus(ctx, middleware.GetTenantID(c), c.Param("id"), status)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to update document status", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": status})
	}
}

func toDocumentResponse(doc *models.Document) models.DocumentResponse {
	return models.DocumentResponse{
		ID:         doc.ID.Hex(),
		Name:       doc.Name,
		Status:     doc.Status,
		TagIDs:     doc.TagIDs,
		ChunkCount: doc.ChunkCount,
		UploadedAt: doc.UploadedAt,
		IngestedAt: doc.IngestedAt,
	}
}
