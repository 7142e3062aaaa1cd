package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kb-assist-platform/internal/ai"
	"kb-assist-platform/internal/logger"
	"kb-assist-platform/internal/rag"
	"kb-assist-platform/internal/store"

	"github.com/hibiken/asynq"
)

const TaskIngestDocument = "knowledge:ingest"

// IngestPayload carries the text-extraction output into the ingestion
// worker. Binary parsing happened upstream; the core only sees plain text.
type IngestPayload struct {
	DocumentID string `json:"document_id"`
	TenantID   string `json:"tenant_id"`
	Text       string `json:"text"`
}

func NewIngestTask(documentID, tenantID, text string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		DocumentID: documentID,
		TenantID:   tenantID,
		Text:       text,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor runs queued ingestion jobs against the knowledge core.
type TaskProcessor struct {
	svc       *rag.Service
	documents *store.DocumentStore
}

func NewTaskProcessor(svc *rag.Service, documents *store.DocumentStore) *TaskProcessor {
	return &TaskProcessor{svc: svc, documents: documents}
}

func (p *TaskProcessor) HandleIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Ingesting document", "document_id", payload.DocumentID,
		"tenant_id", payload.TenantID)

	count, err := p.svc.Ingest(ctx, payload.DocumentID, payload.TenantID, payload.Text)
	if err != nil {
		// A missing credential won't fix itself on retry.
		var cfgErr *ai.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.Error("Ingest misconfigured", "document_id", payload.DocumentID, "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if err := p.documents.MarkIngested(ctx, payload.DocumentID, count); err != nil {
		logger.Error("Failed to mark document ingested",
			"document_id", payload.DocumentID, "error", err)
	}

	return nil
}
