// Package search contains the task handlers that push staged documents to
// the external search engines. The digest pipeline stages rows in
// meili_documents/qdrant_documents and enqueues tasks; these handlers do the
// actual pushes and track per-document status. Both are idempotent: pushing
// the same document twice is harmless.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/taskqueue"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/vendors"
)

// RegisterHandlers wires the indexer handlers into the task queue worker.
// Call once at startup.
func RegisterHandlers(worker *taskqueue.Worker) error {
	if err := worker.Register(taskqueue.TaskTypeKeywordIndex, HandleKeywordIndex); err != nil {
		return err
	}
	return worker.Register(taskqueue.TaskTypeSemanticIndex, HandleSemanticIndex)
}

// HandleKeywordIndex pushes staged documents to Meilisearch
func HandleKeywordIndex(ctx context.Context, payload []byte) error {
	var p taskqueue.IndexPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid keyword index payload: %w", err)
	}

	meili := vendors.GetMeiliClient()
	if meili == nil {
		return fmt.Errorf("Meilisearch not configured")
	}

	docs, err := db.GetMeiliDocumentsByIDs(p.DocumentIDs)
	if err != nil {
		return err
	}

	synced := 0
	failed := 0
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		meiliDoc := map[string]interface{}{
			"documentId": doc.DocumentID,
			"filePath":   doc.FilePath,
			"content":    doc.Content,
			"wordCount":  doc.WordCount,
		}
		if doc.Summary != nil && *doc.Summary != "" {
			meiliDoc["summary"] = *doc.Summary
		}
		if doc.Tags != nil && *doc.Tags != "" {
			meiliDoc["tags"] = *doc.Tags
		}
		if doc.MimeType != nil && *doc.MimeType != "" {
			meiliDoc["mimeType"] = *doc.MimeType
		}

		if err := meili.IndexDocument(meiliDoc); err != nil {
			errMsg := err.Error()
			db.UpdateMeiliStatus(doc.DocumentID, "error", nil, &errMsg)
			log.Warn().Err(err).Str("path", doc.FilePath).Msg("failed to index to Meilisearch")
			failed++
			continue
		}

		db.UpdateMeiliStatus(doc.DocumentID, "indexed", nil, nil)
		synced++
	}

	log.Info().Int("synced", synced).Int("failed", failed).Msg("Meilisearch push complete")
	if failed > 0 && synced == 0 {
		return fmt.Errorf("all %d documents failed to index", failed)
	}
	return nil
}

// HandleSemanticIndex embeds staged chunks and pushes them to Qdrant
func HandleSemanticIndex(ctx context.Context, payload []byte) error {
	var p taskqueue.IndexPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid semantic index payload: %w", err)
	}

	qdrant := vendors.GetQdrantClient()
	if qdrant == nil {
		return fmt.Errorf("Qdrant not configured")
	}
	haid := vendors.GetHAIDClient()
	if haid == nil {
		return fmt.Errorf("HAID not configured (needed for embeddings)")
	}

	docs, err := db.GetQdrantDocumentsByIDs(p.DocumentIDs)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.ChunkText
	}

	embeddings, err := haid.Embed(ctx, texts)
	if err != nil {
		errMsg := err.Error()
		for _, doc := range docs {
			db.UpdateQdrantEmbeddingStatus(doc.DocumentID, "error", nil, nil, &errMsg)
		}
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(docs), len(embeddings))
	}

	synced := 0
	failed := 0
	now := time.Now().UTC().Format(time.RFC3339)

	for i, doc := range docs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pointPayload := map[string]interface{}{
			"filePath":   doc.FilePath,
			"sourceType": doc.SourceType,
			"text":       doc.ChunkText,
			"chunkIndex": doc.ChunkIndex,
			"chunkCount": doc.ChunkCount,
		}

		if err := qdrant.Upsert(ctx, doc.DocumentID, embeddings[i], pointPayload); err != nil {
			errMsg := err.Error()
			db.UpdateQdrantEmbeddingStatus(doc.DocumentID, "error", nil, nil, &errMsg)
			log.Warn().Err(err).Str("path", doc.FilePath).Msg("failed to index to Qdrant")
			failed++
			continue
		}

		pointID := vendors.PointID(doc.DocumentID)
		db.UpdateQdrantEmbeddingStatus(doc.DocumentID, "indexed", &pointID, &now, nil)
		synced++
	}

	log.Info().Int("synced", synced).Int("failed", failed).Msg("Qdrant push complete")
	if failed > 0 && synced == 0 {
		return fmt.Errorf("all %d chunks failed to index", failed)
	}
	return nil
}
