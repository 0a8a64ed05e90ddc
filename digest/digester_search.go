package digest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/taskqueue"
)

// contentDigests are the outputs whose updates invalidate a search index
var contentDigests = []string{
	"url-crawl-content",
	"doc-to-markdown",
	"image-ocr",
	"url-crawl-summary",
	"tags",
}

// needsReindex reports whether a search digest must re-push its document:
// no prior row, prior row todo or failed, or the file (or any content digest)
// changed after the prior index run.
func needsReindex(file *db.FileRecord, existing []db.Digest, searchName string) bool {
	var prior *db.Digest
	for i := range existing {
		if existing[i].Digester == searchName {
			prior = &existing[i]
			break
		}
	}

	if prior == nil || prior.Status == db.DigestStatusTodo || prior.Status == db.DigestStatusFailed {
		return true
	}
	if file.ModifiedAt > prior.UpdatedAt {
		return true
	}
	for _, name := range contentDigests {
		for _, d := range existing {
			if d.Digester == name && d.Status == db.DigestStatusCompleted && d.UpdatedAt > prior.UpdatedAt {
				return true
			}
		}
	}
	return false
}

// SearchKeywordDigester stages the file's combined text for the keyword
// engine and enqueues the push. Indexing itself happens in the task handler;
// the digester's job is to stage and enqueue, not to wait.
type SearchKeywordDigester struct{}

func (d *SearchKeywordDigester) Name() string        { return "search-keyword" }
func (d *SearchKeywordDigester) Label() string       { return "Keyword Search" }
func (d *SearchKeywordDigester) Description() string { return "Index content for keyword search" }
func (d *SearchKeywordDigester) OutputNames() []string {
	return []string{"search-keyword"}
}

// keywordResult is the JSON shape of the search-keyword digest
type keywordResult struct {
	TaskID      string `json:"taskId"`
	DocumentID  string `json:"documentId"`
	ContentHash string `json:"contentHash"`
	WordCount   int    `json:"wordCount"`
}

func (d *SearchKeywordDigester) CanDigest(_ context.Context, file *db.FileRecord, existing []db.Digest) (bool, error) {
	if file.IsFolder || !HasAnyTextSource(file, existing, 1) {
		return false, nil
	}
	return needsReindex(file, existing, "search-keyword"), nil
}

func (d *SearchKeywordDigester) Digest(_ context.Context, file *db.FileRecord, existing []db.Digest) ([]Output, error) {
	text := CombinedText(file, existing)
	if text == "" {
		return nil, nil
	}

	summary := SummaryText(existing)
	tags := TagsText(existing)

	hashInput := text
	if summary != nil {
		hashInput += " " + *summary
	}
	if tags != nil {
		hashInput += " " + *tags
	}

	doc := &db.MeiliDocument{
		FilePath:    file.Path,
		Content:     text,
		Summary:     summary,
		Tags:        tags,
		ContentHash: hashString(hashInput),
		WordCount:   countWords(text),
		MimeType:    file.MimeType,
	}

	if err := db.UpsertMeiliDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to stage keyword document: %w", err)
	}

	taskID, err := taskqueue.EnqueueKeywordIndex([]string{doc.DocumentID})
	if err != nil {
		return nil, err
	}

	contentJSON, err := json.Marshal(keywordResult{
		TaskID:      taskID,
		DocumentID:  doc.DocumentID,
		ContentHash: doc.ContentHash,
		WordCount:   doc.WordCount,
	})
	if err != nil {
		return nil, err
	}

	return []Output{completedOutput("search-keyword", string(contentJSON))}, nil
}

// SearchSemanticDigester chunks every content source, stages the chunks for
// the vector engine, and enqueues the embedding push.
type SearchSemanticDigester struct{}

func (d *SearchSemanticDigester) Name() string        { return "search-semantic" }
func (d *SearchSemanticDigester) Label() string       { return "Semantic Search" }
func (d *SearchSemanticDigester) Description() string { return "Index content for semantic search" }
func (d *SearchSemanticDigester) OutputNames() []string {
	return []string{"search-semantic"}
}

// semanticResult is the JSON shape of the search-semantic digest
type semanticResult struct {
	TaskID      string         `json:"taskId"`
	TotalChunks int            `json:"totalChunks"`
	Sources     map[string]int `json:"sources"`
}

func (d *SearchSemanticDigester) CanDigest(_ context.Context, file *db.FileRecord, existing []db.Digest) (bool, error) {
	if file.IsFolder || !HasAnyTextSource(file, existing, 1) {
		return false, nil
	}
	return needsReindex(file, existing, "search-semantic"), nil
}

func (d *SearchSemanticDigester) Digest(_ context.Context, file *db.FileRecord, existing []db.Digest) ([]Output, error) {
	sources := ContentSources(file, existing)

	// Summary and tags are indexed as sources of their own
	if summary := SummaryText(existing); summary != nil && *summary != "" {
		sources = append(sources, ContentSource{SourceType: "summary", Text: *summary})
	}
	if tags := TagsText(existing); tags != nil && *tags != "" {
		sources = append(sources, ContentSource{SourceType: "tags", Text: *tags})
	}

	if len(sources) == 0 {
		return nil, nil
	}

	sourceCounts := make(map[string]int)
	totalChunks := 0
	var documentIDs []string

	for _, source := range sources {
		if source.Text == "" {
			continue
		}

		chunks := ChunkText(source.Text, 900, 0.15)
		for _, chunk := range chunks {
			documentID := fmt.Sprintf("%s:%s:%d", file.Path, source.SourceType, chunk.ChunkIndex)

			doc := &db.QdrantDocument{
				DocumentID:    documentID,
				FilePath:      file.Path,
				SourceType:    source.SourceType,
				ChunkIndex:    chunk.ChunkIndex,
				ChunkCount:    chunk.ChunkCount,
				ChunkText:     chunk.ChunkText,
				SpanStart:     chunk.SpanStart,
				SpanEnd:       chunk.SpanEnd,
				OverlapTokens: chunk.OverlapTokens,
				WordCount:     chunk.WordCount,
				TokenCount:    chunk.TokenCount,
				ContentHash:   hashString(chunk.ChunkText),
			}

			if err := db.UpsertQdrantDocument(doc); err != nil {
				return nil, fmt.Errorf("failed to stage chunk %s: %w", documentID, err)
			}
			documentIDs = append(documentIDs, documentID)
		}

		sourceCounts[source.SourceType] = len(chunks)
		totalChunks += len(chunks)
	}

	taskID, err := taskqueue.EnqueueSemanticIndex(documentIDs)
	if err != nil {
		return nil, err
	}

	contentJSON, err := json.Marshal(semanticResult{
		TaskID:      taskID,
		TotalChunks: totalChunks,
		Sources:     sourceCounts,
	})
	if err != nil {
		return nil, err
	}

	return []Output{completedOutput("search-semantic", string(contentJSON))}, nil
}
