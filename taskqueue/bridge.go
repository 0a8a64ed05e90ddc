package taskqueue

// Task types handled by the search indexers
const (
	TaskTypeKeywordIndex  = "search-keyword-index"
	TaskTypeSemanticIndex = "search-semantic-index"
)

// IndexPayload is the payload of both indexing task types
type IndexPayload struct {
	DocumentIDs []string `json:"documentIds"`
}

// EnqueueKeywordIndex schedules keyword indexing for the given staged
// documents. An empty list is a no-op and returns an empty task id.
func EnqueueKeywordIndex(documentIDs []string) (string, error) {
	if len(documentIDs) == 0 {
		return "", nil
	}
	return Enqueue(TaskTypeKeywordIndex, IndexPayload{DocumentIDs: documentIDs})
}

// EnqueueSemanticIndex schedules embedding + vector indexing for the given
// staged chunks. An empty list is a no-op and returns an empty task id.
func EnqueueSemanticIndex(documentIDs []string) (string, error) {
	if len(documentIDs) == 0 {
		return "", nil
	}
	return Enqueue(TaskTypeSemanticIndex, IndexPayload{DocumentIDs: documentIDs})
}
