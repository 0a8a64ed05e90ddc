// Package digest drives a registry of pluggable digesters over the files in
// the catalog. For each file a coordinator walks the registry in order,
// persists digester outputs (text in the digest row, binaries in the sqlar
// blob store), tracks per-digester status with bounded retries, and hands
// downstream indexing work to the task queue.
package digest

import (
	"context"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
)

// Output is one result a digester produced for one of its output names.
type Output struct {
	// Name is the digest row this output targets. Must be one of the
	// digester's OutputNames.
	Name string

	Status string // completed, skipped, or failed

	Content *string // text payload (may be serialized JSON)

	// BlobName + BlobData store a binary artifact in the blob store under
	// <path-hash>/<output-name>/<BlobName>.
	BlobName *string
	BlobData []byte

	Error *string

	// IsScreenshot marks this output as the file's display screenshot. On
	// completion with a blob the coordinator denormalizes the blob key into
	// the file record.
	IsScreenshot bool
}

// Digester is one unit of enrichment over a single file.
//
// CanDigest is a cheap applicability predicate: it may inspect file metadata
// and existing digest rows but must not do expensive work. Digest performs
// the work and returns one Output per output name it chose to produce this
// run; names it declared but did not produce are marked skipped by the
// coordinator. Digesters never write other digesters' rows.
type Digester interface {
	// Name returns the unique digester name
	Name() string

	// Label returns the human-readable label for UI display
	Label() string

	// Description returns what this digester does
	Description() string

	// OutputNames returns the digest row names this digester may write.
	// Most digesters produce a single output named after themselves.
	OutputNames() []string

	// CanDigest checks if this digester applies to the given file
	CanDigest(ctx context.Context, file *db.FileRecord, existing []db.Digest) (bool, error)

	// Digest executes the digest operation
	Digest(ctx context.Context, file *db.FileRecord, existing []db.Digest) ([]Output, error)
}

// cascadingResets maps a content-producing output name to the downstream
// outputs that must be recomputed when it completes with fresh content. All
// targets are later in registration order than their trigger.
var cascadingResets = map[string][]string{
	"url-crawl-content":  {"url-crawl-summary", "tags", "slug", "search-keyword", "search-semantic"},
	"doc-to-markdown":    {"tags", "slug", "search-keyword", "search-semantic"},
	"image-ocr":          {"tags", "slug", "search-keyword", "search-semantic"},
	"speech-recognition": {"tags", "slug", "search-keyword", "search-semantic"},
	"url-crawl-summary":  {"tags", "slug", "search-keyword", "search-semantic"},
	"tags":               {"search-keyword", "search-semantic"},
}

// completedOutput is a convenience constructor for a completed text output
func completedOutput(name, content string) Output {
	return Output{Name: name, Status: db.DigestStatusCompleted, Content: &content}
}
