package digest

import (
	"context"
	"encoding/json"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/vendors"
)

// DocToMarkdownDigester converts office documents, PDFs, and EPUBs to markdown
type DocToMarkdownDigester struct{}

func (d *DocToMarkdownDigester) Name() string        { return "doc-to-markdown" }
func (d *DocToMarkdownDigester) Label() string       { return "Document Converter" }
func (d *DocToMarkdownDigester) Description() string { return "Convert documents to markdown" }
func (d *DocToMarkdownDigester) OutputNames() []string {
	return []string{"doc-to-markdown"}
}

func (d *DocToMarkdownDigester) CanDigest(_ context.Context, file *db.FileRecord, _ []db.Digest) (bool, error) {
	return !file.IsFolder && isDocument(file), nil
}

func (d *DocToMarkdownDigester) Digest(ctx context.Context, file *db.FileRecord, _ []db.Digest) ([]Output, error) {
	haid := vendors.GetHAIDClient()
	markdown, err := haid.ConvertDocToMarkdown(ctx, file.Path)
	if err != nil {
		return nil, err
	}

	contentJSON, err := json.Marshal(docMarkdownContent{Markdown: markdown})
	if err != nil {
		return nil, err
	}

	return []Output{completedOutput("doc-to-markdown", string(contentJSON))}, nil
}

// DocToScreenshotDigester renders a document's first page as a preview image
type DocToScreenshotDigester struct{}

func (d *DocToScreenshotDigester) Name() string        { return "doc-to-screenshot" }
func (d *DocToScreenshotDigester) Label() string       { return "Document Screenshot" }
func (d *DocToScreenshotDigester) Description() string { return "Render the document's first page" }
func (d *DocToScreenshotDigester) OutputNames() []string {
	return []string{"doc-to-screenshot"}
}

func (d *DocToScreenshotDigester) CanDigest(_ context.Context, file *db.FileRecord, _ []db.Digest) (bool, error) {
	return !file.IsFolder && isDocument(file), nil
}

func (d *DocToScreenshotDigester) Digest(ctx context.Context, file *db.FileRecord, _ []db.Digest) ([]Output, error) {
	haid := vendors.GetHAIDClient()
	screenshot, err := haid.GenerateDocScreenshot(ctx, file.Path)
	if err != nil {
		return nil, err
	}
	if len(screenshot) == 0 {
		return nil, nil
	}

	blobName := "screenshot.png"
	return []Output{{
		Name:         "doc-to-screenshot",
		Status:       db.DigestStatusCompleted,
		BlobName:     &blobName,
		BlobData:     screenshot,
		IsScreenshot: true,
	}}, nil
}
