package digest

import (
	"context"
	"strings"
	"testing"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
)

func fileWithMime(path, mime string) *db.FileRecord {
	return &db.FileRecord{Path: path, Name: path[strings.LastIndex(path, "/")+1:], MimeType: &mime}
}

func TestURLCrawlApplicability(t *testing.T) {
	d := &URLCrawlDigester{}
	ctx := context.Background()

	urlFile := fileWithMime("inbox/note.txt", "text/plain")
	urlFile.TextPreview = strPtr("https://example.com/article")
	if ok, _ := d.CanDigest(ctx, urlFile, nil); !ok {
		t.Error("text file containing a URL must apply")
	}

	prose := fileWithMime("inbox/note.txt", "text/plain")
	prose.TextPreview = strPtr("just some notes about https things")
	if ok, _ := d.CanDigest(ctx, prose, nil); ok {
		t.Error("prose must not apply")
	}

	pdf := fileWithMime("inbox/paper.pdf", "application/pdf")
	pdf.TextPreview = strPtr("https://example.com")
	if ok, _ := d.CanDigest(ctx, pdf, nil); ok {
		t.Error("non-text file must not apply")
	}

	multiline := fileWithMime("inbox/note.txt", "text/plain")
	multiline.TextPreview = strPtr("https://example.com/a\nsecond line")
	if ok, _ := d.CanDigest(ctx, multiline, nil); !ok {
		t.Error("URL on the first line must apply")
	}
}

func TestDocApplicability(t *testing.T) {
	ctx := context.Background()
	md := &DocToMarkdownDigester{}
	shot := &DocToScreenshotDigester{}

	for _, mime := range []string{
		"application/pdf",
		"application/epub+zip",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	} {
		f := fileWithMime("inbox/doc.bin", mime)
		if ok, _ := md.CanDigest(ctx, f, nil); !ok {
			t.Errorf("%s must apply to doc-to-markdown", mime)
		}
		if ok, _ := shot.CanDigest(ctx, f, nil); !ok {
			t.Errorf("%s must apply to doc-to-screenshot", mime)
		}
	}

	// Extension fallback when MIME is missing
	byExt := &db.FileRecord{Path: "inbox/slides.pptx", Name: "slides.pptx"}
	if ok, _ := md.CanDigest(ctx, byExt, nil); !ok {
		t.Error(".pptx must apply by extension")
	}

	txt := fileWithMime("inbox/note.txt", "text/plain")
	if ok, _ := md.CanDigest(ctx, txt, nil); ok {
		t.Error("text file must not apply")
	}
}

func TestMediaApplicability(t *testing.T) {
	ctx := context.Background()

	ocr := &ImageOCRDigester{}
	preview := &ImagePreviewDigester{}
	speech := &SpeechRecognitionDigester{}

	img := fileWithMime("inbox/pic.png", "image/png")
	if ok, _ := ocr.CanDigest(ctx, img, nil); !ok {
		t.Error("image must apply to OCR")
	}
	if ok, _ := preview.CanDigest(ctx, img, nil); !ok {
		t.Error("image must apply to preview")
	}
	if ok, _ := speech.CanDigest(ctx, img, nil); ok {
		t.Error("image must not apply to speech")
	}

	audio := fileWithMime("inbox/voice.mp3", "audio/mpeg")
	video := fileWithMime("inbox/voice.webm", "video/webm")
	for _, f := range []*db.FileRecord{audio, video} {
		if ok, _ := speech.CanDigest(ctx, f, nil); !ok {
			t.Errorf("%s must apply to speech", *f.MimeType)
		}
		if ok, _ := ocr.CanDigest(ctx, f, nil); ok {
			t.Errorf("%s must not apply to OCR", *f.MimeType)
		}
	}
}

func TestURLSummaryApplicability(t *testing.T) {
	ctx := context.Background()
	d := &URLCrawlSummaryDigester{}
	f := fileWithMime("inbox/note.txt", "text/plain")

	long := completedDigest("url-crawl-content", `{"markdown":"`+strings.Repeat("a", 150)+`"}`)
	if ok, _ := d.CanDigest(ctx, f, []db.Digest{long}); !ok {
		t.Error("crawl content over 100 chars must apply")
	}

	short := completedDigest("url-crawl-content", `{"markdown":"tiny"}`)
	if ok, _ := d.CanDigest(ctx, f, []db.Digest{short}); ok {
		t.Error("short crawl content must not apply")
	}

	if ok, _ := d.CanDigest(ctx, f, nil); ok {
		t.Error("no crawl content must not apply")
	}
}

func TestTagsAndSlugApplicability(t *testing.T) {
	ctx := context.Background()
	tags := &TagsDigester{}
	slug := &SlugDigester{}

	binary := fileWithMime("inbox/a.bin", "application/octet-stream")
	if ok, _ := tags.CanDigest(ctx, binary, nil); ok {
		t.Error("no text source: tags must not apply")
	}
	if ok, _ := slug.CanDigest(ctx, binary, nil); ok {
		t.Error("no text source: slug must not apply")
	}

	ocr := completedDigest("image-ocr", "plenty of recognized text here")
	if ok, _ := tags.CanDigest(ctx, binary, []db.Digest{ocr}); !ok {
		t.Error("OCR text must satisfy tags")
	}
	if ok, _ := slug.CanDigest(ctx, binary, []db.Digest{ocr}); !ok {
		t.Error("OCR text must satisfy slug")
	}

	// A summary alone satisfies slug
	summary := completedDigest("url-crawl-summary", `{"summary":"short"}`)
	if ok, _ := slug.CanDigest(ctx, binary, []db.Digest{summary}); !ok {
		t.Error("summary must satisfy slug")
	}
}

func TestNeedsReindex(t *testing.T) {
	file := &db.FileRecord{Path: "inbox/a.txt", Name: "a.txt", ModifiedAt: 1000}

	// No prior row
	if !needsReindex(file, nil, "search-keyword") {
		t.Error("no prior row must need indexing")
	}

	prior := db.Digest{Digester: "search-keyword", Status: db.DigestStatusCompleted, UpdatedAt: 2000}

	// Up to date
	if needsReindex(file, []db.Digest{prior}, "search-keyword") {
		t.Error("fresh index must not need re-indexing")
	}

	// Prior row failed
	failed := prior
	failed.Status = db.DigestStatusFailed
	if !needsReindex(file, []db.Digest{failed}, "search-keyword") {
		t.Error("failed prior row must need indexing")
	}

	// File modified after the index
	touched := &db.FileRecord{Path: "inbox/a.txt", Name: "a.txt", ModifiedAt: 3000}
	if !needsReindex(touched, []db.Digest{prior}, "search-keyword") {
		t.Error("newer file must need re-indexing")
	}

	// Content digest updated after the index
	newTags := db.Digest{Digester: "tags", Status: db.DigestStatusCompleted, UpdatedAt: 5000, Content: strPtr(`{"tags":["x"]}`)}
	if !needsReindex(file, []db.Digest{prior, newTags}, "search-keyword") {
		t.Error("newer tags must need re-indexing")
	}

	oldTags := newTags
	oldTags.UpdatedAt = 1500
	if needsReindex(file, []db.Digest{prior, oldTags}, "search-keyword") {
		t.Error("older tags must not trigger re-indexing")
	}
}

func TestSearchKeywordDigestStagesAndEnqueues(t *testing.T) {
	setupDB(t)
	file := addFile(t, &db.FileRecord{Path: "inbox/a.bin", MimeType: strPtr("application/octet-stream")})

	existing := []db.Digest{
		completedDigest("image-ocr", "recognized text for indexing"),
		completedDigest("url-crawl-summary", `{"summary":"the gist"}`),
		completedDigest("tags", `{"tags":["go"]}`),
	}

	d := &SearchKeywordDigester{}
	outputs, err := d.Digest(context.Background(), file, existing)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 1 || outputs[0].Status != db.DigestStatusCompleted {
		t.Fatalf("unexpected outputs: %+v", outputs)
	}

	doc, err := db.GetMeiliDocumentByFilePath("inbox/a.bin")
	if err != nil || doc == nil {
		t.Fatalf("expected staged meili document, got %v, %v", doc, err)
	}
	if doc.Content != "recognized text for indexing" {
		t.Errorf("unexpected staged content: %q", doc.Content)
	}
	if doc.Summary == nil || *doc.Summary != "the gist" {
		t.Errorf("unexpected staged summary: %v", doc.Summary)
	}

	// A task was enqueued for the document
	tasks, err := db.ClaimPendingTasks(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].TaskType != "search-keyword-index" {
		t.Fatalf("expected one keyword index task, got %+v", tasks)
	}
	if !strings.Contains(tasks[0].Payload, doc.DocumentID) {
		t.Errorf("task payload must carry the document id: %s", tasks[0].Payload)
	}
}

func TestSearchSemanticDigestStagesChunks(t *testing.T) {
	setupDB(t)
	file := addFile(t, &db.FileRecord{Path: "inbox/a.bin", MimeType: strPtr("application/octet-stream")})

	existing := []db.Digest{
		completedDigest("image-ocr", "recognized text for semantic indexing"),
		completedDigest("tags", `{"tags":["go","search"]}`),
	}

	d := &SearchSemanticDigester{}
	outputs, err := d.Digest(context.Background(), file, existing)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 1 || outputs[0].Status != db.DigestStatusCompleted {
		t.Fatalf("unexpected outputs: %+v", outputs)
	}

	chunks, err := db.ListQdrantDocumentsByFile("inbox/a.bin")
	if err != nil {
		t.Fatal(err)
	}
	// One chunk each for image-ocr and tags
	if len(chunks) != 2 {
		t.Fatalf("expected 2 staged chunks, got %d", len(chunks))
	}

	bySource := make(map[string]bool)
	for _, c := range chunks {
		bySource[c.SourceType] = true
		if c.EmbeddingStatus != "pending" {
			t.Errorf("chunk %s: expected pending, got %s", c.DocumentID, c.EmbeddingStatus)
		}
	}
	if !bySource["image-ocr"] || !bySource["tags"] {
		t.Errorf("unexpected source set: %v", bySource)
	}

	tasks, err := db.ClaimPendingTasks(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].TaskType != "search-semantic-index" {
		t.Fatalf("expected one semantic index task, got %+v", tasks)
	}
}
