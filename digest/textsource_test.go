package digest

import (
	"testing"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
)

func completedDigest(name, content string) db.Digest {
	return db.Digest{
		Digester: name,
		Status:   db.DigestStatusCompleted,
		Content:  &content,
	}
}

func TestResolveTextPriorityOrder(t *testing.T) {
	file := &db.FileRecord{Path: "inbox/a.bin", Name: "a.bin"}

	crawl := completedDigest("url-crawl-content", `{"markdown":"crawled text"}`)
	doc := completedDigest("doc-to-markdown", `{"markdown":"converted text"}`)
	ocr := completedDigest("image-ocr", "ocr text")
	speech := completedDigest("speech-recognition", `{"text":"spoken text","segments":[]}`)

	cases := []struct {
		name    string
		digests []db.Digest
		want    string
		source  SourceKind
	}{
		{"crawl wins over everything", []db.Digest{speech, ocr, doc, crawl}, "crawled text", SourceURLCrawl},
		{"doc wins over ocr", []db.Digest{ocr, doc}, "converted text", SourceDocToMarkdown},
		{"ocr wins over speech", []db.Digest{speech, ocr}, "ocr text", SourceImageOCR},
		{"speech as last digest source", []db.Digest{speech}, "spoken text", SourceSpeech},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveText(file, tc.digests)
			if got == nil {
				t.Fatal("expected a text source")
			}
			if got.Text != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got.Text)
			}
			if got.Source != tc.source {
				t.Errorf("expected source %s, got %s", tc.source, got.Source)
			}
		})
	}
}

func TestResolveTextNoSource(t *testing.T) {
	file := &db.FileRecord{Path: "inbox/a.bin", Name: "a.bin"}

	if got := ResolveText(file, nil); got != nil {
		t.Errorf("expected nil for binary file with no digests, got %+v", got)
	}

	// Non-completed rows never count
	inProgress := db.Digest{Digester: "image-ocr", Status: db.DigestStatusInProgress, Content: strPtr("x")}
	if got := ResolveText(file, []db.Digest{inProgress}); got != nil {
		t.Errorf("expected nil for in-progress digest, got %+v", got)
	}
}

func TestResolveTextRejectsMalformedJSON(t *testing.T) {
	file := &db.FileRecord{Path: "inbox/a.bin", Name: "a.bin"}

	// One shape per digester: a non-JSON crawl payload is not a text source
	bad := completedDigest("url-crawl-content", "just plain markdown")
	ocr := completedDigest("image-ocr", "ocr text")

	got := ResolveText(file, []db.Digest{bad, ocr})
	if got == nil || got.Source != SourceImageOCR {
		t.Errorf("malformed crawl content must fall through to the next source, got %+v", got)
	}
}

func TestSpeechTextPrefersSegments(t *testing.T) {
	digests := []db.Digest{completedDigest(
		"speech-recognition",
		`{"text":"full","segments":[{"start":0,"end":1,"text":"hello"},{"start":1,"end":2,"text":"world"}]}`,
	)}

	if got := SpeechText(digests); got != "hello world" {
		t.Errorf("expected joined segments, got %q", got)
	}
}

func TestHasAnyTextSourceMinLength(t *testing.T) {
	file := &db.FileRecord{Path: "inbox/a.bin", Name: "a.bin"}
	short := completedDigest("image-ocr", "tiny")

	if HasAnyTextSource(file, []db.Digest{short}, 10) {
		t.Error("4 chars must not satisfy a 10-char minimum")
	}
	if !HasAnyTextSource(file, []db.Digest{short}, 3) {
		t.Error("4 chars should satisfy a 3-char minimum")
	}

	// A text file qualifies via its raw bytes regardless of digests
	textFile := &db.FileRecord{Path: "inbox/note.txt", Name: "note.txt"}
	if !HasAnyTextSource(textFile, nil, 10) {
		t.Error("text file should count as a text source")
	}
}

func TestSummaryAndTagsText(t *testing.T) {
	digests := []db.Digest{
		completedDigest("url-crawl-summary", `{"summary":"the gist"}`),
		completedDigest("tags", `{"tags":["go","pipelines"]}`),
	}

	summary := SummaryText(digests)
	if summary == nil || *summary != "the gist" {
		t.Errorf("unexpected summary: %v", summary)
	}

	tags := TagsText(digests)
	if tags == nil || *tags != "go, pipelines" {
		t.Errorf("unexpected tags: %v", tags)
	}

	if got := SummaryText(nil); got != nil {
		t.Errorf("expected nil summary, got %v", got)
	}
	if got := TagsText([]db.Digest{completedDigest("tags", `{"tags":[]}`)}); got != nil {
		t.Errorf("expected nil for empty tags, got %v", got)
	}
}

func TestContentSourcesReportsAllSeparately(t *testing.T) {
	file := &db.FileRecord{Path: "inbox/a.bin", Name: "a.bin"}
	digests := []db.Digest{
		completedDigest("url-crawl-content", `{"markdown":"crawled"}`),
		completedDigest("image-ocr", "scanned"),
	}

	sources := ContentSources(file, digests)
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].SourceType != "url-crawl-content" || sources[0].Text != "crawled" {
		t.Errorf("unexpected first source: %+v", sources[0])
	}
	if sources[1].SourceType != "image-ocr" || sources[1].Text != "scanned" {
		t.Errorf("unexpected second source: %+v", sources[1])
	}

	combined := CombinedText(file, digests)
	if combined != "crawled\n\nscanned" {
		t.Errorf("unexpected combined text: %q", combined)
	}
}
