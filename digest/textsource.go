package digest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/utils"
)

// SourceKind identifies where a file's text representation came from
type SourceKind string

const (
	SourceURLCrawl      SourceKind = "url-crawl"
	SourceDocToMarkdown SourceKind = "doc-to-markdown"
	SourceImageOCR      SourceKind = "ocr"
	SourceSpeech        SourceKind = "speech"
	SourceFile          SourceKind = "file"
)

// TextContent is a resolved text representation with its source
type TextContent struct {
	Text   string
	Source SourceKind
}

// ContentSource is one text source for independent chunk indexing
type ContentSource struct {
	SourceType string
	Text       string
}

// crawlContent is the JSON shape of the url-crawl-content digest
type crawlContent struct {
	Markdown           string `json:"markdown"`
	URL                string `json:"url"`
	Title              string `json:"title"`
	Domain             string `json:"domain"`
	WordCount          int    `json:"wordCount"`
	ReadingTimeMinutes int    `json:"readingTimeMinutes"`
}

// docMarkdownContent is the JSON shape of the doc-to-markdown digest
type docMarkdownContent struct {
	Markdown string `json:"markdown"`
}

// transcriptContent is the JSON shape of the speech-recognition digest
type transcriptContent struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Text    string  `json:"text"`
		Speaker string  `json:"speaker,omitempty"`
	} `json:"segments"`
}

// summaryContent is the JSON shape of the url-crawl-summary digest
type summaryContent struct {
	Summary string `json:"summary"`
}

// tagsContent is the JSON shape of the tags digest
type tagsContent struct {
	Tags []string `json:"tags"`
}

func completedContent(existing []db.Digest, digester string) *string {
	for _, d := range existing {
		if d.Digester == digester && d.Status == db.DigestStatusCompleted && d.Content != nil {
			return d.Content
		}
	}
	return nil
}

// URLCrawlMarkdown extracts the markdown payload of a completed
// url-crawl-content digest, or ""
func URLCrawlMarkdown(existing []db.Digest) string {
	content := completedContent(existing, "url-crawl-content")
	if content == nil {
		return ""
	}

	var parsed crawlContent
	if err := json.Unmarshal([]byte(*content), &parsed); err != nil {
		log.Warn().Err(err).Msg("url-crawl-content is not valid JSON")
		return ""
	}
	return parsed.Markdown
}

// DocMarkdown extracts the markdown of a completed doc-to-markdown digest, or ""
func DocMarkdown(existing []db.Digest) string {
	content := completedContent(existing, "doc-to-markdown")
	if content == nil {
		return ""
	}

	var parsed docMarkdownContent
	if err := json.Unmarshal([]byte(*content), &parsed); err != nil {
		log.Warn().Err(err).Msg("doc-to-markdown is not valid JSON")
		return ""
	}
	return parsed.Markdown
}

// OCRText extracts the text of a completed image-ocr digest, or ""
func OCRText(existing []db.Digest) string {
	content := completedContent(existing, "image-ocr")
	if content == nil {
		return ""
	}
	return *content
}

// SpeechText extracts the transcript of a completed speech-recognition
// digest, or ""
func SpeechText(existing []db.Digest) string {
	content := completedContent(existing, "speech-recognition")
	if content == nil {
		return ""
	}

	var parsed transcriptContent
	if err := json.Unmarshal([]byte(*content), &parsed); err != nil {
		log.Warn().Err(err).Msg("speech-recognition is not valid JSON")
		return ""
	}

	if len(parsed.Segments) > 0 {
		texts := make([]string, 0, len(parsed.Segments))
		for _, s := range parsed.Segments {
			texts = append(texts, s.Text)
		}
		return strings.Join(texts, " ")
	}
	return parsed.Text
}

// SummaryText returns the AI summary for a file if present, or nil
func SummaryText(existing []db.Digest) *string {
	content := completedContent(existing, "url-crawl-summary")
	if content == nil {
		return nil
	}

	var parsed summaryContent
	if err := json.Unmarshal([]byte(*content), &parsed); err != nil || parsed.Summary == "" {
		return nil
	}
	return &parsed.Summary
}

// TagsText returns the file's tags as a comma-separated string, or nil
func TagsText(existing []db.Digest) *string {
	content := completedContent(existing, "tags")
	if content == nil {
		return nil
	}

	var parsed tagsContent
	if err := json.Unmarshal([]byte(*content), &parsed); err != nil || len(parsed.Tags) == 0 {
		return nil
	}
	joined := strings.Join(parsed.Tags, ", ")
	return &joined
}

// readLocalTextFile reads a text file relative to the data root
func readLocalTextFile(filePath string) string {
	fullPath := filepath.Join(config.Get().GetDataRoot(), filePath)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		log.Warn().Err(err).Str("path", filePath).Msg("failed to read text file")
		return ""
	}
	return string(data)
}

// isLocalTextFile reports whether the raw file bytes are a usable text source
func isLocalTextFile(file *db.FileRecord) bool {
	if file.IsFolder {
		return false
	}
	return utils.IsTextFile(file.MimeType, file.Name)
}

// ResolveText returns the file's best current plain-text representation, or
// nil. Resolution order: crawled content, document conversion, OCR,
// transcript, raw file bytes. This is the single chokepoint between
// content-producing digesters and the text consumers (summary, tags, slug,
// search).
func ResolveText(file *db.FileRecord, existing []db.Digest) *TextContent {
	if text := URLCrawlMarkdown(existing); text != "" {
		return &TextContent{Text: text, Source: SourceURLCrawl}
	}
	if text := DocMarkdown(existing); text != "" {
		return &TextContent{Text: text, Source: SourceDocToMarkdown}
	}
	if text := OCRText(existing); text != "" {
		return &TextContent{Text: text, Source: SourceImageOCR}
	}
	if text := SpeechText(existing); text != "" {
		return &TextContent{Text: text, Source: SourceSpeech}
	}
	if isLocalTextFile(file) {
		if text := readLocalTextFile(file.Path); text != "" {
			return &TextContent{Text: text, Source: SourceFile}
		}
	}
	return nil
}

// HasAnyTextSource mirrors ResolveText's order without materializing the
// text of the raw-file fallback.
func HasAnyTextSource(file *db.FileRecord, existing []db.Digest, minLength int) bool {
	if len(strings.TrimSpace(URLCrawlMarkdown(existing))) >= minLength {
		return true
	}
	if len(strings.TrimSpace(DocMarkdown(existing))) >= minLength {
		return true
	}
	if len(strings.TrimSpace(OCRText(existing))) >= minLength {
		return true
	}
	if len(strings.TrimSpace(SpeechText(existing))) >= minLength {
		return true
	}
	return isLocalTextFile(file)
}

// ContentSources returns every available text source for a file, each
// reported separately so the semantic indexer can chunk and attribute them
// independently.
func ContentSources(file *db.FileRecord, existing []db.Digest) []ContentSource {
	var sources []ContentSource

	if text := URLCrawlMarkdown(existing); text != "" {
		sources = append(sources, ContentSource{SourceType: "url-crawl-content", Text: text})
	}
	if text := DocMarkdown(existing); text != "" {
		sources = append(sources, ContentSource{SourceType: "doc-to-markdown", Text: text})
	}
	if text := OCRText(existing); text != "" {
		sources = append(sources, ContentSource{SourceType: "image-ocr", Text: text})
	}
	if text := SpeechText(existing); text != "" {
		sources = append(sources, ContentSource{SourceType: "speech-recognition", Text: text})
	}
	if isLocalTextFile(file) {
		if text := readLocalTextFile(file.Path); text != "" {
			sources = append(sources, ContentSource{SourceType: "file", Text: text})
		}
	}

	return sources
}

// CombinedText joins all content sources with blank lines, for whole-document
// keyword indexing.
func CombinedText(file *db.FileRecord, existing []db.Digest) string {
	sources := ContentSources(file, existing)
	var texts []string
	for _, s := range sources {
		if s.Text != "" {
			texts = append(texts, s.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}
