package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/utils"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/vendors"
)

// URLCrawlDigester crawls files that are nothing but a URL and captures the
// page as markdown plus a screenshot.
type URLCrawlDigester struct{}

func (d *URLCrawlDigester) Name() string        { return "url-crawl" }
func (d *URLCrawlDigester) Label() string       { return "URL Crawler" }
func (d *URLCrawlDigester) Description() string { return "Crawl and extract content from URLs" }
func (d *URLCrawlDigester) OutputNames() []string {
	return []string{"url-crawl-content", "url-crawl-screenshot"}
}

func (d *URLCrawlDigester) CanDigest(_ context.Context, file *db.FileRecord, _ []db.Digest) (bool, error) {
	if file.IsFolder || !utils.IsTextFile(file.MimeType, file.Name) {
		return false, nil
	}
	return urlFromPreview(file) != "", nil
}

func (d *URLCrawlDigester) Digest(ctx context.Context, file *db.FileRecord, _ []db.Digest) ([]Output, error) {
	urlStr := urlFromPreview(file)
	if urlStr == "" {
		return nil, fmt.Errorf("file no longer contains a URL")
	}

	haid := vendors.GetHAIDClient()
	resp, err := haid.CrawlURL(ctx, urlStr, vendors.CrawlOptions{Screenshot: true, Timeout: 30})
	if err != nil {
		return nil, err
	}

	markdown := resp.Markdown
	if markdown == "" {
		markdown = resp.Content
	}

	wordCount := countWords(markdown)
	readingTimeMinutes := 1
	if wordCount > 0 {
		readingTimeMinutes = (wordCount + 199) / 200 // 200 words per minute, round up
	}

	domain := ""
	if parsedURL, err := url.Parse(resp.URL); err == nil {
		domain = parsedURL.Hostname()
	}

	contentJSON, err := json.Marshal(crawlContent{
		Markdown:           markdown,
		URL:                resp.URL,
		Title:              resp.Title,
		Domain:             domain,
		WordCount:          wordCount,
		ReadingTimeMinutes: readingTimeMinutes,
	})
	if err != nil {
		return nil, err
	}

	outputs := []Output{completedOutput("url-crawl-content", string(contentJSON))}

	if screenshot := resp.Screenshot(); len(screenshot) > 0 {
		blobName := "screenshot.png"
		outputs = append(outputs, Output{
			Name:         "url-crawl-screenshot",
			Status:       db.DigestStatusCompleted,
			BlobName:     &blobName,
			BlobData:     screenshot,
			IsScreenshot: true,
		})
	}

	return outputs, nil
}

// URLCrawlSummaryDigester summarizes crawled page content
type URLCrawlSummaryDigester struct{}

func (d *URLCrawlSummaryDigester) Name() string        { return "url-crawl-summary" }
func (d *URLCrawlSummaryDigester) Label() string       { return "URL Summary" }
func (d *URLCrawlSummaryDigester) Description() string { return "Summarize crawled URL content" }
func (d *URLCrawlSummaryDigester) OutputNames() []string {
	return []string{"url-crawl-summary"}
}

// minCrawlContentChars is the shortest crawl worth summarizing
const minCrawlContentChars = 100

func (d *URLCrawlSummaryDigester) CanDigest(_ context.Context, _ *db.FileRecord, existing []db.Digest) (bool, error) {
	return len(URLCrawlMarkdown(existing)) >= minCrawlContentChars, nil
}

func (d *URLCrawlSummaryDigester) Digest(ctx context.Context, _ *db.FileRecord, existing []db.Digest) ([]Output, error) {
	markdown := URLCrawlMarkdown(existing)
	if len(markdown) < minCrawlContentChars {
		return nil, nil
	}

	openai := vendors.GetOpenAIClient()
	summary, err := openai.Summarize(ctx, markdown)
	if err != nil {
		return nil, err
	}

	contentJSON, err := json.Marshal(summaryContent{Summary: summary})
	if err != nil {
		return nil, err
	}

	return []Output{completedOutput("url-crawl-summary", string(contentJSON))}, nil
}
