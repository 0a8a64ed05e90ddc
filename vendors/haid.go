package vendors

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

var (
	haidClient     *HAIDClient
	haidClientOnce sync.Once
)

// HAIDClient wraps the HAID API client (crawl, OCR, ASR, doc conversion,
// embeddings). All heavy ML work happens on the other side of this HTTP API.
type HAIDClient struct {
	baseURL      string
	apiKey       string
	chromeCDPURL string
	httpClient   *http.Client
}

// CrawlOptions holds options for URL crawling
type CrawlOptions struct {
	Screenshot bool
	Timeout    int // seconds
}

// CrawlResponse represents a crawl response
type CrawlResponse struct {
	Title            string `json:"title"`
	Content          string `json:"content"`
	Markdown         string `json:"markdown"`
	ScreenshotBase64 string `json:"screenshot_base64"`
	URL              string `json:"url"`
	Error            string `json:"error,omitempty"`
}

// ASROptions holds options for speech recognition
type ASROptions struct {
	Model       string
	Diarization bool
}

// ASRSegment represents a speech recognition segment
type ASRSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// ASRResponse represents speech recognition response
type ASRResponse struct {
	RequestID        string       `json:"request_id"`
	ProcessingTimeMs int          `json:"processing_time_ms"`
	Text             string       `json:"text"`
	Language         string       `json:"language"`
	Model            string       `json:"model"`
	Segments         []ASRSegment `json:"segments"`
	Error            string       `json:"error,omitempty"`
}

// OCRResponse represents OCR response
type OCRResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// GetHAIDClient returns the singleton HAID client, or nil when not configured
func GetHAIDClient() *HAIDClient {
	haidClientOnce.Do(func() {
		cfg := config.Get()

		if cfg.HAIDBaseURL == "" {
			log.Warn().Msg("HAID_BASE_URL not configured, HAID disabled")
			return
		}

		haidClient = &HAIDClient{
			baseURL:      cfg.HAIDBaseURL,
			apiKey:       cfg.HAIDAPIKey,
			chromeCDPURL: cfg.HAIDChromeCDPURL,
			httpClient: &http.Client{
				Timeout: 5 * time.Minute, // Long timeout for ML operations
			},
		}

		log.Info().Str("baseURL", cfg.HAIDBaseURL).Msg("HAID initialized")
	})

	return haidClient
}

// CrawlURL crawls a URL and returns the page content plus an optional screenshot
func (h *HAIDClient) CrawlURL(ctx context.Context, urlStr string, opts CrawlOptions) (*CrawlResponse, error) {
	if h == nil {
		return nil, fmt.Errorf("HAID not configured")
	}

	// Default page timeout to 120 seconds
	pageTimeout := 120000
	if opts.Timeout > 0 {
		pageTimeout = opts.Timeout * 1000
	}

	body := map[string]interface{}{
		"url":                 urlStr,
		"screenshot":          opts.Screenshot,
		"screenshot_fullpage": false,
		"screenshot_width":    1920,
		"screenshot_height":   1080,
		"page_timeout":        pageTimeout,
	}

	if h.chromeCDPURL != "" {
		body["chrome_cdp_url"] = h.chromeCDPURL
	}

	resp, err := h.post(ctx, "/api/crawl", body)
	if err != nil {
		return nil, err
	}

	var result CrawlResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("crawl failed: %s", result.Error)
	}

	return &result, nil
}

// Screenshot decodes the base64 screenshot from a crawl response
func (r *CrawlResponse) Screenshot() []byte {
	if r.ScreenshotBase64 == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(r.ScreenshotBase64)
	if err != nil {
		return nil
	}
	return data
}

// SpeechRecognition transcribes an audio or video file
func (h *HAIDClient) SpeechRecognition(ctx context.Context, audioPath string, opts ASROptions) (*ASRResponse, error) {
	if h == nil {
		return nil, fmt.Errorf("HAID not configured")
	}

	audioData, err := os.ReadFile(resolveFilePath(audioPath))
	if err != nil {
		return nil, err
	}

	model := opts.Model
	if model == "" {
		model = "large-v3"
	}

	body := map[string]interface{}{
		"audio":        base64.StdEncoding.EncodeToString(audioData),
		"model":        model,
		"diarization":  opts.Diarization,
		"lib":          "whisperx",
		"min_speakers": 1,
		"max_speakers": 4,
	}

	resp, err := h.post(ctx, "/api/automatic-speech-recognition", body)
	if err != nil {
		return nil, err
	}

	var result ASRResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("speech recognition failed: %s", result.Error)
	}

	return &result, nil
}

// ImageOCR extracts text from an image
func (h *HAIDClient) ImageOCR(ctx context.Context, imagePath string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("HAID not configured")
	}

	imageData, err := os.ReadFile(resolveFilePath(imagePath))
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"image":         base64.StdEncoding.EncodeToString(imageData),
		"model":         "deepseek-ai/DeepSeek-OCR",
		"output_format": "text",
	}

	resp, err := h.post(ctx, "/api/image-ocr", body)
	if err != nil {
		return "", err
	}

	var result OCRResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("ocr failed: %s", result.Error)
	}

	return result.Text, nil
}

// ConvertDocToMarkdown converts a document (PDF, Word, etc.) to markdown
func (h *HAIDClient) ConvertDocToMarkdown(ctx context.Context, docPath string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("HAID not configured")
	}

	docData, err := os.ReadFile(resolveFilePath(docPath))
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"file":     base64.StdEncoding.EncodeToString(docData),
		"filename": filepath.Base(docPath),
		"lib":      "microsoft/markitdown",
	}

	resp, err := h.post(ctx, "/api/doc-to-markdown", body)
	if err != nil {
		return "", err
	}

	var result struct {
		Markdown string `json:"markdown"`
		Error    string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("doc conversion failed: %s", result.Error)
	}

	return result.Markdown, nil
}

// GenerateDocScreenshot renders the first page of a document as PNG
func (h *HAIDClient) GenerateDocScreenshot(ctx context.Context, docPath string) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("HAID not configured")
	}

	docData, err := os.ReadFile(resolveFilePath(docPath))
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"document": base64.StdEncoding.EncodeToString(docData),
	}

	resp, err := h.post(ctx, "/api/doc-to-screenshot", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Screenshot string `json:"screenshot"`
		Error      string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("doc screenshot failed: %s", result.Error)
	}

	return base64.StdEncoding.DecodeString(result.Screenshot)
}

// Embed generates embedding vectors for the given texts
func (h *HAIDClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if h == nil {
		return nil, fmt.Errorf("HAID not configured")
	}

	body := map[string]interface{}{
		"texts": texts,
		"model": "Qwen/Qwen3-Embedding-0.6B",
	}

	resp, err := h.post(ctx, "/api/embed", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
		Error      string      `json:"error,omitempty"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("embed failed: %s", result.Error)
	}

	return result.Embeddings, nil
}

// post makes a POST request to the HAID API
func (h *HAIDClient) post(ctx context.Context, endpoint string, body map[string]interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	fullURL, err := url.JoinPath(h.baseURL, endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fullURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HAID %s returned %d: %s", endpoint, resp.StatusCode, truncate(string(data), 200))
	}

	return data, nil
}

// resolveFilePath converts a relative file path to absolute by joining with
// the user data dir. Absolute paths pass through unchanged.
func resolveFilePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	cfg := config.Get()
	return filepath.Join(cfg.UserDataDir, path)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
