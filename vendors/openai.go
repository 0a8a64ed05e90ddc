package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

var (
	openaiClient     *OpenAIClient
	openaiClientOnce sync.Once
)

// OpenAIClient wraps the OpenAI client
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// CompletionOptions holds options for completions
type CompletionOptions struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float32
	JSONMode     bool
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	Content      string
	FinishReason string
	Usage        struct {
		PromptTokens     int
		CompletionTokens int
		TotalTokens      int
	}
}

// SlugResult is the structured result of slug generation
type SlugResult struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// GetOpenAIClient returns the singleton OpenAI client, or nil when not configured
func GetOpenAIClient() *OpenAIClient {
	openaiClientOnce.Do(func() {
		cfg := config.Get()

		if cfg.OpenAIAPIKey == "" {
			log.Warn().Msg("OPENAI_API_KEY not configured, OpenAI disabled")
			return
		}

		clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
		if cfg.OpenAIBaseURL != "" && cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
			clientConfig.BaseURL = cfg.OpenAIBaseURL
		}

		openaiClient = &OpenAIClient{
			client: openai.NewClientWithConfig(clientConfig),
			model:  cfg.OpenAIModel,
		}

		log.Info().Str("model", cfg.OpenAIModel).Msg("OpenAI initialized")
	})

	return openaiClient
}

// Complete performs a chat completion
func (o *OpenAIClient) Complete(ctx context.Context, opts CompletionOptions) (*CompletionResponse, error) {
	if o == nil {
		return nil, fmt.Errorf("OpenAI not configured")
	}

	var messages []openai.ChatCompletionMessage

	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: opts.Prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		log.Error().Msg("openai response has no choices")
		return &CompletionResponse{}, nil
	}

	content := resp.Choices[0].Message.Content
	finishReason := string(resp.Choices[0].FinishReason)

	if finishReason == "length" {
		log.Warn().
			Int("completionTokens", resp.Usage.CompletionTokens).
			Msg("response was truncated due to max_tokens limit")
	}

	return &CompletionResponse{
		Content:      content,
		FinishReason: finishReason,
		Usage: struct {
			PromptTokens     int
			CompletionTokens int
			TotalTokens      int
		}{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Summarize generates a short summary of the text
func (o *OpenAIClient) Summarize(ctx context.Context, text string) (string, error) {
	if o == nil {
		return "", fmt.Errorf("OpenAI not configured")
	}

	resp, err := o.Complete(ctx, CompletionOptions{
		SystemPrompt: summarySystemPrompt,
		Prompt:       text,
		Temperature:  0.3,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Content), nil
}

// GenerateTags generates classification tags for the text
func (o *OpenAIClient) GenerateTags(ctx context.Context, text string) ([]string, error) {
	if o == nil {
		return nil, fmt.Errorf("OpenAI not configured")
	}

	resp, err := o.Complete(ctx, CompletionOptions{
		SystemPrompt: tagsSystemPrompt,
		Prompt:       "Analyze the following content and produce tags.\n\n" + text,
		Temperature:  0.1,
		JSONMode:     true,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := parseJSONFromLLMResponse(resp.Content)
	if err != nil {
		log.Error().Err(err).Str("content", resp.Content).Msg("failed to parse tags JSON")
		return []string{}, nil
	}

	return extractTagsFromJSON(parsed, 20), nil
}

// GenerateSlug generates a filesystem-friendly slug and display title
func (o *OpenAIClient) GenerateSlug(ctx context.Context, text string) (*SlugResult, error) {
	if o == nil {
		return nil, fmt.Errorf("OpenAI not configured")
	}

	resp, err := o.Complete(ctx, CompletionOptions{
		SystemPrompt: slugSystemPrompt,
		Prompt:       text,
		Temperature:  0.1,
		JSONMode:     true,
	})
	if err != nil {
		return nil, err
	}

	var result SlugResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse slug JSON: %w", err)
	}

	result.Slug = normalizeSlug(result.Slug)
	if result.Slug == "" {
		return nil, fmt.Errorf("slug generation returned empty slug")
	}

	return &result, nil
}

// normalizeSlug lowercases and strips anything that isn't [a-z0-9-]
func normalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = regexp.MustCompile(`[\s_]+`).ReplaceAllString(s, "-")
	s = regexp.MustCompile(`[^a-z0-9-]`).ReplaceAllString(s, "")
	s = regexp.MustCompile(`-+`).ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// parseJSONFromLLMResponse robustly parses JSON from LLM responses
func parseJSONFromLLMResponse(content string) (interface{}, error) {
	content = strings.TrimSpace(content)

	// Try direct parse first
	var result interface{}
	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return result, nil
	}

	// Try to find JSON in markdown code blocks
	codeBlockRe := regexp.MustCompile("```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")
	if matches := codeBlockRe.FindStringSubmatch(content); len(matches) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(matches[1])), &result); err == nil {
			return result, nil
		}
	}

	// Try to find JSON object
	jsonObjectRe := regexp.MustCompile(`\{[\s\S]*\}`)
	if match := jsonObjectRe.FindString(content); match != "" {
		if err := json.Unmarshal([]byte(match), &result); err == nil {
			return result, nil
		}
	}

	// Try to find JSON array
	jsonArrayRe := regexp.MustCompile(`\[[\s\S]*\]`)
	if match := jsonArrayRe.FindString(content); match != "" {
		if err := json.Unmarshal([]byte(match), &result); err == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("unable to parse JSON from LLM response")
}

// extractTagsFromJSON extracts the tags array from parsed JSON
func extractTagsFromJSON(parsed interface{}, maxTags int) []string {
	var tags []string

	switch v := parsed.(type) {
	case map[string]interface{}:
		if tagsVal, ok := v["tags"]; ok {
			if tagsArr, ok := tagsVal.([]interface{}); ok {
				for _, tag := range tagsArr {
					if s, ok := tag.(string); ok {
						s = strings.TrimSpace(s)
						if s != "" {
							tags = append(tags, s)
						}
					}
				}
			}
		}
	case []interface{}:
		for _, tag := range v {
			if s, ok := tag.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					tags = append(tags, s)
				}
			}
		}
	}

	if maxTags > 0 && len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	return tags
}
