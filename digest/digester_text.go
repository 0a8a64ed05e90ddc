package digest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/vendors"
)

// TagsDigester generates classification tags from whatever text the file has
type TagsDigester struct{}

func (d *TagsDigester) Name() string        { return "tags" }
func (d *TagsDigester) Label() string       { return "Tags" }
func (d *TagsDigester) Description() string { return "Generate AI tags for content" }
func (d *TagsDigester) OutputNames() []string {
	return []string{"tags"}
}

// minTagsTextChars is the shortest text worth tagging
const minTagsTextChars = 10

func (d *TagsDigester) CanDigest(_ context.Context, file *db.FileRecord, existing []db.Digest) (bool, error) {
	if file.IsFolder {
		return false, nil
	}
	return HasAnyTextSource(file, existing, minTagsTextChars), nil
}

func (d *TagsDigester) Digest(ctx context.Context, file *db.FileRecord, existing []db.Digest) ([]Output, error) {
	text := ResolveText(file, existing)
	if text == nil || len(text.Text) < minTagsTextChars {
		return nil, nil
	}

	openai := vendors.GetOpenAIClient()
	tags, err := openai.GenerateTags(ctx, text.Text)
	if err != nil {
		return nil, err
	}

	contentJSON, err := json.Marshal(tagsContent{Tags: tags})
	if err != nil {
		return nil, err
	}

	return []Output{completedOutput("tags", string(contentJSON))}, nil
}

// SlugDigester names the file from its content: a filesystem-friendly slug
// plus a display title.
type SlugDigester struct{}

func (d *SlugDigester) Name() string        { return "slug" }
func (d *SlugDigester) Label() string       { return "Slug" }
func (d *SlugDigester) Description() string { return "Generate a slug and title from content" }
func (d *SlugDigester) OutputNames() []string {
	return []string{"slug"}
}

// minSlugTextChars is the shortest text worth naming
const minSlugTextChars = 20

// slugContent is the JSON shape of the slug digest
type slugContent struct {
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

func (d *SlugDigester) CanDigest(_ context.Context, file *db.FileRecord, existing []db.Digest) (bool, error) {
	if file.IsFolder {
		return false, nil
	}
	if SummaryText(existing) != nil {
		return true, nil
	}
	return HasAnyTextSource(file, existing, minSlugTextChars), nil
}

func (d *SlugDigester) Digest(ctx context.Context, file *db.FileRecord, existing []db.Digest) ([]Output, error) {
	// Prefer the summary: it is short and already distills the content
	text := ""
	source := ""
	if summary := SummaryText(existing); summary != nil {
		text = *summary
		source = "summary"
	} else if resolved := ResolveText(file, existing); resolved != nil {
		text = resolved.Text
		source = string(resolved.Source)
	}

	if len(text) < minSlugTextChars {
		return nil, nil
	}

	openai := vendors.GetOpenAIClient()
	result, err := openai.GenerateSlug(ctx, text)
	if err != nil {
		return nil, err
	}
	if result.Slug == "" {
		return nil, fmt.Errorf("slug generation returned empty slug")
	}

	contentJSON, err := json.Marshal(slugContent{
		Slug:   result.Slug,
		Title:  result.Title,
		Source: source,
	})
	if err != nil {
		return nil, err
	}

	return []Output{completedOutput("slug", string(contentJSON))}, nil
}
