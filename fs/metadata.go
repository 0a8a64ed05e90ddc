package fs

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/utils"
)

const (
	// Maximum bytes to read for text preview
	maxPreviewBytes = 10 * 1024 * 1024 // 10MB

	// Maximum lines to include in text preview
	maxPreviewLines = 60
)

// ComputeMetadata computes hash, size, and text preview for a file under the
// data root.
func ComputeMetadata(dataRoot, path string) (*MetadataResult, error) {
	fullPath := filepath.Join(dataRoot, path)

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	hash, err := utils.ComputeFileHash(file)
	if err != nil {
		return nil, err
	}

	// Reset file pointer for text preview
	if _, err := file.Seek(0, 0); err != nil {
		return nil, err
	}

	var textPreview *string
	mime := utils.DetectMimeType(path)
	if utils.IsTextFile(&mime, path) {
		preview, err := extractTextPreview(file)
		if err == nil && preview != nil && *preview != "" {
			textPreview = preview
		}
	}

	return &MetadataResult{
		Hash:        hash,
		TextPreview: textPreview,
		Size:        info.Size(),
	}, nil
}

// extractTextPreview extracts the first N lines of text from a file
func extractTextPreview(r io.Reader) (*string, error) {
	limited := io.LimitReader(r, maxPreviewBytes)
	scanner := bufio.NewScanner(limited)
	scanner.Buffer(make([]byte, 0, 64*1024), maxPreviewBytes)

	var lines []string
	for scanner.Scan() && len(lines) < maxPreviewLines {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, nil
	}

	preview := strings.Join(lines, "\n")
	return &preview, nil
}
