package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"
)

// ComputeFileHash computes the SHA-256 hash of the given reader's content.
// Returns the hex-encoded hash string.
func ComputeFileHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var textMimeTypes = map[string]bool{
	"application/json":       true,
	"application/javascript": true,
	"application/xml":        true,
	"application/x-yaml":     true,
	"application/yaml":       true,
}

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".json": true,
	".yaml": true, ".yml": true, ".xml": true, ".html": true,
	".htm": true, ".css": true, ".js": true, ".ts": true,
	".jsx": true, ".tsx": true, ".py": true, ".go": true,
	".rs": true, ".java": true, ".c": true, ".cpp": true,
	".h": true, ".hpp": true, ".sh": true, ".bash": true,
	".zsh": true, ".fish": true, ".sql": true, ".toml": true,
	".ini": true, ".cfg": true, ".conf": true, ".log": true,
	".env": true, ".gitignore": true, ".dockerignore": true,
}

// IsTextFile checks if a file is a text file based on MIME type and filename
func IsTextFile(mimeType *string, filename string) bool {
	if mimeType != nil {
		mt := *mimeType
		if strings.HasPrefix(mt, "text/") {
			return true
		}
		if textMimeTypes[mt] {
			return true
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	return textExtensions[ext]
}

// DetectMimeType detects MIME type based on file extension
func DetectMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	mimeTypes := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".svg":  "image/svg+xml",
		".bmp":  "image/bmp",
		".tiff": "image/tiff",
		".tif":  "image/tiff",
		".heic": "image/heic",
		".heif": "image/heif",
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
		".avi":  "video/x-msvideo",
		".mkv":  "video/x-matroska",
		".webm": "video/webm",
		".mp3":  "audio/mpeg",
		".wav":  "audio/wav",
		".flac": "audio/flac",
		".aac":  "audio/aac",
		".ogg":  "audio/ogg",
		".m4a":  "audio/mp4",
		".pdf":  "application/pdf",
		".epub": "application/epub+zip",
		".doc":  "application/msword",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".xls":  "application/vnd.ms-excel",
		".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		".ppt":  "application/vnd.ms-powerpoint",
		".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		".txt":  "text/plain",
		".md":   "text/markdown",
		".json": "application/json",
		".html": "text/html",
		".htm":  "text/html",
		".css":  "text/css",
		".js":   "application/javascript",
		".xml":  "application/xml",
		".zip":  "application/zip",
		".tar":  "application/x-tar",
		".gz":   "application/gzip",
	}

	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
