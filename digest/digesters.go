package digest

import (
	"strings"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
)

// Shared applicability helpers

func mimeType(file *db.FileRecord) string {
	if file.MimeType != nil {
		return *file.MimeType
	}
	return ""
}

func isImage(file *db.FileRecord) bool {
	return strings.HasPrefix(mimeType(file), "image/")
}

func isAudio(file *db.FileRecord) bool {
	return strings.HasPrefix(mimeType(file), "audio/")
}

func isVideo(file *db.FileRecord) bool {
	return strings.HasPrefix(mimeType(file), "video/")
}

var documentMimeTypes = []string{
	"application/pdf",
	"application/epub+zip",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

var documentExtensions = map[string]bool{
	".pdf": true, ".epub": true,
	".doc": true, ".docx": true,
	".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
}

func isDocument(file *db.FileRecord) bool {
	mime := mimeType(file)
	for _, t := range documentMimeTypes {
		if mime == t {
			return true
		}
	}
	name := strings.ToLower(file.Name)
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return documentExtensions[name[idx:]]
	}
	return false
}

// urlFromPreview extracts an http(s) URL from the file's text preview, or ""
func urlFromPreview(file *db.FileRecord) string {
	if file.TextPreview == nil {
		return ""
	}
	url := strings.TrimSpace(*file.TextPreview)
	if i := strings.IndexAny(url, "\r\n"); i >= 0 {
		url = strings.TrimSpace(url[:i])
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return ""
}
