package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind classifies a file for display and processing purposes.
type Kind string

const (
	// KindImage is a raster or vector image.
	KindImage Kind = "image"
	// KindVideo is a video file.
	KindVideo Kind = "video"
	// KindDocument is a text or office document.
	KindDocument Kind = "document"
	// KindOther is any unrecognized file.
	KindOther Kind = "other"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".svg": true, ".ico": true,
	".tiff": true, ".tif": true, ".heic": true, ".heif": true,
	".avif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	".mpeg": true, ".mpg": true, ".3gp": true, ".ts": true,
}

// DocumentExtensions maps file extensions to whether they are recognized documents.
var DocumentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
	".md": true, ".csv": true, ".xls": true, ".xlsx": true,
}

// KindForName classifies a filename by its extension.
func KindForName(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ImageExtensions[ext]:
		return KindImage
	case VideoExtensions[ext]:
		return KindVideo
	case DocumentExtensions[ext]:
		return KindDocument
	default:
		return KindOther
	}
}

// KindForMime classifies a MIME type string.
func KindForMime(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	case strings.HasPrefix(mimeType, "application/pdf"),
		strings.HasPrefix(mimeType, "text/"):
		return KindDocument
	default:
		return KindOther
	}
}

// IsImageMime reports whether a MIME type describes an image the
// optimizer can process.
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// MimeForExtension returns the canonical MIME type for common media
// extensions, or an empty string if unknown.
func MimeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}
