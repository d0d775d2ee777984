// Package detect classifies files by media type.
package detect

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Unknown is the type reported when nothing better is known.
const Unknown = "application/octet-stream"

// ErrNotFound is returned by Sniff for paths that do not exist.
var ErrNotFound = errors.New("file not found")

var extensionTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".m4a":  "audio/mp4",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
	".htm":  "text/html",
}

// aliases maps alternative spellings from content sniffing onto the ones
// used by plugin manifests.
var aliases = map[string]string{
	"audio/x-wav":     "audio/wav",
	"audio/wave":      "audio/wav",
	"audio/x-flac":    "audio/flac",
	"audio/x-m4a":     "audio/mp4",
	"audio/mp3":       "audio/mpeg",
	"application/ogg": "audio/ogg",
	"image/jpg":       "image/jpeg",
}

// Sniff returns the media type of the file at path. Content is inspected
// first, then the extension. Existing files always get some type.
func Sniff(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return "", err
	}

	if !info.IsDir() && info.Size() > 0 {
		if m, err := mimetype.DetectFile(path); err == nil {
			if t := Normalize(m.String()); t != "" && t != Unknown {
				return t, nil
			}
		}
	}
	if t, ok := ByExtension(path); ok {
		return t, nil
	}
	return Unknown, nil
}

// ByExtension looks path's extension up in the fallback table.
func ByExtension(path string) (string, bool) {
	t, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	return t, ok
}

// Normalize strips parameters and lowercases t, then applies known aliases.
func Normalize(t string) string {
	if base, _, err := mime.ParseMediaType(t); err == nil {
		t = base
	}
	t = strings.ToLower(strings.TrimSpace(t))
	if a, ok := aliases[t]; ok {
		return a
	}
	return t
}
