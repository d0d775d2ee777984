package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var extensions = map[string]string{
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/x-matroska": ".mkv",
	"video/x-msvideo":  ".avi",
	"video/quicktime":  ".mov",
	"image/gif":        ".gif",
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/webp":       ".webp",
	"image/heic":       ".heic",
	"audio/mp3":        ".mp3",
	"audio/mpeg":       ".mp3",
	"audio/flac":       ".flac",
	"audio/wav":        ".wav",
	"audio/ogg":        ".ogg",
	"audio/opus":       ".opus",
	"audio/mp4":        ".m4a",
	"application/pdf":  ".pdf",
	"text/plain":       ".txt",
	"text/markdown":    ".md",
	"text/html":        ".html",
}

// ExtensionFor returns the file extension, with its dot, used for outputs of
// type mime. Unknown types get ".bin".
func ExtensionFor(mime string) string {
	if ext, ok := extensions[mime]; ok {
		return ext
	}
	return ".bin"
}

// ResolveOutputPath picks where the conversion of srcPath to dstMime is
// written. The file lands in outputDir, created when needed, or next to the
// source when outputDir is empty. An existing file is never reused: _1, _2
// and so on are appended to the stem until the name is free.
func ResolveOutputPath(srcPath, dstMime, outputDir string) (string, error) {
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(srcPath)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	base := filepath.Base(srcPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ext := ExtensionFor(dstMime)

	candidate := filepath.Join(dir, stem+ext)
	for n := 1; ; n++ {
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check output path: %w", err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrOutputMissing, path)
	}
	return nil
}
