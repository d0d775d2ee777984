package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DefaultChunkSize is the read size used by MD5File when none is given.
const DefaultChunkSize = 4 << 20

// MD5File streams path through MD5 in chunkSize reads.
func MD5File(path string, chunkSize int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for md5: %w", err)
	}
	defer f.Close()

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		return "", fmt.Errorf("read for md5: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
