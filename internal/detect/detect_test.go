package detect

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// silentWAV builds a minimal PCM WAV header with a few samples of silence.
func silentWAV() []byte {
	samples := make([]byte, 64)
	buf := make([]byte, 0, 44+len(samples))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(samples)))
	buf = append(buf, "WAVEfmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, 8000)
	buf = binary.LittleEndian.AppendUint32(buf, 16000)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(samples)))
	return append(buf, samples...)
}

func TestSniff_NotFound(t *testing.T) {
	_, err := Sniff(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestSniff_ByContent(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"wav with misleading extension", "audio.bin", silentWAV(), "audio/wav"},
		{"png", "picture.dat", pngHeader, "image/png"},
		{"gif", "anim", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), "image/gif"},
		{"pdf", "doc", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sniff(write(t, tt.file, tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSniff_ExtensionFallback(t *testing.T) {
	binaryJunk := []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff, 0x00, 0x10}

	got, err := Sniff(write(t, "clip.mkv", binaryJunk))
	require.NoError(t, err)
	assert.Equal(t, "video/x-matroska", got)

	got, err = Sniff(write(t, "empty.flac", nil))
	require.NoError(t, err)
	assert.Equal(t, "audio/flac", got)
}

func TestSniff_UnknownBinary(t *testing.T) {
	got, err := Sniff(write(t, "blob.xyz", []byte{0x00, 0x9f, 0x92, 0x96, 0x00, 0x01}))
	require.NoError(t, err)
	assert.Equal(t, Unknown, got)
}

func TestSniff_TextStripsCharset(t *testing.T) {
	got, err := Sniff(write(t, "notes", []byte("just some plain words\n")))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", got)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "audio/wav", Normalize("audio/x-wav"))
	assert.Equal(t, "text/plain", Normalize("text/plain; charset=utf-8"))
	assert.Equal(t, "video/mp4", Normalize("Video/MP4"))
}

func TestByExtension(t *testing.T) {
	got, ok := ByExtension("/a/b/Photo.JPEG")
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", got)

	_, ok = ByExtension("/a/b/archive.tar")
	assert.False(t, ok)
}
