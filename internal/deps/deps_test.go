package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStub(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
}

func TestCheckBinaries(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "fake-ffmpeg")
	t.Setenv("PATH", dir)

	statuses := CheckBinaries([]Requirement{
		{Name: "ffmpeg", Command: "fake-ffmpeg"},
		{Name: "magick", Command: "fake-magick"},
		{Name: "exiftool", Command: "fake-exiftool", Optional: true},
		{Name: "blank"},
	})
	require.Len(t, statuses, 4)

	assert.True(t, statuses[0].Available)
	assert.Equal(t, filepath.Join(dir, "fake-ffmpeg"), statuses[0].Path)
	assert.False(t, statuses[1].Available)
	assert.Contains(t, statuses[1].Detail, "not found")
	assert.False(t, statuses[2].Available)
	assert.Equal(t, "command not configured", statuses[3].Detail)

	assert.False(t, Satisfied(statuses))
	assert.Equal(t, []string{"magick", "blank"}, Missing(statuses))
}

func TestHave(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "tool-a")
	t.Setenv("PATH", dir)

	assert.True(t, Have("tool-a"))
	assert.False(t, Have("tool-a", "tool-b"))
	assert.True(t, Have())
}

func TestTools(t *testing.T) {
	reqs := Tools([]string{"ffmpeg", " ", "ffprobe "})
	require.Len(t, reqs, 2)
	assert.Equal(t, "ffprobe", reqs[1].Command)
}

func TestDefaultRequirements(t *testing.T) {
	reqs := DefaultRequirements("")
	require.NotEmpty(t, reqs)
	assert.Equal(t, "ffmpeg", reqs[0].Name)
	assert.False(t, reqs[0].Optional)
	for _, r := range reqs[1:] {
		assert.True(t, r.Optional, r.Name)
	}
	assert.Equal(t, "/opt/bin/ffprobe", DefaultRequirements("/opt/bin/ffprobe")[1].Command)
}
