package converter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `
name = "opus_audio"
version = "0.2.0"
entry = "workflow.yaml"
tool_requires = ["ffmpeg"]

[[capabilities]]
inputs = ["audio/*"]
outputs = ["audio/opus"]

[capabilities.params.bitrate]
kind = "string"
default = "128k"
description = "Target bitrate"

[capabilities.params.level]
kind = "int"
min = 0
max = 10
default = 10
`

func TestParseManifest_Valid(t *testing.T) {
	m, err := ParseManifest([]byte(validManifest))
	require.NoError(t, err)

	assert.Equal(t, "opus_audio", m.Name)
	assert.Equal(t, "0.2.0", m.Version)
	assert.Equal(t, []string{"ffmpeg"}, m.ToolRequires)
	require.Len(t, m.Capabilities, 1)
	assert.Equal(t, []string{"audio/opus"}, m.Outputs())

	level := m.Capabilities[0].Params["level"]
	assert.Equal(t, ParamInt, level.Kind)
	require.NotNil(t, level.Max)
	assert.Equal(t, 10, *level.Max)
	bitrate, ok := m.Capabilities[0].Params["bitrate"].DefaultValue()
	require.True(t, ok)
	assert.Equal(t, "128k", bitrate.String())
}

func TestParseManifest_MissingKeys(t *testing.T) {
	_, err := ParseManifest([]byte(`
name = "x"
version = "1.0.0"
entry = "builtin:ffmpeg"
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidManifest))
	assert.Contains(t, err.Error(), "capabilities")
	assert.Contains(t, err.Error(), "tool_requires")
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad toml", `name = `},
		{"bad version", `
name = "x"
version = "latest"
entry = "builtin:ffmpeg"
tool_requires = []
[[capabilities]]
inputs = ["audio/*"]
outputs = ["audio/mp3"]
`},
		{"empty outputs", `
name = "x"
version = "1.0.0"
entry = "builtin:ffmpeg"
tool_requires = []
[[capabilities]]
inputs = ["audio/*"]
outputs = []
`},
		{"choice without choices", `
name = "x"
version = "1.0.0"
entry = "builtin:ffmpeg"
tool_requires = []
[[capabilities]]
inputs = ["audio/*"]
outputs = ["audio/mp3"]
[capabilities.params.mode]
kind = "choice"
`},
		{"unknown kind", `
name = "x"
version = "1.0.0"
entry = "builtin:ffmpeg"
tool_requires = []
[[capabilities]]
inputs = ["audio/*"]
outputs = ["audio/mp3"]
[capabilities.params.mode]
kind = "float"
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.doc))
			assert.True(t, errors.Is(err, ErrInvalidManifest), "got %v", err)
		})
	}
}

func TestBuiltinManifestsValidate(t *testing.T) {
	for _, name := range BuiltinNames() {
		m, _ := builtins[name]()
		assert.NoError(t, m.Validate(), name)
	}
}
