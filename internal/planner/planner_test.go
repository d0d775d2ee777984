package planner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsthejuice/File-Converter/internal/converter"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/runner"
)

type stubModule struct {
	caps    []converter.Capability
	info    converter.PlanInfo
	planErr error
}

func (s stubModule) Available() bool                        { return true }
func (s stubModule) Capabilities() []converter.Capability { return s.caps }

func (s stubModule) Plan(string, string) (converter.PlanInfo, error) {
	return s.info, s.planErr
}

func (s stubModule) Run(context.Context, string, string, string, job.Options, runner.LineFunc) error {
	return nil
}

func newRegistry(t *testing.T, mods map[string]stubModule, order ...string) *converter.Registry {
	t.Helper()
	reg := converter.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, name := range order {
		mod := mods[name]
		m := converter.Manifest{Name: name, Version: "1.0.0", Entry: "test", Capabilities: mod.caps}
		require.NoError(t, reg.Register(converter.NewPlugin(m, mod)))
	}
	return reg
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPlan_Route(t *testing.T) {
	reg := newRegistry(t, map[string]stubModule{
		"av": {
			caps: []converter.Capability{{Inputs: []string{"audio/*"}, Outputs: []string{"audio/flac", "audio/mp3"}}},
			info: converter.PlanInfo{Cost: 1, Lossiness: converter.Lossless},
		},
	}, "av")

	route, ok := Plan("audio/wav", "audio/flac", reg, quiet())
	require.True(t, ok)
	assert.IsType(t, &Route{}, route)
	assert.Equal(t, "av", route.Plugin.Name())
	assert.Equal(t, converter.Lossless, route.Info.Lossiness)
	assert.Equal(t, "audio/wav", route.SrcMime)
	assert.Equal(t, "audio/flac", route.DstMime)
}

func TestPlan_NoRoute(t *testing.T) {
	reg := newRegistry(t, map[string]stubModule{
		"av": {caps: []converter.Capability{{Inputs: []string{"audio/*"}, Outputs: []string{"audio/mp3"}}}},
	}, "av")

	plan, ok := Plan("image/png", "audio/mp3", reg, quiet())
	assert.False(t, ok)
	assert.Nil(t, plan)
}

func TestPlan_PluginErrorIsNoPlan(t *testing.T) {
	reg := newRegistry(t, map[string]stubModule{
		"broken": {
			caps:    []converter.Capability{{Inputs: []string{"audio/*"}, Outputs: []string{"audio/mp3"}}},
			planErr: errors.New("cannot plan"),
		},
	}, "broken")

	plan, ok := Plan("audio/wav", "audio/mp3", reg, quiet())
	assert.False(t, ok)
	assert.Nil(t, plan)
}

func TestSupportedOutputsFor(t *testing.T) {
	reg := newRegistry(t, map[string]stubModule{
		"video": {caps: []converter.Capability{{Inputs: []string{"video/*", "audio/*"}, Outputs: []string{"video/mp4", "audio/mp3"}}}},
		"audio": {caps: []converter.Capability{
			{Inputs: []string{"audio/wav"}, Outputs: []string{"audio/flac", "audio/mp3"}},
			{Inputs: []string{"image/*"}, Outputs: []string{"image/png"}},
		}},
	}, "video", "audio")

	assert.Equal(t, []string{"audio/flac", "audio/mp3", "video/mp4"}, SupportedOutputsFor("audio/wav", reg))
	assert.Equal(t, []string{"audio/mp3", "video/mp4"}, SupportedOutputsFor("video/webm", reg))
	assert.Empty(t, SupportedOutputsFor("text/plain", reg))
}
