package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/itsthejuice/File-Converter/internal/deps"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/runner"
)

var x264Presets = []string{"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow"}

// FFmpeg converts video and audio through the ffmpeg binary.
type FFmpeg struct {
	Binary string
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{Binary: "ffmpeg"}
}

func (f *FFmpeg) Manifest() Manifest {
	return Manifest{
		Name:        "ffmpeg_video",
		Version:     "1.0.0",
		Entry:       BuiltinPrefix + "ffmpeg",
		Description: "Video and audio conversion with ffmpeg",
		Capabilities: []Capability{{
			Inputs:  []string{"video/*", "audio/*"},
			Outputs: []string{"video/mp4", "video/webm", "image/gif", "audio/mp3", "audio/mpeg", "audio/flac"},
			Params: map[string]ParamSpec{
				"crf": {
					Kind: ParamInt, Min: intp(0), Max: intp(51), Default: 23,
					Description: "Constant rate factor, lower is higher quality",
				},
				"preset": {
					Kind: ParamChoice, Choices: x264Presets, Default: "veryfast",
					Description: "Encoder speed preset",
				},
				"scale": {
					Kind: ParamString, Optional: true,
					Description: "Scale filter, e.g. 1920:1080 or 720:-1",
				},
				"fps": {
					Kind: ParamInt, Min: intp(1), Optional: true,
					Description: "Frame rate (GIF)",
				},
				"quality": {
					Kind: ParamInt, Min: intp(0), Max: intp(9), Optional: true,
					Description: "MP3 VBR quality, 0 is best",
				},
			},
		}},
		ToolRequires: []string{f.Binary},
	}
}

func (f *FFmpeg) Available() bool {
	return deps.Have(f.Binary)
}

func (f *FFmpeg) Capabilities() []Capability {
	return f.Manifest().Capabilities
}

func (f *FFmpeg) Plan(srcMime, dstMime string) (PlanInfo, error) {
	switch dstMime {
	case "audio/flac":
		return PlanInfo{Cost: 1.0, Lossiness: Lossless}, nil
	case "video/mp4", "video/webm", "image/gif", "audio/mp3", "audio/mpeg":
		return PlanInfo{Cost: 1.0, Lossiness: Lossy}, nil
	}
	return PlanInfo{}, fmt.Errorf("unsupported destination %s", dstMime)
}

func (f *FFmpeg) Run(ctx context.Context, srcPath, dstPath, dstMime string, opts job.Options, onLine runner.LineFunc) error {
	var (
		args []string
		err  error
	)
	switch dstMime {
	case "video/mp4":
		args, err = MP4Args(f.Binary, srcPath, dstPath, opts)
	case "video/webm":
		args, err = WebMArgs(f.Binary, srcPath, dstPath, opts)
	case "image/gif":
		return f.runGIF(ctx, srcPath, dstPath, opts, onLine)
	case "audio/mp3", "audio/mpeg":
		args, err = MP3Args(f.Binary, srcPath, dstPath, opts)
	case "audio/flac":
		args, err = FLACArgs(f.Binary, srcPath, dstPath, opts)
	default:
		return fmt.Errorf("ffmpeg: unsupported destination %s", dstMime)
	}
	if err != nil {
		return err
	}
	return runner.Run(ctx, args, onLine, "")
}

// runGIF renders a palette first and then encodes with it. Only the second
// pass reports progress.
func (f *FFmpeg) runGIF(ctx context.Context, srcPath, dstPath string, opts job.Options, onLine runner.LineFunc) error {
	tmpDir, err := os.MkdirTemp(filepath.Dir(dstPath), ".palette-*")
	if err != nil {
		return fmt.Errorf("create palette dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	palette := filepath.Join(tmpDir, "palette.png")

	pass1, err := GIFPaletteArgs(f.Binary, srcPath, palette, opts)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, pass1, nil, ""); err != nil {
		return fmt.Errorf("palette pass: %w", err)
	}

	pass2, err := GIFArgs(f.Binary, srcPath, palette, dstPath, opts)
	if err != nil {
		return err
	}
	return runner.Run(ctx, pass2, onLine, "")
}

func intp(n int) *int { return &n }
