package converter

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"

	"github.com/itsthejuice/File-Converter/internal/job"
)

type mp4Params struct {
	CRF    int    `mapstructure:"crf" default:"23"`
	Preset string `mapstructure:"preset" default:"veryfast"`
	Scale  string `mapstructure:"scale"`
}

type webmParams struct {
	CRF   int    `mapstructure:"crf" default:"30"`
	Scale string `mapstructure:"scale"`
}

type gifParams struct {
	FPS   int    `mapstructure:"fps" default:"12"`
	Scale string `mapstructure:"scale" default:"480:-1"`
}

type mp3Params struct {
	Quality int `mapstructure:"quality" default:"2"`
}

// decodeParams fills out from its default tags and then from opts. Options
// the target does not use are ignored.
func decodeParams(opts job.Options, out any) error {
	if err := defaults.Set(out); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(opts.Map()); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}

// MP4Args builds the H.264/AAC command line.
func MP4Args(bin, src, dst string, opts job.Options) ([]string, error) {
	var p mp4Params
	if err := decodeParams(opts, &p); err != nil {
		return nil, err
	}
	args := []string{bin, "-i", src, "-y",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-crf", fmt.Sprint(p.CRF),
		"-preset", p.Preset,
	}
	if p.Scale != "" {
		args = append(args, "-vf", "scale="+p.Scale)
	}
	return append(args, "-c:a", "aac", "-b:a", "128k", dst), nil
}

// WebMArgs builds the VP9/Opus command line.
func WebMArgs(bin, src, dst string, opts job.Options) ([]string, error) {
	var p webmParams
	if err := decodeParams(opts, &p); err != nil {
		return nil, err
	}
	args := []string{bin, "-i", src, "-y",
		"-c:v", "libvpx-vp9",
		"-crf", fmt.Sprint(p.CRF),
		"-b:v", "0",
	}
	if p.Scale != "" {
		args = append(args, "-vf", "scale="+p.Scale)
	}
	return append(args, "-c:a", "libopus", "-b:a", "128k", dst), nil
}

// GIFPaletteArgs builds the first GIF pass, which writes a palette image.
func GIFPaletteArgs(bin, src, palette string, opts job.Options) ([]string, error) {
	var p gifParams
	if err := decodeParams(opts, &p); err != nil {
		return nil, err
	}
	filter := fmt.Sprintf("fps=%d,scale=%s:flags=lanczos,palettegen", p.FPS, p.Scale)
	return []string{bin, "-i", src, "-y", "-vf", filter, palette}, nil
}

// GIFArgs builds the second GIF pass, which encodes using the palette.
func GIFArgs(bin, src, palette, dst string, opts job.Options) ([]string, error) {
	var p gifParams
	if err := decodeParams(opts, &p); err != nil {
		return nil, err
	}
	filter := fmt.Sprintf("fps=%d,scale=%s:flags=lanczos[x];[x][1:v]paletteuse", p.FPS, p.Scale)
	return []string{bin, "-i", src, "-i", palette, "-y", "-lavfi", filter, dst}, nil
}

// MP3Args builds the LAME VBR command line.
func MP3Args(bin, src, dst string, opts job.Options) ([]string, error) {
	var p mp3Params
	if err := decodeParams(opts, &p); err != nil {
		return nil, err
	}
	return []string{bin, "-i", src, "-y", "-c:a", "libmp3lame", "-q:a", fmt.Sprint(p.Quality), dst}, nil
}

// FLACArgs builds the lossless audio command line.
func FLACArgs(bin, src, dst string, _ job.Options) ([]string, error) {
	return []string{bin, "-i", src, "-y", "-c:a", "flac", dst}, nil
}
