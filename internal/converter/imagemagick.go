package converter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/itsthejuice/File-Converter/internal/deps"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/runner"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// ImageMagick converts still images with magick, using heif-enc for HEIC
// output when it is installed. EXIF capture time is carried over with
// exiftool when available.
type ImageMagick struct {
	Magick   string
	HeifEnc  string
	ExifTool string
}

type imageParams struct {
	Quality      int `mapstructure:"quality" default:"85"`
	KeepMetadata int `mapstructure:"keep_metadata" default:"1"`
}

func NewImageMagick() *ImageMagick {
	return &ImageMagick{Magick: "magick", HeifEnc: "heif-enc", ExifTool: "exiftool"}
}

func (c *ImageMagick) Manifest() Manifest {
	return Manifest{
		Name:        "imagemagick",
		Version:     "1.0.0",
		Entry:       BuiltinPrefix + "imagemagick",
		Description: "Still image conversion with ImageMagick",
		Capabilities: []Capability{{
			Inputs:  []string{"image/*"},
			Outputs: []string{"image/png", "image/jpeg", "image/webp", "image/heic"},
			Params: map[string]ParamSpec{
				"quality": {
					Kind: ParamInt, Min: intp(1), Max: intp(100), Default: 85,
					Description: "Encoder quality for lossy formats",
				},
				"keep_metadata": {
					Kind: ParamInt, Min: intp(0), Max: intp(1), Default: 1,
					Description: "Copy EXIF metadata to the output when exiftool is installed",
				},
			},
		}},
		ToolRequires: []string{c.Magick},
	}
}

func (c *ImageMagick) Available() bool {
	return deps.Have(c.Magick)
}

func (c *ImageMagick) Capabilities() []Capability {
	return c.Manifest().Capabilities
}

func (c *ImageMagick) Plan(srcMime, dstMime string) (PlanInfo, error) {
	switch dstMime {
	case "image/png":
		return PlanInfo{Cost: 1.0, Lossiness: Lossless}, nil
	case "image/jpeg", "image/webp", "image/heic":
		return PlanInfo{Cost: 1.0, Lossiness: Lossy}, nil
	}
	return PlanInfo{}, fmt.Errorf("unsupported destination %s", dstMime)
}

func (c *ImageMagick) Run(ctx context.Context, srcPath, dstPath, dstMime string, opts job.Options, onLine runner.LineFunc) error {
	args, err := c.Args(srcPath, dstPath, dstMime, opts)
	if err != nil {
		return err
	}
	emit(onLine, "source "+c.describeCaptureTime(srcPath))

	if err := runner.Run(ctx, args, onLine, ""); err != nil {
		return err
	}

	var p imageParams
	if err := decodeParams(opts, &p); err != nil {
		return err
	}
	if p.KeepMetadata == 0 {
		return nil
	}
	if !deps.Have(c.ExifTool) {
		emit(onLine, "exiftool not installed, metadata not copied")
		return nil
	}
	if err := runner.Run(ctx, []string{c.ExifTool, "-TagsFromFile", srcPath, "-all:all", "-overwrite_original", dstPath}, onLine, ""); err != nil {
		// the image itself is fine, only the metadata copy failed
		emit(onLine, fmt.Sprintf("metadata copy failed: %v", err))
		return nil
	}
	emit(onLine, "output "+c.describeCaptureTime(dstPath))
	return nil
}

// Args builds the encoder command line for dstMime.
func (c *ImageMagick) Args(srcPath, dstPath, dstMime string, opts job.Options) ([]string, error) {
	var p imageParams
	if err := decodeParams(opts, &p); err != nil {
		return nil, err
	}
	q := fmt.Sprint(p.Quality)

	if dstMime == "image/heic" && c.HeifEnc != "" && deps.Have(c.HeifEnc) {
		return []string{c.HeifEnc, "-q", q, "-o", dstPath, srcPath}, nil
	}
	switch dstMime {
	case "image/png":
		return []string{c.Magick, srcPath, dstPath}, nil
	case "image/jpeg", "image/webp", "image/heic":
		return []string{c.Magick, srcPath, "-quality", q, dstPath}, nil
	}
	return nil, fmt.Errorf("imagemagick: unsupported destination %s", dstMime)
}

// CaptureTime reads EXIF DateTimeOriginal from path.
func CaptureTime(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return "", err
	}
	dt, err := x.DateTime()
	if err != nil {
		return "", err
	}
	return dt.Format(exifTimeLayout), nil
}

// describeCaptureTime prefers goexif and falls back to exiftool for
// containers goexif cannot parse.
func (c *ImageMagick) describeCaptureTime(path string) string {
	dt, err := CaptureTime(path)
	if err != nil {
		if out, lookErr := exec.LookPath(c.ExifTool); c.ExifTool != "" && lookErr == nil {
			raw, cmdErr := exec.Command(out, "-s", "-s", "-s", "-DateTimeOriginal", path).Output()
			if v := strings.TrimSpace(string(raw)); cmdErr == nil && v != "" {
				return "DateTimeOriginal: " + v
			}
		}
		return "DateTimeOriginal: none"
	}
	return "DateTimeOriginal: " + dt
}

func emit(onLine runner.LineFunc, line string) {
	if onLine != nil {
		onLine(line)
	}
}
