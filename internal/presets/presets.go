// Package presets holds named option bundles keyed by destination MIME.
package presets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/itsthejuice/File-Converter/internal/job"
)

// Store maps destination MIME to preset name to options. It is read-only
// once loaded.
type Store struct {
	byMime map[string]map[string]job.Options
}

// Defaults returns the built-in presets.
func Defaults() *Store {
	return &Store{byMime: map[string]map[string]job.Options{
		"video/mp4": {
			"web_1080p":    {"crf": job.IntValue(23), "preset": job.StringValue("medium"), "scale": job.StringValue("1920:1080")},
			"web_720p":     {"crf": job.IntValue(23), "preset": job.StringValue("medium"), "scale": job.StringValue("1280:720")},
			"high_quality": {"crf": job.IntValue(18), "preset": job.StringValue("slow")},
		},
		"video/webm": {
			"web_1080p": {"crf": job.IntValue(30), "preset": job.StringValue("medium"), "scale": job.StringValue("1920:1080")},
		},
		"image/gif": {
			"gif_small":  {"fps": job.IntValue(12), "scale": job.StringValue("480:-1")},
			"gif_medium": {"fps": job.IntValue(15), "scale": job.StringValue("720:-1")},
		},
		"audio/mp3": {
			"standard": {"quality": job.IntValue(2)},
			"high":     {"quality": job.IntValue(0)},
		},
		// audio/mpeg is the sniffed spelling of mp3.
		"audio/mpeg": {
			"standard": {"quality": job.IntValue(2)},
			"high":     {"quality": job.IntValue(0)},
		},
	}}
}

type document struct {
	Presets map[string]map[string]map[string]any `toml:"presets"`
}

// LoadFile returns the defaults overlaid with the presets in path. Presets
// are added or replaced one name at a time, so a file that defines
// video/mp4 "mobile" keeps the built-in video/mp4 presets. A missing file
// yields the defaults.
func LoadFile(path string) (*Store, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read presets: %w", err)
	}
	if err := s.Merge(data); err != nil {
		return s, fmt.Errorf("presets %s: %w", path, err)
	}
	return s, nil
}

// Merge decodes a presets document and overlays it onto s.
func (s *Store) Merge(data []byte) error {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return err
	}
	for mime, named := range doc.Presets {
		for name, raw := range named {
			opts, err := job.OptionsFromMap(raw)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", mime, name, err)
			}
			s.Set(mime, name, opts)
		}
	}
	return nil
}

// Set adds or replaces one preset.
func (s *Store) Set(mime, name string, opts job.Options) {
	if s.byMime == nil {
		s.byMime = make(map[string]map[string]job.Options)
	}
	if s.byMime[mime] == nil {
		s.byMime[mime] = make(map[string]job.Options)
	}
	s.byMime[mime][name] = opts.Clone()
}

// Lookup returns a copy of the named preset for mime.
func (s *Store) Lookup(mime, name string) (job.Options, bool) {
	if s == nil {
		return nil, false
	}
	opts, ok := s.byMime[mime][name]
	if !ok {
		return nil, false
	}
	return opts.Clone(), true
}

// Names lists the presets defined for mime, sorted.
func (s *Store) Names(mime string) []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.byMime[mime]))
	for n := range s.byMime[mime] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MIMEs lists the destination types that have presets, sorted.
func (s *Store) MIMEs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.byMime))
	for m := range s.byMime {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
