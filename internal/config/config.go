// Package config loads the converter settings from TOML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config holds every setting of the CLI and the watch daemon.
type Config struct {
	PluginDir         string   `toml:"plugin_dir" default:"~/.local/share/file-converter/plugins"`
	PresetsFile       string   `toml:"presets_file" default:"~/.config/file-converter/presets.toml"`
	OutputDir         string   `toml:"output_dir"`
	StateDir          string   `toml:"state_dir" default:"~/.local/state/file-converter" validate:"required"`
	LogLevel          string   `toml:"log_level" default:"info" validate:"oneof=debug info warn error"`
	LogFormat         string   `toml:"log_format" default:"console" validate:"oneof=console json"`
	FFprobeBinary     string   `toml:"ffprobe_binary" default:"ffprobe" validate:"required"`
	ProbeTimeout      int      `toml:"probe_timeout" default:"5" validate:"min=1,max=300"`
	BuiltinConverters []string `toml:"builtin_converters" default:"[\"ffmpeg\",\"imagemagick\"]"`
	DisabledPlugins   []string `toml:"disabled_plugins"`

	Watch WatchConfig `toml:"watch"`
}

// WatchConfig drives fileconvd.
type WatchConfig struct {
	Dirs          []string `toml:"dirs" validate:"dive,required"`
	TargetMIME    string   `toml:"target_mime" default:"image/heic" validate:"required,contains=/"`
	Extensions    []string `toml:"extensions"`
	StableSeconds int      `toml:"stable_seconds" default:"2" validate:"min=0,max=3600"`
	OutputDir     string   `toml:"output_dir"`
	Recursive     bool     `toml:"recursive" default:"true"`
}

var validate = validator.New()

// DefaultPath is $XDG_CONFIG_HOME/file-converter/config.toml, falling back
// to ~/.config.
func DefaultPath() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); strings.TrimSpace(base) != "" {
		return filepath.Join(base, "file-converter", "config.toml")
	}
	p, err := ExpandPath("~/.config/file-converter/config.toml")
	if err != nil {
		return "config.toml"
	}
	return p
}

// Default returns a config populated from struct defaults only.
func Default() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	return cfg
}

// Load reads path (DefaultPath when empty), applies environment overrides,
// expands paths and validates the result. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ProbeTimeoutDuration converts ProbeTimeout seconds.
func (c *Config) ProbeTimeoutDuration() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Second
}

// HistoryDB is the sqlite file holding job history.
func (c *Config) HistoryDB() string { return filepath.Join(c.StateDir, "history.db") }

// LockFile guards against two batch runs or daemons sharing the state dir.
func (c *Config) LockFile() string { return filepath.Join(c.StateDir, "fileconv.lock") }

// LogFile is where the daemon writes its log.
func (c *Config) LogFile() string { return filepath.Join(c.StateDir, "fileconvd.log") }

// EnsureStateDir creates StateDir.
func (c *Config) EnsureStateDir() error {
	if err := os.MkdirAll(c.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir %q: %w", c.StateDir, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.PluginDir = getEnv("FC_PLUGIN_DIR", c.PluginDir)
	c.OutputDir = getEnv("FC_OUTPUT_DIR", c.OutputDir)
	c.StateDir = getEnv("FC_STATE_DIR", c.StateDir)
	c.LogLevel = strings.ToLower(getEnv("FC_LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(getEnv("FC_LOG_FORMAT", c.LogFormat))
	c.FFprobeBinary = getEnv("FC_FFPROBE", c.FFprobeBinary)
	c.ProbeTimeout = getEnvInt("FC_PROBE_TIMEOUT", c.ProbeTimeout)
	c.BuiltinConverters = getEnvList("BUILTIN_CONVERTERS", c.BuiltinConverters)
	c.DisabledPlugins = getEnvList("FC_DISABLED_PLUGINS", c.DisabledPlugins)
	c.Watch.Dirs = getEnvList("FC_WATCH_DIRS", c.Watch.Dirs)
	c.Watch.TargetMIME = getEnv("FC_WATCH_TARGET", c.Watch.TargetMIME)
	c.Watch.Recursive = getEnvBool("FC_WATCH_RECURSIVE", c.Watch.Recursive)
}

func (c *Config) normalize() error {
	for _, p := range []*string{&c.PluginDir, &c.PresetsFile, &c.OutputDir, &c.StateDir, &c.Watch.OutputDir} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	for i, dir := range c.Watch.Dirs {
		expanded, err := ExpandPath(dir)
		if err != nil {
			return err
		}
		c.Watch.Dirs[i] = expanded
	}
	for i, ext := range c.Watch.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Watch.Extensions[i] = ext
	}
	return nil
}

// ExpandPath resolves a leading ~ and makes p absolute. Empty stays empty.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if p == "~" {
			p = home
		} else if p[1] == '/' {
			p = filepath.Join(home, p[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvList splits a comma separated variable. An unset variable keeps def.
func getEnvList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return splitAndTrim(v)
}

func splitAndTrim(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
