package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"mert-convert/internal/encoder"
	"mert-convert/internal/runstore"
)

const (
	DefaultMaxKB       = 100
	DefaultQuality     = 100
	DefaultOutputDir   = "./converted-media"
	DefaultWorkerRatio = 0.75
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
)

// Settings is the on-disk TOML document. Workers of 0 means "derive from the
// machine's parallelism".
type Settings struct {
	MaxKB        int     `toml:"max_kb" json:"max_kb"`
	Quality      int     `toml:"quality" json:"quality"`
	OutputDir    string  `toml:"output_dir" json:"output_dir"`
	Workers      int     `toml:"workers" json:"workers"`
	WorkerRatio  float64 `toml:"worker_ratio" json:"worker_ratio"`
	ImageEncoder string  `toml:"image_encoder" json:"image_encoder"`
	Logging      Logging `toml:"logging" json:"logging"`
}

type Logging struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	File   string `toml:"file" json:"file,omitempty"`
}

// Overrides carries per-invocation values. Zero values and nil pointers keep
// the stored setting.
type Overrides struct {
	MaxKB        int
	Quality      *int
	OutputDir    string
	Workers      int
	ImageEncoder string
	LogLevel     string
	LogFile      string
}

func Default() Settings {
	return Settings{
		MaxKB:        DefaultMaxKB,
		Quality:      DefaultQuality,
		OutputDir:    DefaultOutputDir,
		WorkerRatio:  DefaultWorkerRatio,
		ImageEncoder: encoder.ImageEncoderNative,
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// DefaultPath is <user config dir>/mert-convert/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(dir) == "" {
		return "mert-convert.toml"
	}
	return filepath.Join(dir, "mert-convert", "config.toml")
}

// Load reads path on top of Default(). A missing file is not an error; the
// returned bool reports whether the file existed.
func Load(path string) (Settings, string, bool, error) {
	s := Default()
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultPath()
	}

	exists := true
	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return Settings{}, "", false, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&s); err != nil {
			return Settings{}, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	s.normalize()
	if err := s.Validate(); err != nil {
		return Settings{}, "", false, fmt.Errorf("config %s: %w", resolved, err)
	}
	return s, resolved, exists, nil
}

func Save(path string, s Settings) (string, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultPath()
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	if err := runstore.WriteBytes(resolved, buf.Bytes()); err != nil {
		return "", err
	}
	return resolved, nil
}

func (s *Settings) normalize() {
	def := Default()
	s.OutputDir = strings.TrimSpace(s.OutputDir)
	if s.OutputDir == "" {
		s.OutputDir = def.OutputDir
	}
	if s.WorkerRatio == 0 {
		s.WorkerRatio = def.WorkerRatio
	}
	s.ImageEncoder = strings.ToLower(strings.TrimSpace(s.ImageEncoder))
	if s.ImageEncoder == "" {
		s.ImageEncoder = def.ImageEncoder
	}
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	if s.Logging.Level == "" {
		s.Logging.Level = def.Logging.Level
	}
	s.Logging.Format = strings.ToLower(strings.TrimSpace(s.Logging.Format))
	if s.Logging.Format == "" {
		s.Logging.Format = def.Logging.Format
	}
	s.Logging.File = strings.TrimSpace(s.Logging.File)
}

func (s Settings) Validate() error {
	if s.MaxKB <= 0 {
		return errors.New("max_kb must be > 0")
	}
	if s.Quality < 0 || s.Quality > 100 {
		return errors.New("quality must be between 0 and 100")
	}
	if s.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	if s.WorkerRatio <= 0 || s.WorkerRatio > 1 {
		return errors.New("worker_ratio must be in (0, 1]")
	}
	if !knownEncoder(s.ImageEncoder) {
		return fmt.Errorf("image_encoder must be one of %s", strings.Join(encoder.ImageEncoderNames(), ", "))
	}
	switch s.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", s.Logging.Level)
	}
	switch s.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", s.Logging.Format)
	}
	return nil
}

// Apply layers overrides on top of s and validates the result.
func (s Settings) Apply(o Overrides) (Settings, error) {
	if o.MaxKB < 0 {
		return Settings{}, errors.New("max-kb must be > 0")
	}
	if o.Workers < 0 {
		return Settings{}, errors.New("workers must be >= 0")
	}
	out := s
	out.MaxKB = firstPositive(o.MaxKB, s.MaxKB, DefaultMaxKB)
	out.Workers = firstPositive(o.Workers, s.Workers)
	if o.Quality != nil {
		out.Quality = *o.Quality
	}
	if v := strings.TrimSpace(o.OutputDir); v != "" {
		out.OutputDir = v
	}
	if v := strings.TrimSpace(o.ImageEncoder); v != "" {
		out.ImageEncoder = v
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		out.Logging.Level = v
	}
	if v := strings.TrimSpace(o.LogFile); v != "" {
		out.Logging.File = v
	}
	out.normalize()
	if err := out.Validate(); err != nil {
		return Settings{}, err
	}
	return out, nil
}

func knownEncoder(name string) bool {
	for _, n := range encoder.ImageEncoderNames() {
		if n == name {
			return true
		}
	}
	return false
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
