package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

const (
	// DefaultAttachmentsDir and DefaultArchiveDir are used when a folder is left blank.
	DefaultAttachmentsDir = "D:/Attachments"
	DefaultArchiveDir     = "D:/ZipResult"
)

// Config captures all options required for one archive run.
type Config struct {
	AttachmentsDir string
	ArchiveDir     string
	IDs            string
	IDsFile        string
	MaxArchiveSize int64
	LogLevel       string
	LogFormat      string
	LogDir         string
}

// File is the optional TOML settings file. Every field is optional; set
// values replace the built-in defaults and are themselves overridden by flags.
type File struct {
	AttachmentsDir string      `toml:"attachments_dir"`
	ArchiveDir     string      `toml:"archive_dir"`
	MaxArchiveSize string      `toml:"max_archive_size"`
	Logging        FileLogging `toml:"logging"`
}

type FileLogging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("config", "", "Optional TOML file with default settings")
	flags.String("attachments", DefaultAttachmentsDir, "Root folder of the sharded attachment store")
	flags.String("archive-dir", DefaultArchiveDir, "Folder the zip archive is written to")
	flags.String("ids", "", "Attachment ids separated by commas, spaces or newlines")
	flags.String("ids-file", "", "Read attachment ids from a file (- for stdin)")
	flags.String("max-archive-size", "", "Refuse to archive more than this many source bytes, e.g. 2GB (empty for no limit)")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-format", "text", "Log output format: text, json")
	flags.String("log-dir", "", "Also write logs to a timestamped file in this folder")

	return cmd.MarkFlagFilename("config", "toml")
}

// LoadConfig merges defaults, the optional TOML file and explicitly set flags
// into a validated Config.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	cfg := Config{
		AttachmentsDir: DefaultAttachmentsDir,
		ArchiveDir:     DefaultArchiveDir,
		LogLevel:       "info",
		LogFormat:      "text",
	}

	configPath, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}
	if configPath != "" {
		file, err := ReadFile(configPath)
		if err != nil {
			return Config{}, err
		}
		if err := cfg.merge(file); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", configPath, err)
		}
	}

	stringFlags := []struct {
		name   string
		target *string
	}{
		{"attachments", &cfg.AttachmentsDir},
		{"archive-dir", &cfg.ArchiveDir},
		{"ids", &cfg.IDs},
		{"ids-file", &cfg.IDsFile},
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
		{"log-dir", &cfg.LogDir},
	}
	for _, f := range stringFlags {
		if !flags.Changed(f.name) {
			continue
		}
		value, err := flags.GetString(f.name)
		if err != nil {
			return Config{}, err
		}
		*f.target = value
	}

	if flags.Changed("max-archive-size") {
		value, err := flags.GetString("max-archive-size")
		if err != nil {
			return Config{}, err
		}
		size, err := parseSize(value)
		if err != nil {
			return Config{}, fmt.Errorf("--max-archive-size: %w", err)
		}
		cfg.MaxArchiveSize = size
	}

	if strings.TrimSpace(cfg.AttachmentsDir) == "" {
		cfg.AttachmentsDir = DefaultAttachmentsDir
	}
	if strings.TrimSpace(cfg.ArchiveDir) == "" {
		cfg.ArchiveDir = DefaultArchiveDir
	}
	cfg.AttachmentsDir = filepath.Clean(cfg.AttachmentsDir)
	cfg.ArchiveDir = filepath.Clean(cfg.ArchiveDir)

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ReadFile decodes a TOML settings file.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}

	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("parse config: %w", err)
	}
	return file, nil
}

func (c *Config) merge(file File) error {
	if file.AttachmentsDir != "" {
		c.AttachmentsDir = file.AttachmentsDir
	}
	if file.ArchiveDir != "" {
		c.ArchiveDir = file.ArchiveDir
	}
	if file.MaxArchiveSize != "" {
		size, err := parseSize(file.MaxArchiveSize)
		if err != nil {
			return fmt.Errorf("invalid max_archive_size: %w", err)
		}
		c.MaxArchiveSize = size
	}
	if file.Logging.Level != "" {
		c.LogLevel = file.Logging.Level
	}
	if file.Logging.Format != "" {
		c.LogFormat = file.Logging.Format
	}
	if file.Logging.Dir != "" {
		c.LogDir = file.Logging.Dir
	}
	return nil
}

func parseSize(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	size, err := units.FromHumanSize(value)
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, fmt.Errorf("size must not be negative")
	}
	return size, nil
}

func validateConfig(cfg Config) error {
	if cfg.MaxArchiveSize < 0 {
		return fmt.Errorf("max archive size must not be negative")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid --log-format: %s", cfg.LogFormat)
	}

	return nil
}
