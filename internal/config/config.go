package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"kkfeed/internal/models"
)

const (
	DefaultSourceURL   = "https://www.kalerkantho.com/rss.xml"
	DefaultPrintPrefix = "daily_kalerkantho_part"
)

type ConfigLoad func() (AppConfig, error)

// AppConfigLoader returns a loader reading path, or the default location when path is empty.
func AppConfigLoader(path string) ConfigLoad {
	return func() (AppConfig, error) {
		return LoadAppConfig(path)
	}
}

type SourceConfig struct {
	URL        string
	TimeoutSec int
	UserAgent  string
}

type OutputConfig struct {
	Dir         string
	Opinion     string
	World       string
	PrintPrefix string
}

type LimitsConfig struct {
	SingleCap      int
	PrintMaxItems  int // 0 keeps every print item
	PrintChunkSize int
}

// AppConfig carries everything a run needs.
type AppConfig struct {
	Source     SourceConfig
	Output     OutputConfig
	Limits     LimitsConfig
	Categories map[models.Category][]string // overrides of the built-in URL patterns

	DatabasePath string
	LogFile      string
	LogLevel     string
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		Source: SourceConfig{
			URL:        DefaultSourceURL,
			TimeoutSec: 30,
		},
		Output: OutputConfig{
			Dir:         ".",
			Opinion:     "opinion.xml",
			World:       "world.xml",
			PrintPrefix: DefaultPrintPrefix,
		},
		Limits: LimitsConfig{
			SingleCap:      500,
			PrintMaxItems:  0,
			PrintChunkSize: 100,
		},
		DatabasePath: "kkfeed.db",
		LogLevel:     "info",
	}
}

// DefaultConfigPath is ~/.config/kkfeed/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kkfeed", "config.yaml"), nil
}

// LoadAppConfig reads the YAML config at path (default location when empty).
// A missing file yields the defaults. A file that cannot be parsed yields the
// defaults together with the parse error.
func LoadAppConfig(path string) (AppConfig, error) {
	ac := Default()
	if strings.TrimSpace(path) == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return ac, nil
		}
		path = p
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ac, nil
		}
		return ac, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return ac, fmt.Errorf("parse %s: %w", path, err)
	}

	if src, ok := raw["source"].(map[string]any); ok {
		if v, ok := src["url"].(string); ok && strings.TrimSpace(v) != "" {
			ac.Source.URL = strings.TrimSpace(v)
		}
		if v, ok := intValue(src["timeout"]); ok && v > 0 {
			ac.Source.TimeoutSec = v
		}
		if v, ok := src["user_agent"].(string); ok {
			ac.Source.UserAgent = strings.TrimSpace(v)
		}
	}
	if out, ok := raw["output"].(map[string]any); ok {
		setString(&ac.Output.Dir, out["dir"])
		setString(&ac.Output.Opinion, out["opinion"])
		setString(&ac.Output.World, out["world"])
		setString(&ac.Output.PrintPrefix, out["print_prefix"])
	}
	if lim, ok := raw["limits"].(map[string]any); ok {
		if v, ok := intValue(lim["single_cap"]); ok && v > 0 {
			ac.Limits.SingleCap = v
		}
		if v, ok := intValue(lim["print_max_items"]); ok && v >= 0 {
			ac.Limits.PrintMaxItems = v
		}
		if v, ok := intValue(lim["print_chunk_size"]); ok && v > 0 {
			ac.Limits.PrintChunkSize = v
		}
	}
	if cats, ok := raw["categories"].(map[string]any); ok {
		for name, v := range cats {
			cat, ok := models.ParseCategory(name)
			if !ok {
				continue
			}
			list, ok := v.([]any)
			if !ok {
				continue
			}
			var patterns []string
			for _, it := range list {
				if s, ok := it.(string); ok && s != "" {
					patterns = append(patterns, s)
				}
			}
			if len(patterns) > 0 {
				if ac.Categories == nil {
					ac.Categories = map[models.Category][]string{}
				}
				ac.Categories[cat] = patterns
			}
		}
	}
	setString(&ac.DatabasePath, raw["database_path"])
	setString(&ac.LogFile, raw["log_file"])
	setString(&ac.LogLevel, raw["log_level"])
	return ac, nil
}

func setString(dst *string, v any) {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		*dst = strings.TrimSpace(s)
	}
}

// yaml.v3 decodes plain integers as int, but accept floats too.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

// ExpandPath expands leading ~ and environment variables in a filesystem path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}

// resolve places relative paths under the output directory.
func (c AppConfig) resolve(p string) string {
	p = ExpandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ExpandPath(c.Output.Dir), p)
}

// DocumentPath returns the single-document path of c, or "" for the print store.
func (c AppConfig) DocumentPath(cat models.Category) string {
	switch cat {
	case models.Opinion:
		return c.resolve(c.Output.Opinion)
	case models.World:
		return c.resolve(c.Output.World)
	}
	return ""
}

// PrintPrefix is the path prefix of the numbered print documents.
func (c AppConfig) PrintPrefix() string {
	return c.resolve(c.Output.PrintPrefix)
}

func (c AppConfig) DBPath() string {
	return c.resolve(c.DatabasePath)
}

// LogFilePath returns the configured log file or the platform default.
func (c AppConfig) LogFilePath() string {
	if strings.TrimSpace(c.LogFile) != "" {
		return ExpandPath(c.LogFile)
	}
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Logs", "kkfeed", "kkfeed.log")
		}
	}
	return c.resolve("kkfeed.log")
}
