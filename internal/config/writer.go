package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kkfeed/internal/models"
)

// WriteConfig renders ac as a commented YAML file at path.
func WriteConfig(path string, ac AppConfig) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Rendered by hand so the file keeps its comments.
	var sb strings.Builder
	sb.WriteString("# kkfeed configuration\n")
	sb.WriteString("source:\n")
	sb.WriteString(fmt.Sprintf("  url: %q\n", ac.Source.URL))
	sb.WriteString(fmt.Sprintf("  timeout: %d # seconds\n", ac.Source.TimeoutSec))
	if strings.TrimSpace(ac.Source.UserAgent) != "" {
		sb.WriteString(fmt.Sprintf("  user_agent: %q\n", ac.Source.UserAgent))
	}

	sb.WriteString("output:\n")
	sb.WriteString(fmt.Sprintf("  dir: %q\n", ac.Output.Dir))
	sb.WriteString(fmt.Sprintf("  opinion: %q\n", ac.Output.Opinion))
	sb.WriteString(fmt.Sprintf("  world: %q\n", ac.Output.World))
	sb.WriteString(fmt.Sprintf("  print_prefix: %q # parts are <prefix>1.xml, <prefix>2.xml, ...\n", ac.Output.PrintPrefix))

	sb.WriteString("limits:\n")
	sb.WriteString(fmt.Sprintf("  single_cap: %d\n", ac.Limits.SingleCap))
	sb.WriteString(fmt.Sprintf("  print_max_items: %d # 0 keeps every print item\n", ac.Limits.PrintMaxItems))
	sb.WriteString(fmt.Sprintf("  print_chunk_size: %d\n", ac.Limits.PrintChunkSize))

	if len(ac.Categories) > 0 {
		sb.WriteString("categories:\n")
		for _, cat := range models.Categories() {
			patterns, ok := ac.Categories[cat]
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s:\n", cat))
			for _, p := range patterns {
				sb.WriteString(fmt.Sprintf("    - %q\n", p))
			}
		}
	}

	sb.WriteString(fmt.Sprintf("database_path: %q\n", ac.DatabasePath))
	if strings.TrimSpace(ac.LogFile) != "" {
		sb.WriteString(fmt.Sprintf("log_file: %q\n", ac.LogFile))
	}
	sb.WriteString(fmt.Sprintf("log_level: %q\n", ac.LogLevel))

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// BackupFile creates a backup of the specified file with a timestamp
func BackupFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	ts := time.Now().Format("20060102-150405")
	bak := path + ".bak-" + ts
	return bak, os.WriteFile(bak, b, 0o644)
}
