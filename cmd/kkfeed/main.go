package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"kkfeed/internal/config"
	"kkfeed/internal/ingest"
	"kkfeed/internal/launchd"
	"kkfeed/internal/list"
	"kkfeed/internal/models"
	"kkfeed/internal/server"
	"kkfeed/internal/tui"
	"kkfeed/internal/version"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "kkfeed",
		Usage:   "Split the Kaler Kantho feed into opinion, world and print-edition RSS documents",
		Version: version.Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to config.yaml (default ~/.config/kkfeed/config.yaml)"},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Fetch the feed once and update the category documents",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "log-file", Usage: "Path to the run log file"},
					&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not print the run summary"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					path, err := configPath(c)
					if err != nil {
						return err
					}
					opts := ingest.Options{
						LogFile:  c.String("log-file"),
						LogLevel: c.String("log-level"),
					}
					report, runErr := ingest.Run(ctx, opts, config.AppConfigLoader(path))
					if !c.Bool("quiet") {
						printReport(out, report)
					}
					return runErr
				},
			},
			{
				Name:  "init",
				Usage: "Write a default configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing config (a backup is kept)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					path, err := configPath(c)
					if err != nil {
						return err
					}
					return initConfig(out, path, c.Bool("force"))
				},
			},
			{
				Name:  "list",
				Usage: "List the items of one store",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "opinion, world or print", Value: string(models.Opinion)},
					&cli.IntFlag{Name: "limit", Usage: "Show at most this many items (0 for all)", Value: 20},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cat, ok := models.ParseCategory(c.String("category"))
					if !ok {
						return fmt.Errorf("unknown category %q", c.String("category"))
					}
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return list.Run(ctx, cfg, cat, c.Int("limit"))
				},
			},
			{
				Name:  "history",
				Usage: "Show recent runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Number of runs to show", Value: 10},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return list.History(ctx, cfg, c.Int("limit"))
				},
			},
			{
				Name:  "browse",
				Usage: "Browse the stores in a terminal UI",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return tui.Run(ctx, cfg)
				},
			},
			{
				Name:  "server",
				Usage: "Run MCP server on stdio",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return server.Run(ctx, cfg)
				},
			},
			{
				Name:  "daemon",
				Usage: "Manage the launchd agent that runs kkfeed periodically (macOS)",
				Commands: []*cli.Command{
					{
						Name:  "install",
						Usage: "Install and load the launchd agent",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "label", Value: launchd.DefaultLabel, Usage: "launchd label"},
							&cli.IntFlag{Name: "interval-minutes", Value: launchd.DefaultIntervalMinutes, Usage: "interval minutes"},
							&cli.StringFlag{Name: "log-file", Usage: "run log file path"},
							&cli.StringFlag{Name: "plist", Usage: "custom plist path (default ~/Library/LaunchAgents/<label>.plist)"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							exe, _ := os.Executable()
							if strings.TrimSpace(exe) == "" {
								return errors.New("cannot discover program path")
							}
							path, err := configPath(c)
							if err != nil {
								return err
							}
							wd, err := os.Getwd()
							if err != nil {
								return err
							}
							opt := launchd.InstallOptions{
								Label:           c.String("label"),
								IntervalMinutes: c.Int("interval-minutes"),
								ProgramPath:     exe,
								ProgramArgs:     runArgs(path, c.String("log-file")),
								WorkingDir:      wd,
								PlistPath:       c.String("plist"),
							}
							plist, err := launchd.Install(opt)
							if err != nil {
								return err
							}
							fmt.Fprintf(out, "launchd agent installed and loaded: %s\n", plist)
							return nil
						},
					},
					{
						Name:  "uninstall",
						Usage: "Unload and remove the launchd agent",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "label", Value: launchd.DefaultLabel, Usage: "launchd label"},
							&cli.StringFlag{Name: "plist", Usage: "path to plist (default ~/Library/LaunchAgents/<label>.plist)"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							if err := launchd.Uninstall(c.String("label"), c.String("plist")); err != nil {
								return err
							}
							fmt.Fprintln(out, "launchd agent unloaded and removed")
							return nil
						},
					},
					{
						Name:  "status",
						Usage: "Show whether the launchd agent is loaded",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "label", Value: launchd.DefaultLabel, Usage: "launchd label"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							label := c.String("label")
							loaded, state := launchd.Status(label)
							fmt.Fprintf(out, "%s: %s\n", label, state)
							if !loaded {
								return nil
							}
							if plist, err := launchd.DefaultAgentPath(label); err == nil {
								if secs, err := launchd.ExtractStartInterval(plist); err == nil {
									fmt.Fprintf(out, "interval: %d minutes\n", secs/60)
								}
							}
							return nil
						},
					},
				},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Fprintln(out, version.GetVersion())
					return nil
				},
			},
		},
	}
}

// configPath returns the --config value or the default location.
func configPath(c *cli.Command) (string, error) {
	if p := strings.TrimSpace(c.String("config")); p != "" {
		return filepath.Abs(config.ExpandPath(p))
	}
	return config.DefaultConfigPath()
}

// loadConfig is used by the read-only commands. An unreadable config file
// falls back to defaults with a warning, like a run does.
func loadConfig(c *cli.Command) (config.AppConfig, error) {
	path, err := configPath(c)
	if err != nil {
		return config.AppConfig{}, err
	}
	cfg, err := config.LoadAppConfig(path)
	if err != nil {
		log.Printf("warning: %v (using defaults)", err)
	}
	return cfg, nil
}

func runArgs(configPath, logFile string) []string {
	args := []string{"--config", configPath, "run", "--quiet"}
	if v := strings.TrimSpace(logFile); v != "" {
		args = append(args, "--log-file", v)
	}
	return args
}

func initConfig(out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		bak, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("backup existing config: %w", err)
		}
		fmt.Fprintf(out, "Existing config backed up to %s\n", bak)
	}
	if err := config.WriteConfig(path, config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(out, "Config written to %s\n", path)
	return nil
}

func printReport(w io.Writer, r ingest.Report) {
	fmt.Fprintf(w, "Fetched %d entries\n", r.Fetched)
	for _, c := range r.Categories {
		status := "ok"
		if c.Failed() {
			status = "FAILED"
		}
		s := c.Stats
		fmt.Fprintf(w, "%-8s %-6s items=%d inserted=%d updated=%d unchanged=%d skipped=%d evicted=%d",
			c.Category, status, c.Items, s.Inserted, s.Updated, s.Unchanged, s.Skipped, s.Evicted)
		if len(c.Pruned) > 0 {
			fmt.Fprintf(w, " pruned=%d", len(c.Pruned))
		}
		fmt.Fprintln(w)
	}
	for _, f := range r.AllFailures() {
		fmt.Fprintf(w, "  %s\n", f.Error())
	}
}
