// Package launchd schedules periodic kkfeed runs as a macOS launch agent.
package launchd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const (
	// DefaultLabel identifies the agent in the user's GUI domain.
	DefaultLabel = "com.kkfeed.run"
	// DefaultIntervalMinutes is how often the agent starts a run.
	DefaultIntervalMinutes = 30
)

var ErrUnsupported = errors.New("launchd is only available on macOS")

// InstallOptions config for creating/loading a launchd agent.
type InstallOptions struct {
	Label           string
	IntervalMinutes int
	ProgramPath     string   // absolute path to the kkfeed binary
	ProgramArgs     []string // args after ProgramPath
	WorkingDir      string
	StdOutPath      string
	StdErrPath      string
	PlistPath       string // optional custom plist path
}

func DefaultAgentPath(label string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), nil
}

// DefaultLogPath is where launchd sends the agent's stdout and stderr.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "kkfeed.launchd.log")
	}
	return filepath.Join(home, "Library", "Logs", "kkfeed", "launchd.log")
}

// withDefaults validates opt and fills in the interval and log paths.
func withDefaults(opt InstallOptions) (InstallOptions, error) {
	if strings.TrimSpace(opt.Label) == "" {
		return opt, errors.New("label required")
	}
	if strings.TrimSpace(opt.ProgramPath) == "" {
		return opt, errors.New("program path required")
	}
	if opt.IntervalMinutes <= 0 {
		opt.IntervalMinutes = DefaultIntervalMinutes
	}
	if opt.StdOutPath == "" {
		opt.StdOutPath = DefaultLogPath()
	}
	if opt.StdErrPath == "" {
		opt.StdErrPath = opt.StdOutPath
	}
	return opt, nil
}

type plistWriter struct {
	buf bytes.Buffer
}

func (w *plistWriter) key(k string) {
	w.buf.WriteString("    <key>")
	xml.EscapeText(&w.buf, []byte(k))
	w.buf.WriteString("</key>\n")
}

func (w *plistWriter) str(indent, s string) {
	w.buf.WriteString(indent + "<string>")
	xml.EscapeText(&w.buf, []byte(s))
	w.buf.WriteString("</string>\n")
}

// BuildPlist renders the agent definition. The job is a one-shot run started
// every IntervalMinutes, so it is not kept alive between runs.
func BuildPlist(opt InstallOptions) ([]byte, error) {
	opt, err := withDefaults(opt)
	if err != nil {
		return nil, err
	}

	w := &plistWriter{}
	w.buf.WriteString(xml.Header)
	w.buf.WriteString("<!DOCTYPE plist PUBLIC \"-//Apple//DTD PLIST 1.0//EN\" \"http://www.apple.com/DTDs/PropertyList-1.0.dtd\">\n")
	w.buf.WriteString("<plist version=\"1.0\">\n  <dict>\n")

	w.key("Label")
	w.str("    ", opt.Label)

	w.key("ProgramArguments")
	w.buf.WriteString("    <array>\n")
	w.str("      ", opt.ProgramPath)
	for _, a := range opt.ProgramArgs {
		w.str("      ", a)
	}
	w.buf.WriteString("    </array>\n")

	if opt.WorkingDir != "" {
		w.key("WorkingDirectory")
		w.str("    ", opt.WorkingDir)
	}

	w.key("StartInterval")
	w.buf.WriteString("    <integer>" + strconv.Itoa(opt.IntervalMinutes*60) + "</integer>\n")
	w.key("RunAtLoad")
	w.buf.WriteString("    <true/>\n")

	w.key("StandardOutPath")
	w.str("    ", opt.StdOutPath)
	w.key("StandardErrorPath")
	w.str("    ", opt.StdErrPath)

	w.buf.WriteString("  </dict>\n</plist>\n")
	return w.buf.Bytes(), nil
}

// Install writes the plist and loads it via launchctl.
func Install(opt InstallOptions) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", ErrUnsupported
	}
	opt, err := withDefaults(opt)
	if err != nil {
		return "", err
	}
	plistPath := opt.PlistPath
	if strings.TrimSpace(plistPath) == "" {
		plistPath, err = DefaultAgentPath(opt.Label)
		if err != nil {
			return "", err
		}
	}
	for _, dir := range []string{filepath.Dir(plistPath), filepath.Dir(opt.StdOutPath), filepath.Dir(opt.StdErrPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	data, err := BuildPlist(opt)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(plistPath, data, 0o644); err != nil {
		return "", err
	}

	lctl := launchctlPath()
	if lctl == "" {
		return plistPath, errors.New("launchctl not found in /bin, /usr/bin, or PATH")
	}

	domain := fmt.Sprintf("gui/%d", os.Getuid())
	if err := exec.Command(lctl, "bootstrap", domain, plistPath).Run(); err != nil {
		// older macOS only knows load -w
		if err2 := exec.Command(lctl, "load", "-w", plistPath).Run(); err2 != nil {
			return plistPath, fmt.Errorf("launchctl bootstrap/load failed: %v / %v", err, err2)
		}
	} else {
		_ = exec.Command(lctl, "enable", domain+"/"+opt.Label).Run()
	}
	return plistPath, nil
}

// Uninstall unloads and removes the plist.
func Uninstall(label string, plistPath string) error {
	if runtime.GOOS != "darwin" {
		return ErrUnsupported
	}
	if strings.TrimSpace(plistPath) == "" {
		var err error
		plistPath, err = DefaultAgentPath(label)
		if err != nil {
			return err
		}
	}
	lctl := launchctlPath()
	if lctl == "" {
		return errors.New("launchctl not found")
	}
	domain := fmt.Sprintf("gui/%d", os.Getuid())
	if err := exec.Command(lctl, "bootout", domain, plistPath).Run(); err != nil {
		_ = exec.Command(lctl, "unload", "-w", plistPath).Run()
	}
	if err := os.Remove(plistPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Status reports whether the agent is loaded, with launchctl's state line.
func Status(label string) (bool, string) {
	if runtime.GOOS != "darwin" || strings.TrimSpace(label) == "" {
		return false, "unsupported"
	}
	lctl := launchctlPath()
	if lctl == "" {
		return false, "launchctl not found"
	}
	domain := fmt.Sprintf("gui/%d", os.Getuid())
	out, err := exec.Command(lctl, "print", domain+"/"+label).CombinedOutput()
	if err != nil {
		return false, "not loaded"
	}
	for _, ln := range strings.Split(string(out), "\n") {
		if strings.Contains(ln, "state = ") {
			return true, strings.TrimSpace(ln)
		}
	}
	return true, "loaded"
}

func launchctlPath() string {
	for _, c := range []string{"/bin/launchctl", "/usr/bin/launchctl"} {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	if p, err := exec.LookPath("launchctl"); err == nil {
		return p
	}
	return ""
}

// ParseStartInterval reads the StartInterval seconds back out of plist data.
func ParseStartInterval(data []byte) (int, error) {
	s := string(data)
	i := strings.Index(s, "<key>StartInterval</key>")
	if i < 0 {
		return 0, errors.New("StartInterval not found")
	}
	sub := s[i:]
	open := strings.Index(sub, "<integer>")
	end := strings.Index(sub, "</integer>")
	if open < 0 || end < 0 || end <= open+len("<integer>") {
		return 0, errors.New("invalid integer tag")
	}
	return strconv.Atoi(strings.TrimSpace(sub[open+len("<integer>") : end]))
}

// ExtractStartInterval is ParseStartInterval over a plist file.
func ExtractStartInterval(plistPath string) (int, error) {
	b, err := os.ReadFile(plistPath)
	if err != nil {
		return 0, err
	}
	return ParseStartInterval(b)
}
