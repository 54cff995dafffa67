package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultProbeTimeout    = 60 * time.Second
	defaultDownloadTimeout = 20 * time.Minute
	socketTimeoutSeconds   = 30
)

// browser-like UA; some extractors refuse the default one.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Command runs a yt-dlp compatible binary as a subprocess. The fallback
// backend is a second Command with its own binary path and extra arguments.
type Command struct {
	name      string
	binary    string
	extraArgs []string
}

// NewCommand creates a Command backend. name is used in logs and state
// reporting, extraArgs are appended to every invocation.
func NewCommand(name, binary string, extraArgs []string) *Command {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Command{name: name, binary: binary, extraArgs: extraArgs}
}

// Name returns the backend's log name.
func (c *Command) Name() string {
	return c.name
}

// Probe retrieves media metadata without downloading.
func (c *Command) Probe(ctx context.Context, url string, opts Options) (*Metadata, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", fmt.Sprintf("%d", socketTimeoutSeconds),
		"--user-agent", userAgent,
	}
	if opts.CookieFile != "" {
		args = append(args, "--cookies", opts.CookieFile)
	}
	args = append(args, c.extraArgs...)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New("metadata fetch timed out")
		}
		return nil, fmt.Errorf("%s probe: %s", c.name, truncate(stderr.String(), 300))
	}

	var meta Metadata
	if err := json.Unmarshal(output, &meta); err != nil {
		return nil, fmt.Errorf("%s probe: parse metadata: %w", c.name, err)
	}
	return &meta, nil
}

// Download fetches the media according to opts. The returned Result carries
// the output path printed by the engine after post-processing, when found.
func (c *Command) Download(ctx context.Context, url string, opts Options) (*Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary, c.buildArgs(url, opts)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New("download timed out")
		}
		return nil, fmt.Errorf("%s download: %s", c.name, truncate(string(output), 400))
	}

	return &Result{Path: reportedPath(string(output))}, nil
}

// buildArgs assembles the invocation from Options.
func (c *Command) buildArgs(url string, opts Options) []string {
	retries := opts.Retries
	if retries <= 0 {
		retries = 5
	}
	fragRetries := opts.FragmentRetries
	if fragRetries <= 0 {
		fragRetries = 10
	}

	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--no-cache-dir",
		"--geo-bypass",
		"--retries", fmt.Sprintf("%d", retries),
		"--fragment-retries", fmt.Sprintf("%d", fragRetries),
		"--concurrent-fragments", "5",
		"--socket-timeout", fmt.Sprintf("%d", socketTimeoutSeconds),
		"--user-agent", userAgent,
		"--print", "after_move:filepath",
		"--no-simulate",
		"-o", opts.OutputTemplate,
	}
	if opts.FormatExpr != "" {
		args = append(args, "-f", opts.FormatExpr)
	}
	if opts.MergeFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeFormat)
	}
	if opts.ExtractAudio {
		args = append(args, "-x", "--audio-format", opts.AudioFormat)
		if opts.AudioBitrate != "" {
			args = append(args, "--audio-quality", opts.AudioBitrate)
		}
	}
	if opts.CookieFile != "" {
		args = append(args, "--cookies", opts.CookieFile)
	}
	args = append(args, c.extraArgs...)
	args = append(args, url)
	return args
}

// reportedPath extracts the printed output path from engine output: the
// last non-progress line that names an existing file.
func reportedPath(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		if !strings.Contains(line, string(filepath.Separator)) {
			continue
		}
		if _, err := os.Stat(line); err == nil {
			return line
		}
	}
	return ""
}

// truncate shortens engine output for error messages.
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
