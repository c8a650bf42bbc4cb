package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Iron-Ham/devtop/internal/config"
	"github.com/Iron-Ham/devtop/internal/logging"
	"github.com/Iron-Ham/devtop/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View devtop logs",
	Long: `View and filter the devtop log file.

Examples:
  # Show the last 50 entries
  devtop logs

  # Follow the log as it is written
  devtop logs -f

  # Only warnings and errors from the last hour
  devtop logs --level warn --since 1h

  # Entries from one component
  devtop logs --component containers`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsComponent string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by component (engine, cwd, containers, proclist, monitor)")
}

// logEntry represents a parsed JSON log line
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	PID       int            `json:"pid,omitempty"`
	Extra     map[string]any `json:"-"` // Captures additional fields
}

// UnmarshalJSON implements custom unmarshaling to capture extra fields
func (e *logEntry) UnmarshalJSON(data []byte) error {
	// First, unmarshal known fields using a type alias to avoid recursion
	type Alias logEntry
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Then unmarshal all fields to capture extras
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	// Remove known fields, keep the rest as extra
	for _, known := range []string{"time", "level", "msg", "component", "pid"} {
		delete(all, known)
	}

	if len(all) > 0 {
		e.Extra = all
	}

	return nil
}

// logFilter holds the parsed filter flags.
type logFilter struct {
	minLevel  int
	since     time.Time
	grep      *regexp.Regexp
	component string
}

// levelStyle returns the style for a log level
func levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return styles.Muted
	case logging.LevelInfo:
		return lipgloss.NewStyle().Foreground(styles.CategoryWebColor)
	case logging.LevelWarn:
		return styles.Warning
	case logging.LevelError:
		return styles.Error
	default:
		return styles.Text
	}
}

// levelPriority returns the priority of a log level for filtering
func levelPriority(level string) int {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return 0
	case logging.LevelInfo:
		return 1
	case logging.LevelWarn:
		return 2
	case logging.LevelError:
		return 3
	default:
		return -1
	}
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(entry *logEntry) string {
	var sb strings.Builder

	sb.WriteString(styles.Muted.Render("[" + entry.Time.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	sb.WriteString(levelStyle(entry.Level).Render("[" + strings.ToUpper(entry.Level) + "]"))
	if entry.Component != "" {
		sb.WriteString(" ")
		sb.WriteString(styles.Secondary.Render(entry.Component + ":"))
	}
	sb.WriteString(" ")
	sb.WriteString(entry.Msg)

	if entry.PID > 0 {
		sb.WriteString(" ")
		sb.WriteString(styles.Primary.Render("pid="))
		sb.WriteString(fmt.Sprintf("%d", entry.PID))
	}

	// Extra fields, in a stable order
	keys := make([]string, 0, len(entry.Extra))
	for key := range entry.Extra {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		sb.WriteString(" ")
		sb.WriteString(styles.Primary.Render(key + "="))
		sb.WriteString(fmt.Sprintf("%v", entry.Extra[key]))
	}

	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logPath := filepath.Join(logDir(cfg.Logging), logging.FileName)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No logs found.")
		fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}

	filter, err := parseLogFilter(logsLevel, logsSince, logsGrep, logsComponent, time.Now())
	if err != nil {
		return err
	}

	// Follow mode
	if logsFollow {
		return followLogs(cmd.Context(), out, logPath, filter)
	}

	// Non-follow mode: read and display logs
	return displayLogs(out, logPath, logsTail, filter)
}

func parseLogFilter(level, since, grep, component string, now time.Time) (logFilter, error) {
	f := logFilter{minLevel: -1, component: component}

	if level != "" {
		f.minLevel = levelPriority(logging.ParseLevel(level))
	}

	if since != "" {
		duration, err := time.ParseDuration(since)
		if err != nil {
			return f, fmt.Errorf("invalid duration format: %w", err)
		}
		f.since = now.Add(-duration)
	}

	if grep != "" {
		re, err := regexp.Compile(grep)
		if err != nil {
			return f, fmt.Errorf("invalid grep pattern: %w", err)
		}
		f.grep = re
	}

	return f, nil
}

// displayLogs reads the log file and displays filtered entries
func displayLogs(w io.Writer, logPath string, tail int, filter logFilter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)

	// Increase buffer size for potentially long log lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		if line, ok := renderLogLine(scanner.Text(), filter); ok {
			entries = append(entries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	// Apply tail limit
	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}

	for _, entry := range entries {
		fmt.Fprintln(w, entry)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No matching log entries found.")
	}

	return nil
}

// renderLogLine parses and filters one raw line. Lines that are not JSON
// are passed through unfiltered.
func renderLogLine(line string, filter logFilter) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	var entry logEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line, true
	}
	if !passesFilters(&entry, filter) {
		return "", false
	}
	return formatLogEntry(&entry), true
}

// followLogs implements tail -f behavior for the log file. It waits for
// write events instead of polling and reopens the file after rotation.
func followLogs(ctx context.Context, w io.Writer, logPath string, filter logFilter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so rotation (rename + create) is seen too
	if err := watcher.Add(filepath.Dir(logPath)); err != nil {
		return fmt.Errorf("failed to watch log directory: %w", err)
	}

	file, reader, err := openAtEnd(logPath)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	fmt.Fprintf(w, "Following logs... (Ctrl+C to stop)\n\n")

	// partial holds a line whose newline has not been written yet
	var partial string
	drain := func() error {
		for {
			chunk, err := reader.ReadString('\n')
			if err == io.EOF {
				partial += chunk
				return nil
			}
			if err != nil {
				return fmt.Errorf("error reading log file: %w", err)
			}
			line := partial + chunk
			partial = ""
			if rendered, ok := renderLogLine(line, filter); ok {
				fmt.Fprintln(w, rendered)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(logPath) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create != 0:
				// The previous file was rotated away; start on the new one
				_ = file.Close()
				f, err := os.Open(logPath)
				if err != nil {
					return fmt.Errorf("failed to reopen log file: %w", err)
				}
				file, reader, partial = f, bufio.NewReader(f), ""
				if err := drain(); err != nil {
					return err
				}
			case event.Op&fsnotify.Write != 0:
				if err := drain(); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher error: %w", err)
		}
	}
}

func openAtEnd(logPath string) (*os.File, *bufio.Reader, error) {
	file, err := os.Open(logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("failed to seek to end: %w", err)
	}
	return file, bufio.NewReader(file), nil
}

// passesFilters checks if a log entry passes all filter criteria
func passesFilters(entry *logEntry, filter logFilter) bool {
	// Level filter
	if filter.minLevel >= 0 && levelPriority(entry.Level) < filter.minLevel {
		return false
	}

	// Time filter
	if !filter.since.IsZero() && entry.Time.Before(filter.since) {
		return false
	}

	if filter.component != "" && entry.Component != filter.component {
		return false
	}

	// Grep filter - search in message and extra fields
	if filter.grep != nil {
		searchText := entry.Msg
		for _, v := range entry.Extra {
			searchText += " " + fmt.Sprintf("%v", v)
		}
		if !filter.grep.MatchString(searchText) {
			return false
		}
	}

	return true
}
