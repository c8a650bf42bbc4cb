package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/Iron-Ham/devtop/internal/identify"
	"github.com/Iron-Ham/devtop/internal/proclist"
	"github.com/Iron-Ham/devtop/internal/tui/styles"
	"github.com/Iron-Ham/devtop/internal/util"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:     "identify [flags] [-- command...]",
	Aliases: []string{"i"},
	Short:   "Identify a single process",
	Long: `Identify one process, either a running one by pid or an arbitrary
command line.

With --pid and no command, the command line and listening port are read
from the running process. With a command, the label is computed for that
command; --pid, --port and --cwd add context.

Examples:
  devtop identify --pid 4242
  devtop identify --port 3000 --cwd ~/code/shop -- node node_modules/.bin/next dev
  devtop identify --json -- redis-server '*:6379'`,
	RunE: runIdentify,
}

var (
	identifyPID  int
	identifyPort int
	identifyCwd  string
	identifyJSON bool
)

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().IntVar(&identifyPID, "pid", 0, "Process id")
	identifyCmd.Flags().IntVar(&identifyPort, "port", 0, "Listening TCP port")
	identifyCmd.Flags().StringVar(&identifyCwd, "cwd", "", "Working directory (skips the lookup)")
	identifyCmd.Flags().BoolVar(&identifyJSON, "json", false, "Output as JSON")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	q := identify.ProcessQuery{
		PID:     identifyPID,
		Command: strings.Join(args, " "),
		Port:    identifyPort,
		Cwd:     identifyCwd,
	}
	if err := validateQuery(q); err != nil {
		return err
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if q.Command == "" {
		q, err = queryFromRunning(cmd.Context(), rt.lister, q)
		if err != nil {
			return err
		}
	}
	// Resolved up front so it can be printed. The engine shares this cache.
	if q.Cwd == "" && q.PID > 0 && rt.cwd != nil {
		if cwd, ok := rt.cwd.Resolve(cmd.Context(), q.PID); ok {
			q.Cwd = cwd
		}
	}

	p := rt.engine.Identify(cmd.Context(), q)
	if identifyJSON {
		return writeIdentifiedJSON(cmd.OutOrStdout(), q, p)
	}
	writeIdentified(cmd.OutOrStdout(), q, p)
	return nil
}

func validateQuery(q identify.ProcessQuery) error {
	switch {
	case q.PID < 0:
		return errors.NewValidationError("pid must not be negative").WithField("pid").WithValue(q.PID)
	case q.Port < 0 || q.Port > 65535:
		return errors.NewValidationError("port must be between 1 and 65535").WithField("port").WithValue(q.Port)
	case q.PID == 0 && q.Command == "":
		return errors.NewValidationError("give a command or --pid")
	}
	return nil
}

// queryFromRunning fills in the command line, and the port when none was
// given, from the live process list.
func queryFromRunning(ctx context.Context, lister proclist.Lister, q identify.ProcessQuery) (identify.ProcessQuery, error) {
	records, err := lister.List(ctx)
	if err != nil {
		return q, errors.Wrap(err, "list processes")
	}
	for _, r := range records {
		if r.PID != q.PID {
			continue
		}
		q.Command = r.Command
		if q.Port == 0 {
			q.Port = r.Port
		}
		return q, nil
	}
	return q, errors.NewNotFoundError("process", strconv.Itoa(q.PID))
}

type identifiedOutput struct {
	PID     int    `json:"pid,omitempty"`
	Command string `json:"command"`
	identify.IdentifiedProcess
}

func writeIdentifiedJSON(w io.Writer, q identify.ProcessQuery, p identify.IdentifiedProcess) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(identifiedOutput{PID: q.PID, Command: q.Command, IdentifiedProcess: p})
}

func writeIdentified(w io.Writer, q identify.ProcessQuery, p identify.IdentifiedProcess) {
	fmt.Fprintf(w, "%s  %s\n",
		styles.Title.Render(p.DisplayName),
		styles.Category(p.Category).Render(styles.CategoryIcon(p.Category)+" "+p.Category.String()),
	)
	if q.PID > 0 {
		fmt.Fprintf(w, "  pid:       %d\n", q.PID)
	}
	if q.Cwd != "" {
		home, _ := os.UserHomeDir()
		fmt.Fprintf(w, "  cwd:       %s\n", util.ShortenHome(q.Cwd, home))
	}
	if p.Project != "" {
		fmt.Fprintf(w, "  project:   %s\n", p.Project)
	}
	if p.Port > 0 {
		fmt.Fprintf(w, "  port:      %d\n", p.Port)
	}
	if c := p.ContainerInfo; c != nil {
		fmt.Fprintf(w, "  container: %s (%s)\n", c.Name, c.Image)
	}
	fmt.Fprintf(w, "  command:   %s\n", styles.Muted.Render(q.Command))
}
