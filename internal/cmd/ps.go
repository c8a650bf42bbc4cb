package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/Iron-Ham/devtop/internal/identify"
	"github.com/Iron-Ham/devtop/internal/monitor"
	"github.com/Iron-Ham/devtop/internal/tui"
	"github.com/Iron-Ham/devtop/internal/tui/styles"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var psCmd = &cobra.Command{
	Use:     "ps",
	Aliases: []string{"p"},
	Short:   "List identified processes once",
	Long: `List the running processes with their identified labels.

System processes and anything no rule recognized are hidden unless --all
is given. --category keeps only the named categories and --name keeps
labels matching a glob pattern.

Examples:
  # Show dev servers, databases, tools and scripts
  devtop ps

  # Only databases and containers, as JSON
  devtop ps --category database,container --json

  # Every Next.js server, whatever the project
  devtop ps --name 'next:*'

  # Include cache statistics
  devtop ps --stats`,
	Args: cobra.NoArgs,
	RunE: runPs,
}

var (
	psJSON       bool
	psAll        bool
	psCategories []string
	psName       string
	psStats      bool
)

func init() {
	rootCmd.AddCommand(psCmd)

	psCmd.Flags().BoolVar(&psJSON, "json", false, "Output as JSON")
	psCmd.Flags().BoolVarP(&psAll, "all", "a", false, "Include system processes")
	psCmd.Flags().StringSliceVar(&psCategories, "category", nil, "Only show these categories (comma separated)")
	psCmd.Flags().StringVar(&psName, "name", "", "Only show labels matching this glob pattern")
	psCmd.Flags().BoolVar(&psStats, "stats", false, "Print cache statistics")
}

func runPs(cmd *cobra.Command, args []string) error {
	categories, err := parseCategories(psCategories)
	if err != nil {
		return err
	}
	name, err := monitor.CompileName(psName)
	if err != nil {
		return err
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	filter := monitor.Filter{
		ShowAll:    psAll || rt.cfg.Monitor.ShowAll,
		Categories: categories,
		Name:       name,
	}
	snap, err := rt.monitor.Snapshot(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if psJSON {
		return writeSnapshotJSON(cmd.OutOrStdout(), snap, psStats)
	}
	writeSnapshotTable(cmd.OutOrStdout(), snap, psStats)
	return nil
}

// parseCategories turns flag values into categories. Each value may itself
// be comma separated.
func parseCategories(values []string) ([]identify.Category, error) {
	var out []identify.Category
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			c, err := identify.ParseCategory(name)
			if err != nil {
				return nil, errors.NewValidationError("unknown category").
					WithField("category").
					WithValue(name).
					WithCause(err)
			}
			out = append(out, c)
		}
	}
	return out, nil
}

type snapshotOutput struct {
	Processes []monitor.Row        `json:"processes"`
	Total     int                  `json:"total"`
	Stats     *identify.CacheStats `json:"stats,omitempty"`
}

func writeSnapshotJSON(w io.Writer, snap monitor.Snapshot, withStats bool) error {
	out := snapshotOutput{Processes: snap.Rows, Total: snap.Total}
	if out.Processes == nil {
		out.Processes = []monitor.Row{}
	}
	if withStats {
		stats := snap.Stats
		out.Stats = &stats
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSnapshotTable(w io.Writer, snap monitor.Snapshot, withStats bool) {
	if len(snap.Rows) == 0 {
		fmt.Fprintln(w, styles.Muted.Render("No matching processes."))
	} else {
		fmt.Fprintln(w, tui.RenderTable(snap.Rows, terminalWidth(w)))
	}
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("%d of %d processes", len(snap.Rows), snap.Total)))
	if withStats {
		fmt.Fprintln(w, styles.Muted.Render(tui.RenderStats(snap.Stats)))
	}
}

// terminalWidth returns the width of w when it is a terminal, else 0 for
// an unconstrained table.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
