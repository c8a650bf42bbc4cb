package cmd

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/devtop/internal/config"
	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/Iron-Ham/devtop/internal/monitor"
	"github.com/Iron-Ham/devtop/internal/tui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Live dashboard of identified processes",
	Long: `Open a full-screen dashboard that refreshes on an interval.

Keys:
  q  quit
  r  refresh now
  c  clear caches and refresh
  a  toggle system processes
  s  toggle cache statistics
  /  filter labels by glob pattern (empty clears)`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	watchInterval   time.Duration
	watchAll        bool
	watchCategories []string
	watchName       string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "n", 0, "Refresh interval (default from monitor.refresh_interval_ms)")
	watchCmd.Flags().BoolVarP(&watchAll, "all", "a", false, "Include system processes")
	watchCmd.Flags().StringSliceVar(&watchCategories, "category", nil, "Only show these categories (comma separated)")
	watchCmd.Flags().StringVar(&watchName, "name", "", "Only show labels matching this glob pattern")
}

func runWatch(cmd *cobra.Command, args []string) error {
	categories, err := parseCategories(watchCategories)
	if err != nil {
		return err
	}
	name, err := monitor.CompileName(watchName)
	if err != nil {
		return err
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	interval, err := refreshInterval(watchInterval, rt.cfg.Monitor)
	if err != nil {
		return err
	}

	filter := monitor.Filter{
		ShowAll:    watchAll || rt.cfg.Monitor.ShowAll,
		Categories: categories,
		Name:       name,
	}
	rt.logger.Info("watch started", "interval", interval.String())
	defer rt.logger.Info("watch stopped")

	return tui.New(cmd.Context(), rt.monitor, filter, watchName, interval).Run()
}

// refreshInterval prefers the flag over the configured interval.
func refreshInterval(flag time.Duration, cfg config.MonitorConfig) (time.Duration, error) {
	if flag == 0 {
		return cfg.RefreshInterval(), nil
	}
	floor := time.Duration(config.MinRefreshIntervalMs) * time.Millisecond
	if flag < floor {
		return 0, errors.NewValidationError(fmt.Sprintf("interval must be at least %v", floor)).
			WithField("interval").
			WithValue(flag)
	}
	return flag, nil
}
