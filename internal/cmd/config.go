package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Iron-Ham/devtop/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"c"},
	Short:   "View or modify devtop configuration",
	Long: `View or modify devtop configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  devtop config set identify.cache_ttl_seconds 120
  devtop config set resolvers.cwd_source lsof
  devtop config set resolvers.containers_enabled false

Run 'devtop config show' to see every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/devtop/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return writeConfig(cmd.OutOrStdout(), cfg, viper.ConfigFileUsed())
}

func writeConfig(w io.Writer, cfg *config.Config, used string) error {
	// Show where config is being read from
	if used != "" {
		fmt.Fprintf(w, "# Config file: %s\n", used)
	} else {
		fmt.Fprintln(w, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// configKeyTypes lists the settable keys and how their values are parsed.
var configKeyTypes = map[string]string{
	"identify.cache_ttl_seconds":            "int",
	"identify.cache_size":                   "int",
	"identify.key_prefix_length":            "int",
	"resolvers.cwd_cache_ttl_seconds":       "int",
	"resolvers.container_cache_ttl_seconds": "int",
	"resolvers.command_timeout_ms":          "int",
	"resolvers.cwd_source":                  "string",
	"resolvers.lsof_path":                   "string",
	"resolvers.docker_path":                 "string",
	"resolvers.containers_enabled":          "bool",
	"monitor.refresh_interval_ms":           "int",
	"monitor.show_all":                      "bool",
	"logging.enabled":                       "bool",
	"logging.level":                         "string",
	"logging.max_size_mb":                   "int",
	"logging.max_backups":                   "int",
	"logging.dir":                           "string",
}

// parseConfigValue converts a raw value for key into its typed form.
func parseConfigValue(key, value string) (any, error) {
	keyType, ok := configKeyTypes[key]
	if !ok {
		keys := make([]string, 0, len(configKeyTypes))
		for k := range configKeyTypes {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return nil, fmt.Errorf("unknown configuration key: %s\nValid keys:\n  %s", key, strings.Join(keys, "\n  "))
	}

	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return intVal, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseConfigValue(key, args[1])
	if err != nil {
		return err
	}

	// Set the value in viper and validate the result before writing it
	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := config.ConfigFile()
	if used := viper.ConfigFileUsed(); used != "" {
		configFile = used
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const configHeader = `# devtop configuration
#
# identify:  label cache (TTL, size, command prefix used in cache keys)
# resolvers: working-directory and Docker lookups
#            cwd_source: auto, lsof or procfs
# monitor:   ps/watch defaults
# logging:   JSON log file with size-based rotation
#
# Every key can be overridden with DEVTOP_<SECTION>_<KEY>, e.g.
# DEVTOP_IDENTIFY_CACHE_SIZE=1000

`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile, err := writeDefaultConfig(config.ConfigDir())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize devtop's behavior.")
	return nil
}

// writeDefaultConfig writes the default configuration into dir/config.yaml.
// It refuses to overwrite an existing file.
func writeDefaultConfig(dir string) (string, error) {
	configFile := filepath.Join(dir, "config.yaml")

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return "", fmt.Errorf("config file already exists at %s\nUse 'devtop config set' to modify values", configFile)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configFile, append([]byte(configHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return configFile, nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", configFile)
	fmt.Fprintf(out, "  2. $HOME/.config/devtop/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: DEVTOP_* (e.g., DEVTOP_IDENTIFY_CACHE_SIZE)")
	return nil
}
