package cmd

import (
	"github.com/Iron-Ham/devtop/internal/config"
	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/Iron-Ham/devtop/internal/identify"
	"github.com/Iron-Ham/devtop/internal/logging"
	"github.com/Iron-Ham/devtop/internal/monitor"
	"github.com/Iron-Ham/devtop/internal/proclist"
	"github.com/Iron-Ham/devtop/internal/resolve"
	"github.com/Iron-Ham/devtop/internal/shell"
)

// runtime bundles the collaborators the commands share.
type runtime struct {
	cfg     *config.Config
	logger  *logging.Logger
	engine  *identify.Engine
	lister  proclist.Lister
	monitor *monitor.Monitor
	// cwd is the resolver the engine uses. Nil when no lookup is wired.
	cwd *resolve.CwdResolver
}

// loadRuntime builds the runtime from the loaded configuration. Tests
// replace it.
var loadRuntime = func() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return newRuntime(cfg, logger), nil
}

// newRuntime wires resolvers, the engine and the process lister for cfg.
func newRuntime(cfg *config.Config, logger *logging.Logger) *runtime {
	runner := shell.NewExecRunner(cfg.Resolvers.CommandTimeout())
	timeout := cfg.Resolvers.CommandTimeout()

	cwd := resolve.NewCwdResolver(
		resolve.NewCwdLookup(cfg.Resolvers.CwdSource, runner, cfg.Resolvers.LsofPath, logger),
		resolve.WithTTL(cfg.Resolvers.CwdCacheTTL()),
		resolve.WithTimeout(timeout),
		resolve.WithLogger(logger),
	)

	// A typed nil pointer would not compare equal to nil inside the engine
	var containers identify.ContainerResolver
	if cfg.Resolvers.ContainersEnabled {
		docker := resolve.NewDockerContainerLookup(runner, cfg.Resolvers.DockerPath)
		docker.Logger = logger
		containers = resolve.NewContainerPortResolver(
			docker,
			resolve.WithTTL(cfg.Resolvers.ContainerCacheTTL()),
			resolve.WithTimeout(timeout),
			resolve.WithLogger(logger),
		)
	}

	engine := identify.NewEngine(cwd, containers,
		identify.WithCacheTTL(cfg.Identify.CacheTTL()),
		identify.WithCacheSize(cfg.Identify.CacheSize),
		identify.WithKeyPrefixLength(cfg.Identify.KeyPrefixLength),
		identify.WithLogger(logger),
	)
	lister := proclist.NewLister(runner, cfg.Resolvers.LsofPath, logger)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		lister:  lister,
		monitor: monitor.New(lister, engine, logger),
		cwd:     cwd,
	}
}

// newLogger opens the rotating log file, or returns a no-op logger when
// logging is disabled or no state directory is available.
func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NopLogger(), nil
	}
	dir := logDir(cfg)
	if dir == "" {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLogger(dir, cfg.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open log")
	}
	return logger, nil
}

func logDir(cfg config.LoggingConfig) string {
	if cfg.Dir != "" {
		return cfg.Dir
	}
	return logging.DefaultDir()
}

// Close flushes the log file.
func (r *runtime) Close() {
	_ = r.logger.Close()
}
