package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/fileshover/internal/logger"
	"github.com/marmos91/fileshover/pkg/config"
	"github.com/marmos91/fileshover/pkg/server"
)

const usage = `file-shover - static file server

Usage:
  fileshover [flags]            serve files
  fileshover init [-force]      write a sample config file

Flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) > 0 && args[0] == "init" {
		return runInit(args[1:], stdout)
	}
	return runServe(args, stdout)
}

func runInit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	configPath := fs.String("config", "", "Where to write the config (default: "+config.GetDefaultConfigPath()+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Configuration file written to %s\n", path)
	return nil
}

// serveFlags are command-line overrides. They win over env and file.
type serveFlags struct {
	configPath string
	root       string
	port       int
	workers    int
	logLevel   string
	metrics    bool
}

func parseServeFlags(args []string, stdout io.Writer) (*serveFlags, map[string]bool, error) {
	fs := flag.NewFlagSet("fileshover", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		_, _ = fmt.Fprint(stdout, usage)
		fs.PrintDefaults()
	}

	f := &serveFlags{}
	fs.StringVar(&f.configPath, "config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	fs.StringVar(&f.root, "root", "", "Directory to serve (filesystem store)")
	fs.IntVar(&f.port, "port", 0, "Port to listen on")
	fs.IntVar(&f.workers, "workers", 0, "Worker pool size")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	fs.BoolVar(&f.metrics, "metrics", false, "Expose Prometheus metrics")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set, nil
}

// applyFlags copies explicitly set flags onto cfg and re-validates it.
func applyFlags(cfg *config.Config, f *serveFlags, set map[string]bool) error {
	if set["root"] {
		cfg.Store.Type = "filesystem"
		cfg.Store.Filesystem["root"] = f.root
	}
	if set["port"] {
		cfg.Adapters.HTTP.Port = f.port
	}
	if set["workers"] {
		cfg.Adapters.HTTP.Workers = f.workers
	}
	if set["log-level"] {
		cfg.Logging.Level = f.logLevel
	}
	if set["metrics"] {
		cfg.Server.Metrics.Enabled = f.metrics
	}

	config.ApplyDefaults(cfg)
	return config.Validate(cfg)
}

func runServe(args []string, stdout io.Writer) error {
	flags, set, err := parseServeFlags(args, stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, flags, set); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsResult := config.InitializeMetrics(cfg)

	resolver, err := config.CreateResolver(ctx, &cfg.Store, metricsResult.S3Metrics)
	if err != nil {
		return err
	}

	adapters, err := config.CreateAdapters(cfg, metricsResult.HTTPMetrics)
	if err != nil {
		return err
	}

	srv := server.New(resolver)
	srv.SetShutdownTimeout(cfg.Server.ShutdownTimeout)
	if metricsResult.Server != nil {
		srv.SetMetricsServer(metricsResult.Server)
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	logger.Info("file-shover starting: store=%s port=%d workers=%d",
		cfg.Store.Type, cfg.Adapters.HTTP.Port, cfg.Adapters.HTTP.Workers)

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
