package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/quorum/internal/config"
	"github.com/KilimcininKorOglu/quorum/internal/logging"
)

// globalOptions are the flags every command accepts.
type globalOptions struct {
	configFile string
	logLevel   string
	logFormat  string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "quorum",
		Short: "Raft cluster integration harness",
		Long: `quorum provisions a cluster of replicated key/value nodes, starts it,
watches leadership, drives failover and membership changes, and tears
everything down again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "path to configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json (overrides config)")

	root.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration file, or returns the defaults when
// none was given. Logging flags override the file.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configFile != "" {
		loaded, err := config.LoadConfig(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	return cfg, nil
}

// validate reports every configuration error in one error.
func validate(cfg *config.Config) error {
	errs := config.ValidateConfig(cfg)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = "  - " + err.Error()
	}
	return errors.New("invalid configuration:\n" + strings.Join(msgs, "\n"))
}

// newLogger builds the logger for cfg. The standard streams map to the
// command's writers so output can be captured.
func newLogger(cmd *cobra.Command, cfg config.LogConfig) logging.Logger {
	lc := logging.Config{Level: cfg.Level, Format: cfg.Format, Output: cfg.Output}
	switch cfg.Output {
	case "", "stdout":
		return logging.NewWithWriter(lc, cmd.OutOrStdout())
	case "stderr":
		return logging.NewWithWriter(lc, cmd.ErrOrStderr())
	default:
		return logging.New(lc)
	}
}

// clusterFlags override the cluster section of the configuration.
type clusterFlags struct {
	nodes      int
	host       string
	basePort   int
	baseDir    string
	transport  string
	storage    string
	serializer string
}

func (f *clusterFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&f.nodes, "nodes", "n", 0, "number of nodes")
	fs.StringVar(&f.host, "host", "", "host nodes bind to")
	fs.IntVar(&f.basePort, "base-port", 0, "engine port of node 0")
	fs.StringVar(&f.baseDir, "base-dir", "", "directory node storage lives under")
	fs.StringVar(&f.transport, "transport", "", "engine transport: tcp or inmem")
	fs.StringVar(&f.storage, "storage", "", "engine storage: bolt, badger or memory")
	fs.StringVar(&f.serializer, "serializer", "", "command serializer: binary, json or msgpack")
}

// apply copies every flag that was set into cfg.
func (f *clusterFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("nodes") {
		cfg.Cluster.Nodes = f.nodes
	}
	if fs.Changed("host") {
		cfg.Cluster.Host = f.host
	}
	if fs.Changed("base-port") {
		cfg.Cluster.BasePort = f.basePort
	}
	if fs.Changed("base-dir") {
		cfg.Cluster.BaseDir = f.baseDir
	}
	if fs.Changed("transport") {
		cfg.Cluster.Transport = f.transport
	}
	if fs.Changed("storage") {
		cfg.Cluster.Storage = f.storage
	}
	if fs.Changed("serializer") {
		cfg.Cluster.Serializer = f.serializer
	}
}

// prepare loads, overrides and validates the configuration.
func prepare(cmd *cobra.Command, opts *globalOptions, flags *clusterFlags) (*config.Config, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	flags.apply(cmd, cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
