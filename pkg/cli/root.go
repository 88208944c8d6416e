package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/config"
	"github.com/dshills/flowedit/pkg/logging"
	"github.com/dshills/flowedit/pkg/module"
)

const (
	// Version is the current version of flowedit
	Version = "1.0.0"
)

// Options holds the global flags and the state they produce.
type Options struct {
	ConfigDir string
	Debug     bool
	LogFormat string

	// Set by the root command before any subcommand runs.
	Settings *config.Config
	Logger   *slog.Logger
}

// NewRootCommand creates the root cobra command for flowedit
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "flowedit",
		Short: "flowedit - undo/redo editing core for visual workflows",
		Long: `flowedit is the editing core of a visual workflow editor.
It places services on a canvas, wires their ports together and keeps a
full undo/redo history of every edit. The CLI replays gesture scripts
headlessly and inspects module catalogs and the command journal.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize configuration
			if err := opts.init(); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}

	// Persistent flags (available to all subcommands)
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "Configuration directory (default: ~/.flowedit)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "Log format: text or json (default from config)")

	// Add subcommands
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewModulesCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd
}

// init loads the configuration and builds the logger.
func (o *Options) init() error {
	dir, err := config.ResolveDir(o.ConfigDir)
	if err != nil {
		return err
	}
	settings, err := config.Load(dir)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	if o.Debug {
		level = slog.LevelDebug
	}
	format := settings.LogFormat
	if o.LogFormat != "" {
		if !logging.ValidFormat(o.LogFormat) {
			return fmt.Errorf("invalid --log-format %q", o.LogFormat)
		}
		format = o.LogFormat
	}

	o.Settings = settings
	o.Logger = logging.New(level, format)
	o.Logger.Debug("configuration loaded", "dir", dir, "history_capacity", settings.HistoryCapacity)
	return nil
}

// catalog loads the module catalog named by path, the configured catalog,
// or the built-in one.
func (o *Options) catalog(path string) (*module.Catalog, error) {
	if path == "" && o.Settings != nil {
		configured, err := o.Settings.CatalogFile()
		if err != nil {
			return nil, err
		}
		path = configured
	}
	if path == "" {
		return module.Builtin(), nil
	}
	return module.LoadFile(path)
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
