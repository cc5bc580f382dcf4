package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/leakpath/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Persistent flags:
//   - --verbose (-v): debug-level logging
//   - --config: config file (default $XDG_CONFIG_HOME/leakpath/config.toml)
//
// The config file is loaded before any subcommand runs and the logger is
// attached to the command context.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose    bool
		configFile string
	)

	root := &cobra.Command{
		Use:   appName,
		Short: "leakpath explains why leaked objects are still reachable",
		Long: `leakpath finds the shortest reference chain from GC roots to suspected
leaking instances in a heap snapshot. Paths through known-benign holders
(weak references, finalizer queues, short-lived threads) are only reported
when no other path exists.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			path := configFile
			if path == "" {
				p, err := configPath()
				if err != nil {
					c.Logger.Debug("no config directory", "err", err)
				}
				path = p
			}
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			c.Config = cfg
			c.Logger.Debug("loaded config", "path", path, "cache", cfg.Cache.Backend)

			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/leakpath/config.toml)")

	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.exclusionsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
