// Package cmd implements the docscan command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/logging"
)

// BuildInfo identifies the binary. The values are set by ldflags in main.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// skipConfig marks commands that must work without a valid configuration.
const skipConfig = "skip-config"

// app is the state shared by the commands of one invocation.
type app struct {
	build   BuildInfo
	cfgFile string
	noColor bool

	loader *config.Loader
	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCommand builds the docscan command tree.
func NewRootCommand(build BuildInfo) *cobra.Command {
	a := &app{build: build, logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "docscan",
		Short: "Turn photos of paper documents into searchable scans",
		Long: `docscan finds the page in a photo of a paper document, flattens it to a
rectangle, cleans it up to black text on white, and recognizes its text.

It provides:
- Batch scanning of images and directories, with PDF output
- Date-partitioned storage of scanned pages and their text
- Full-text search over stored documents
- An MCP server exposing the pipeline over stdio

Examples:
  docscan scan receipt.jpg photos/
  docscan scan photos/ --pdf overlay --workers 4
  docscan search "invoice number"
  docscan serve`,
		Version:       build.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.noColor {
				color.NoColor = true
			}
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return a.loadConfig(cmd)
		},
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("docscan %s\n  Build time: %s\n  Git commit: %s\n",
		build.Version, build.BuildTime, build.GitCommit))

	// Global flags that apply to all commands
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, ${XDG_CONFIG_HOME:-$HOME/.config}/docscan, /etc/docscan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newScanCmd(a),
		newSearchCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
// This is called by main.main().
func Execute(build BuildInfo) {
	rootCmd := NewRootCommand(build)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration from flags, environment and the
// config file, then builds the logger on the command's stderr.
func (a *app) loadConfig(cmd *cobra.Command) error {
	a.loader = config.NewLoader()
	v := a.loader.Viper()

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("verbose", flags.Lookup("verbose")); err != nil {
		return err
	}
	if err := v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
		return err
	}

	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	a.cfg = cfg

	lc := cfg.ToLoggingConfig()
	lc.Output = cmd.ErrOrStderr()
	a.logger = logging.New(lc)

	if used := a.loader.ConfigFileUsed(); used != "" {
		a.logger.Debug().Str("file", used).Msg("configuration loaded")
	}
	return nil
}
