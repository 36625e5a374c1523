// Package cmd implements the ember-build command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/seanpdoyle/emberjs-build/internal/logging"
)

var (
	logLevel  = logging.LevelInfo
	logFormat = logging.FormatText
)

var RootCommand = &cobra.Command{
	Use:           "ember-build",
	Short:         "Build the Ember runtime and template compiler bundles",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCommand.PersistentFlags().Var(logging.NewLevelFlag(&logLevel), "log-level", "set log level: debug, info, warn or error")
	RootCommand.PersistentFlags().Var(logging.NewFormatFlag(&logFormat), "log-format", "set log format: text or json")
}

func newLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logLevel, Format: logFormat, Output: os.Stderr})
}

// configParams are the flags shared by every command that reads the
// configuration.
type configParams struct {
	configFiles       []string
	patchFiles        []string
	mergeConflictFail bool
}

func (p *configParams) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&p.configFiles, "config", "c", []string{"ember.yaml"}, "configuration files or directories (can be repeated)")
	cmd.Flags().StringSliceVar(&p.patchFiles, "patch", nil, "JSON patch files applied to the merged configuration (can be repeated)")
	cmd.Flags().BoolVar(&p.mergeConflictFail, "merge-conflict-error", false, "fail when configuration files set different values for the same key")
}
