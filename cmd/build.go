package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/seanpdoyle/emberjs-build/internal/service"
)

var success = color.New(color.FgGreen).SprintFunc()

type buildParams struct {
	configParams
	outDir      string
	metricsFile string
	noProgress  bool
}

func init() {
	var params buildParams

	build := &cobra.Command{
		Use:   "build",
		Short: "Build the configured bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			showProgress := !params.noProgress && term.IsTerminal(int(os.Stderr.Fd()))
			result, err := service.New().
				WithConfigFiles(params.configFiles).
				WithPatchFiles(params.patchFiles).
				WithMergeConflictFail(params.mergeConflictFail).
				WithOutputDir(params.outDir).
				WithMetricsFile(params.metricsFile).
				WithLogger(newLogger()).
				WithProgress(os.Stderr, showProgress).
				Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, b := range result.Bundles {
				fmt.Fprintf(out, "%s /%s (%d bytes)\n", success("built"), b.Path, b.Size)
			}
			for _, p := range result.Packages {
				fmt.Fprintf(out, "%s /%s (%d bytes)\n", success("built"), p.Path, p.Size)
			}
			return nil
		},
	}

	params.addFlags(build)
	build.Flags().StringVarP(&params.outDir, "out", "o", "", "write artifacts to this directory instead of the configured output")
	build.Flags().StringVar(&params.metricsFile, "metrics-file", "", "write build metrics to this file in Prometheus text format")
	build.Flags().BoolVar(&params.noProgress, "no-progress", false, "disable the progress bar")

	RootCommand.AddCommand(build)
}
