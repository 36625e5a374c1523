package cmd

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/seanpdoyle/emberjs-build/internal/service"
)

func init() {
	var params configParams

	graph := &cobra.Command{
		Use:   "graph",
		Short: "Print the package graph in build order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := service.New().
				WithConfigFiles(params.configFiles).
				WithPatchFiles(params.patchFiles).
				WithMergeConflictFail(params.mergeConflictFail).
				LoadConfig()
			if err != nil {
				return err
			}

			sorted, err := root.TopologicalSortedPackages()
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Package", "Requirements", "Vendor", "Templates", "Tests")
			for _, p := range sorted {
				if err := table.Append([]string{
					p.Name,
					strings.Join(p.Requirements, ", "),
					strings.Join(p.VendorRequirements, ", "),
					strconv.FormatBool(p.HasTemplates),
					strconv.FormatBool(!p.SkipTests),
				}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}

	params.addFlags(graph)
	RootCommand.AddCommand(graph)
}
