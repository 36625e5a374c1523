package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/seanpdoyle/emberjs-build/internal/registry"
	"github.com/seanpdoyle/emberjs-build/internal/service"
)

func init() {
	var params configParams

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long:  "Validate the configuration against its schema, check the references between packages, vendored packages and bundles, and check that the source directory exists.",
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

			reg, vendored, err := registry.FromConfig(root, filepath.Dir(params.configFiles[0]))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d packages, %d vendored packages, %d bundles\n",
				success("configuration is valid"), reg.Len(), len(vendored), len(service.Bundles(root)))
			return nil
		},
	}

	params.addFlags(validate)
	RootCommand.AddCommand(validate)
}
