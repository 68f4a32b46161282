package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand attaches a `version` subcommand to the provided root command.
// It prints the launcher's build metadata, not the version of the provisioned tool.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print launcher version information.",
		Long:  "Print the launcher's build metadata: semantic version, commit hash, build timestamp and target platform. The version of the provisioned nonodo release is controlled separately by --version or PACKAGE_NONODO_VERSION.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
