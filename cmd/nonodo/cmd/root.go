package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/nonodo-launcher/internal/service/launcher"
)

var (
	// exitCode is the status the process exits with once the child is done.
	exitCode int

	// rootCmd represents the launcher; every argument belongs to nonodo.
	rootCmd = &cobra.Command{
		Use:   "nonodo [nonodo arguments]",
		Short: "Download, verify and run nonodo.",
		Long: `Runs the nonodo local node, provisioning it first when needed.

The release matching this OS and CPU is downloaded from the release store,
checked against its published digest and unpacked into the cache directory.
All arguments are passed to nonodo unchanged. Interrupts are forwarded to the
node and its exit status becomes the launcher's.

Environment:
  PACKAGE_NONODO_VERSION    release to run (default 0.1.0)
  PACKAGE_NONODO_URL        release folder URL
  PACKAGE_NONODO_DIR        cache directory (default: system temp dir)
  PACKAGE_NONODO_CONFIG     YAML settings file
  PACKAGE_NONODO_LOG_LEVEL  launcher log level
  PACKAGE_NONODO_OFFLINE    never download, fail on a cache miss
  PACKAGE_NONODO_HASH       published digest algorithm (default md5)`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Run: func(_ *cobra.Command, args []string) {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			exitCode = launcher.Main(ctx, &launcher.Options{Args: args})
		},
	}
)

// Execute runs the launcher and exits with the node's status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(launcher.ExitProvisionFailure)
	}

	os.Exit(exitCode)
}
