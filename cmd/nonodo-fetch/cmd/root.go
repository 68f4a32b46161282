package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/nonodo-launcher/internal/config"
	"github.com/oshokin/nonodo-launcher/internal/logger"
	"github.com/oshokin/nonodo-launcher/internal/service/launcher"
	"github.com/oshokin/nonodo-launcher/internal/version"
)

var (
	// releaseVersion is the nonodo release to provision.
	releaseVersion string
	// releaseURL is the release folder URL.
	releaseURL string
	// cacheDir is the cache directory.
	cacheDir string
	// configPath is the optional YAML settings file.
	configPath string
	// logLevel is the launcher log level.
	logLevel string
	// offline forbids downloads.
	offline bool

	// rootCmd represents the provisioning-only command.
	rootCmd = &cobra.Command{
		Use:   "nonodo-fetch",
		Short: "Provision nonodo and print the executable path.",
		Long: `Makes sure the nonodo release for this OS and CPU is in the cache and
prints the path of the executable on standard output.

Flags take precedence over PACKAGE_NONODO_* environment variables, which take
precedence over the YAML settings file.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			ctx = logger.WithName(ctx, "nonodo-fetch")

			cfg, err := config.FromEnv(flagLookup(cmd.Flags(), os.LookupEnv))
			if err != nil {
				return err
			}

			if cfg, err = launcher.Configure(ctx, cfg); err != nil {
				return err
			}

			path, err := launcher.Provision(ctx, cfg)
			if err != nil {
				launcher.Report(ctx, err)

				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)

			return err
		},
	}
)

// Execute runs the nonodo-fetch CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	logger.Sync()

	if err != nil {
		os.Exit(launcher.ExitProvisionFailure)
	}
}

// flagLookup layers explicitly set flags over the environment.
func flagLookup(flags *pflag.FlagSet, env func(string) (string, bool)) func(string) (string, bool) {
	overrides := make(map[string]string)

	set := func(name, key, value string) {
		if flags.Changed(name) {
			overrides[key] = value
		}
	}

	set("version", config.EnvVersion, releaseVersion)
	set("url", config.EnvURL, releaseURL)
	set("dir", config.EnvDir, cacheDir)
	set("config", config.EnvConfig, configPath)
	set("log-level", config.EnvLogLevel, logLevel)
	set("offline", config.EnvOffline, strconv.FormatBool(offline))

	return func(key string) (string, bool) {
		if v, ok := overrides[key]; ok {
			return v, true
		}

		return env(key)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVar(&releaseVersion, "version", "", "nonodo release to provision")
	rootCmd.Flags().StringVar(&releaseURL, "url", "", "release folder URL")
	rootCmd.Flags().StringVarP(&cacheDir, "dir", "d", "", "cache directory")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&offline, "offline", false, "never download; fail when the cache is empty")
}
