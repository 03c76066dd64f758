// Package cli provides the command-line interface for subfolder-loader.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/logging"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/version"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "subfolder-loader",
		Short: "Filtered subfolder image listing service",
		Long: `subfolder-loader ` + version.Version + ` - Built: ` + version.BuildTime + `
Serves path-validated, image-filtered directory listings for a configured
input root, with an optional TTL listing cache and filesystem-watch
invalidation.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultLogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			fmt.Fprintf(os.Stderr, "\nReceived signal %v, shutting down...\n", sig)
			cancelFunc()
		}
	}()

	rootCmd := NewRootCmd()
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	cancelFunc()

	return err
}

// GetContext returns the global CLI context with signal handling.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
