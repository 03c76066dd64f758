package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/config"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/pathutil"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/server"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/watch"
)

var (
	serveListen   string
	serveInputDir string
	serveCacheTTL int
	serveNoCache  bool
	serveNoWatch  bool
)

// newServeCmd creates the serve command: resolve the input root, build the
// HTTP server, hook up the filesystem watcher, and run until a signal.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the subfolder listing server",
		Long: `Run the HTTP server that answers filtered listing refreshes and
serves validated image files from the configured input root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&serveInputDir, "input", "", "Input root directory (overrides config)")
	cmd.Flags().IntVar(&serveCacheTTL, "cache-ttl", -1, "Listing cache TTL in seconds, 0 = no expiry (overrides config)")
	cmd.Flags().BoolVar(&serveNoCache, "no-cache", false, "Disable the listing cache")
	cmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Disable filesystem-watch cache invalidation")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Flags override the config file.
	if serveListen != "" {
		cfg.ListenAddr = serveListen
	}
	if serveInputDir != "" {
		cfg.InputDir = serveInputDir
	}
	if cmd.Flags().Changed("cache-ttl") {
		cfg.CacheTTLSeconds = serveCacheTTL
	}
	if serveNoCache {
		cfg.CacheEnabled = false
	}
	if serveNoWatch {
		cfg.WatchEnabled = false
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	root, err := pathutil.ResolveRoot(cfg.InputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve input root %q: %w", cfg.InputDir, err)
	}

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.CacheEnabled {
		opts = append(opts, server.WithCache(cfg.CacheTTL()))
	}
	srv := server.New(root, opts...)

	ctx := GetContext()

	if cfg.WatchEnabled {
		watcher, err := watch.New(root, srv.Cache(), logger)
		if err != nil {
			// Watch failure degrades to TTL-only invalidation.
			logger.Warn().Err(err).Msg("filesystem watch unavailable, relying on cache TTL")
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
		}
	}

	logger.Info().
		Str("listen", cfg.ListenAddr).
		Str("root", root).
		Bool("cache", cfg.CacheEnabled).
		Bool("watch", cfg.WatchEnabled).
		Msg("starting subfolder listing server")

	return srv.Run(ctx, cfg.ListenAddr)
}
