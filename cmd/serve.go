package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/TFMV/topicweb/config"
	"github.com/TFMV/topicweb/ingest"
	"github.com/TFMV/topicweb/metrics"
	"github.com/TFMV/topicweb/render"
	"github.com/TFMV/topicweb/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive graph over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				cfg.Dataset.Watch = watch
			}

			loader, err := newLoader(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(serverConfig(cfg), logger.Named("server"), metrics.NewRegistry())
			return serve(ctx, cfg, srv, loader, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the dataset when the file changes")
	return cmd
}

func serverConfig(cfg *config.Config) server.Config {
	sc := server.DefaultConfig()
	sc.Interact = cfg.InteractOptions()
	sc.Render = render.NewDefaultOptions("svg")
	sc.AllowedOrigins = cfg.Server.AllowedOrigins
	sc.ReadTimeout = cfg.Server.ReadTimeout
	sc.WriteTimeout = cfg.Server.WriteTimeout
	sc.LoadTimeout = cfg.Dataset.Timeout
	sc.StreamBuffer = cfg.Server.StreamBuffer
	return sc
}

// serve runs the listener, the initial load and the optional file watcher
// until ctx is cancelled or one of them fails
func serve(ctx context.Context, cfg *config.Config, srv *server.Server, loader *ingest.Loader, logger *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx, cfg.Server.Addr)
	})

	// a failed load leaves the server up in the error state
	g.Go(func() error {
		if err := srv.Load(ctx, loader); err != nil {
			logger.Error("Initial load failed", zap.Stringer("source", loader.Source()), zap.Error(err))
		}
		return nil
	})

	if cfg.Dataset.Watch {
		file, ok := loader.Source().(ingest.FileSource)
		if !ok {
			logger.Warn("Watch needs a local dataset, ignoring", zap.Stringer("source", loader.Source()))
		} else {
			watcher := config.NewWatcher(file.Path, cfg.Dataset.Debounce, func(ctx context.Context) {
				if err := srv.Reload(ctx, loader); err != nil {
					logger.Warn("Reload failed", zap.Error(err))
				}
			}, logger.Named("watcher"))
			g.Go(func() error {
				return watcher.Run(ctx)
			})
		}
	}

	return g.Wait()
}
