package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nestgraph/nestgraph/internal/server"
)

type serveOpts struct {
	addr       string
	configPath string
}

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	opts := &serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the nestgraph HTTP API server",
		Long: `Serve the scene engine over HTTP.

Each client session gets its own engine with independent undo history.
Documents are persisted through the storage backend named in the config
file (memory, file, mongo, or redis).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to config file")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	docs, err := openDocumentStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer docs.Close()

	srv := server.New(server.Config{
		MaxSessions:  cfg.Server.MaxSessions,
		SessionTTL:   cfg.Server.SessionTTL(),
		HistoryLimit: cfg.Server.HistoryLimit,
		QuietPeriod:  cfg.Server.QuietPeriod(),
		Documents:    docs,
		Logger:       c.Logger,
	})
	stopCleanup := srv.Sessions().StartCleanup(0)
	defer stopCleanup()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("server listening", "addr", cfg.Server.Addr, "storage", cfg.Storage.Backend)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
