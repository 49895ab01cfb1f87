package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suka712/inyeon-upstream/internal/retrieval"
	"github.com/suka712/inyeon-upstream/internal/server"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := prepareRuntimeEnv(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			index, err := openIndex(ctx, env.Config.IndexPath, env.Logger)
			if err != nil {
				return err
			}
			defer index.Close()

			srv := server.New(server.Deps{
				Config:   env.Config,
				Backends: env.Backends,
				Tools:    env.Tools,
				Index:    index,
				Hooks:    env.Hooks,
				Logger:   env.Logger,
				Version:  Version,
			})
			return srv.ListenAndServe(ctx, env.Config.HTTPAddr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8000)")
	_ = opts.v.BindPFlag("http_addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// openIndex builds the retrieval index, persisted in SQLite when path is set.
func openIndex(ctx context.Context, path string, log *zap.Logger) (*retrieval.Index, error) {
	var store *retrieval.Store
	if path != "" {
		s, err := retrieval.OpenStore(ctx, path)
		if err != nil {
			return nil, err
		}
		store = s
		log.Info("retrieval store opened", zap.String("path", path))
	}
	return retrieval.NewIndex(ctx, store, log)
}
