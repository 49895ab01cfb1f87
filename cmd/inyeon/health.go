package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/suka712/inyeon-upstream/internal/engine"
)

func newHealthCmd(opts *cliOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the configured model backend answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := prepareRuntimeEnv(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			backend, err := env.Backends.Default(ctx)
			if err != nil {
				return err
			}
			name := engine.BackendName(backend)
			if !backend.IsHealthy(ctx) {
				return fmt.Errorf("%s is not reachable", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: healthy\n", name)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the backend")
	return cmd
}
