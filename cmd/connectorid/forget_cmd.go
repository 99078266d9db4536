package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MojoAuth/connector-identity/internal/identity"
)

func newForgetCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "forget ID...",
		Short: "Remove recorded instance ids from the ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			for _, id := range args {
				if err := a.service.Forget(ctx, identity.InstanceID(id)); err != nil {
					a.errs.Handle(ctx, err)
					return fmt.Errorf("forget %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s forgotten\n", id)
			}
			return nil
		},
	}
}
