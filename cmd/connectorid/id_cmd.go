package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MojoAuth/connector-identity/internal/identity"
)

var errDuplicates = errors.New("duplicate connector instances found")

func newIDCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "id FILE...",
		Short: "Print the instance id of every connector configuration in FILE",
		Long: "Print the instance id of every connector configuration in the given YAML or JSON files.\n" +
			"All configurations of one invocation share a tracking window, so two configurations\n" +
			"that differ only in key order or plugins are reported as duplicates.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}

			var configs []namedConfig
			for _, path := range args {
				fileConfigs, err := readConfigFile(path)
				if err != nil {
					return err
				}
				configs = append(configs, fileConfigs...)
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

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			duplicates := a.registerAll(ctx, configs, func(source string, id identity.InstanceID, err error) {
				switch {
				case err == nil:
					fmt.Fprintf(out, "%s %s\n", source, id)
				case id != "":
					fmt.Fprintf(out, "%s %s duplicate\n", source, id)
				default:
					fmt.Fprintf(errOut, "%s: %v\n", source, err)
				}
			})
			a.loop.RunTick()

			if duplicates > 0 {
				return fmt.Errorf("%w: %d", errDuplicates, duplicates)
			}
			return nil
		},
	}
}
