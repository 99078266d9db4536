package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MojoAuth/connector-identity/internal/identity"
	"github.com/MojoAuth/connector-identity/pkg/canonical"
)

func newCanonicalCmd(load configLoader) *cobra.Command {
	var (
		indent     int
		maxDepth   int
		maxBreadth int
		raw        bool
	)

	cmd := &cobra.Command{
		Use:   "canonical FILE",
		Short: "Print the canonical text of every connector configuration in FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("indent") {
				cfg.Canonical.Indent = indent
			}
			if flags.Changed("max-depth") {
				cfg.Canonical.MaxDepth = maxDepth
			}
			if flags.Changed("max-breadth") {
				cfg.Canonical.MaxBreadth = maxBreadth
			}

			s, err := canonical.New(cfg.Canonical.Options())
			if err != nil {
				return err
			}

			configs, err := readConfigFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, nc := range configs {
				var value any = identity.Normalize(nc.Config)
				if raw {
					value = map[string]any(nc.Config)
				}

				text, err := s.Marshal(value)
				if err != nil {
					return fmt.Errorf("%s: %w", nc.Source, err)
				}
				if len(configs) > 1 {
					fmt.Fprintf(out, "# %s\n", nc.Source)
				}
				fmt.Fprintln(out, text)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&indent, "indent", 0, "spaces of indentation, 0 for compact output (max 10)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "collapse containers nested deeper than this, 0 for unbounded")
	cmd.Flags().IntVar(&maxBreadth, "max-breadth", 0, "truncate containers with more entries than this, 0 for unbounded")
	cmd.Flags().BoolVar(&raw, "raw", false, "serialize the configuration as is, without emptying plugins")
	return cmd
}
