package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/deps"
	"subforge/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external tools subforge drives",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cfg, ctx.locator(cfg))
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(out, line)
			}
			if required, _ := deps.Missing(statuses); len(required) > 0 {
				return fmt.Errorf("required dependencies missing: %s", strings.Join(required, ", "))
			}
			return nil
		},
	}
}
