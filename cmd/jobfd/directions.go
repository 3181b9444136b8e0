package main

import (
	"fmt"

	"github.com/madlambda/jobfd"
	"github.com/spf13/cobra"
)

func newDirectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "directions",
		Short: "List the redirection operators with their direction and target kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, sym := range jobfd.Symbols() {
				dir, fdForm, err := jobfd.ParseSymbol("directions", sym)
				if err != nil {
					return err
				}

				target := "file"
				if fdForm {
					target = "fd"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", sym, dir, target)
			}
			return nil
		},
	}
}
