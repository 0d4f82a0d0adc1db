package main

import (
	"fmt"

	"github.com/spf13/cobra"

	bookrt "github.com/hanpama/bookgraph/internal/bookrt"
	schema "github.com/hanpama/bookgraph/internal/schema"
)

func newSDLCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "sdl",
		Short: "Print the served schema as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sch, err := bookrt.NewSchema()
			if err != nil {
				return fmt.Errorf("build schema: %w", err)
			}
			return writeOutput(cmd, out, []byte(schema.Render(sch)))
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write SDL to file instead of stdout")
	return cmd
}
