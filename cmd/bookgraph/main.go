// Command bookgraph serves the book catalogue over GraphQL and generates the
// artifacts that go with it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "bookgraph:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bookgraph",
		Short: "GraphQL book catalogue with batched relation resolvers",
		Long: `bookgraph serves a small catalogue of books, authors and publishers over
GraphQL. Book.author and Book.publisher resolve concurrently once per query
depth, and every resolver invocation is traced through OpenTelemetry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(serve), newSDLCmd(), newAlertsCmd())
	return root
}

// writeOutput writes body to path, or to the command's stdout when path is
// empty.
func writeOutput(cmd *cobra.Command, path string, body []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
