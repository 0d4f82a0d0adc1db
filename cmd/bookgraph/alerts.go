package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	alerts "github.com/hanpama/bookgraph/internal/alerts"
	bookrt "github.com/hanpama/bookgraph/internal/bookrt"
)

func newAlertsCmd() *cobra.Command {
	var (
		out       string
		receiver  string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Generate Grafana alert rules for resolver latency",
		Long: `alerts emits a Grafana alerting provisioning file with one p95 latency rule
per object type and list type returned by a resolver. The rules read the
traces_spanmetrics_latency_bucket histogram produced from resolver spans.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sch, err := bookrt.NewSchema()
			if err != nil {
				return fmt.Errorf("build schema: %w", err)
			}
			p := alerts.Generate(sch, alerts.WithReceiver(receiver), alerts.WithThreshold(threshold))
			var buf bytes.Buffer
			if err := alerts.Write(&buf, p); err != nil {
				return err
			}
			return writeOutput(cmd, out, buf.Bytes())
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write rules to file instead of stdout")
	cmd.Flags().StringVar(&receiver, "receiver", "grafana-default-email", "contact point notified by the rules")
	cmd.Flags().Float64Var(&threshold, "threshold", 1, "p95 latency in seconds above which a rule fires")
	return cmd
}
