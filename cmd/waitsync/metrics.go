package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kolkov/waitsync/internal/waitsync/park"
)

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the default park platform's counters",
		Long: `Prints the counters of the process-wide park platform in Prometheus text
format, or as a YAML snapshot with --output yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tb := park.Default()
			if a.cfg.Output == "yaml" {
				return render(cmd.OutOrStdout(), a.cfg.Output, statsReport(tb.Stats()))
			}
			tb.WritePrometheus(cmd.OutOrStdout())
			return nil
		},
	}
}

type statsReport park.Stats

func (s statsReport) text(w io.Writer) {
	fmt.Fprintf(w, "%+v\n", park.Stats(s))
}
