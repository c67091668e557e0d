package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bsie/internal/api"
	"bsie/internal/pipeline"
)

func newStatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "states",
		Short:       "Print the pipeline state catalog",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := pipeline.Default()
			rows := make([][]string, 0, len(pipeline.AllStates()))
			for _, state := range pipeline.AllStates() {
				targets := catalog.AllowedTransitions(state)
				next := "(terminal)"
				if len(targets) > 0 {
					labels := make([]string, 0, len(targets))
					for _, target := range targets {
						labels = append(labels, string(target))
					}
					next = strings.Join(labels, ", ")
				}
				artifacts := strings.Join(catalog.RequiredArtifacts(state), ", ")
				timeout := ""
				if d, ok := catalog.Timeout(state); ok {
					timeout = d.String()
				}
				rows = append(rows, []string{
					api.StateLabel(state),
					string(state),
					next,
					artifacts,
					timeout,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"STATE", "ID", "TRANSITIONS TO", "REQUIRED ARTIFACTS", "TIMEOUT"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
