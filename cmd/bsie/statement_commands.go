package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bsie/internal/api"
	"bsie/internal/config"
	"bsie/internal/ingest"
	"bsie/internal/pipeline"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>",
		Short: "Ingest a statement document into the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ctx.storagePaths()
			if err != nil {
				return err
			}
			return ctx.withController(func(cfg *config.Config, store *statement.Store, controller *statecontrol.Controller) error {
				svc := ingest.NewService(store, controller, paths, nil)
				record, err := svc.Ingest(cmd.Context(), args[0], "")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s as %s (%d pages, %d bytes)\n",
					record.OriginalFilename, record.ID, record.PageCount, record.SizeBytes)
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var stateFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List statements, optionally filtered by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := parseStates(stateFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *statement.Store) error {
				records, err := store.List(cmd.Context(), states...)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No statements found.")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						record.ID,
						record.OriginalFilename,
						renderState(record.CurrentState, colorize),
						strconv.FormatInt(record.StateVersion, 10),
						record.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "FILE", "STATE", "VERSION", "UPDATED"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&stateFlags, "state", nil, "Filter by pipeline state (repeatable)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <statement-id>",
		Short: "Show one statement in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withController(func(cfg *config.Config, store *statement.Store, controller *statecontrol.Controller) error {
				record, err := controller.Statement(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", record.ID)
				fmt.Fprintf(out, "File:      %s (%d bytes, %d pages)\n", record.OriginalFilename, record.SizeBytes, record.PageCount)
				fmt.Fprintf(out, "State:     %s (version %d)\n", renderState(record.CurrentState, shouldColorize(out)), record.StateVersion)
				fmt.Fprintf(out, "Hash:      %s\n", record.ContentHash)
				fmt.Fprintf(out, "Stored at: %s\n", record.StoragePath)
				if record.Template != nil {
					fmt.Fprintf(out, "Template:  %s v%s\n", record.Template.ID, record.Template.Version)
				}
				if record.ErrorCode != "" {
					fmt.Fprintf(out, "Error:     %s (%s, %d retries)\n", record.ErrorMessage, record.ErrorCode, record.RetryCount)
				}
				if allowed := controller.Catalog().AllowedTransitions(record.CurrentState); len(allowed) > 0 {
					labels := make([]string, 0, len(allowed))
					for _, state := range allowed {
						labels = append(labels, string(state))
					}
					fmt.Fprintf(out, "Next:      %s\n", strings.Join(labels, ", "))
				} else {
					fmt.Fprintln(out, "Next:      (terminal)")
				}
				if len(record.Artifacts) > 0 {
					names := make([]string, 0, len(record.Artifacts))
					for name := range record.Artifacts {
						names = append(names, name)
					}
					sort.Strings(names)
					rows := make([][]string, 0, len(names))
					for _, name := range names {
						rows = append(rows, []string{name, record.Artifacts[name]})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"ARTIFACT", "LOCATION"},
						rows,
						[]columnAlignment{alignLeft, alignLeft},
					))
				}
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <statement-id>",
		Short: "Show a statement's transition journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withController(func(cfg *config.Config, store *statement.Store, controller *statecontrol.Controller) error {
				entries, err := controller.History(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					from := "-"
					if entry.FromState != nil {
						from = string(*entry.FromState)
					}
					rows = append(rows, []string{
						entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						from,
						string(entry.ToState),
						entry.Trigger,
						yesNo(entry.Forced),
						entry.Actor,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"TIME", "FROM", "TO", "TRIGGER", "FORCED", "ACTOR"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statement counts per state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *statement.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				total := 0
				rows := make([][]string, 0, len(stats))
				for _, state := range pipeline.AllStates() {
					count, ok := stats[state]
					if !ok {
						continue
					}
					total += count
					rows = append(rows, []string{api.StateLabel(state), strconv.Itoa(count)})
				}
				rows = append(rows, []string{"Total", strconv.Itoa(total)})
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"STATE", "COUNT"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func parseStates(values []string) ([]pipeline.State, error) {
	states := make([]pipeline.State, 0, len(values))
	for _, value := range values {
		state, ok := pipeline.ParseState(value)
		if !ok {
			return nil, fmt.Errorf("unknown state %q", value)
		}
		states = append(states, state)
	}
	return states, nil
}
