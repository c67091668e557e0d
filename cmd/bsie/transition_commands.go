package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bsie/internal/config"
	"bsie/internal/pipeline"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
)

func newTransitionCommand(ctx *commandContext) *cobra.Command {
	var (
		trigger         string
		workerID        string
		artifactFlags   []string
		expectedVersion int64
	)

	cmd := &cobra.Command{
		Use:   "transition <statement-id> <target-state>",
		Short: "Request a validated state transition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, ok := pipeline.ParseState(args[1])
			if !ok {
				return fmt.Errorf("unknown state %q", args[1])
			}
			artifacts, err := parseArtifacts(artifactFlags)
			if err != nil {
				return err
			}
			return ctx.withController(func(cfg *config.Config, store *statement.Store, controller *statecontrol.Controller) error {
				req := statecontrol.TransitionRequest{
					StatementID: args[0],
					ToState:     target,
					Trigger:     trigger,
					Artifacts:   artifacts,
					WorkerID:    workerID,
				}
				if cmd.Flags().Changed("expected-version") {
					req.ExpectedVersion = &expectedVersion
				}
				result, err := controller.Transition(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printOutcome(cmd, result)
			})
		},
	}
	cmd.Flags().StringVar(&trigger, "trigger", "manual", "Transition trigger recorded in the journal")
	cmd.Flags().StringVar(&workerID, "worker", "cli", "Worker identifier recorded in the journal")
	cmd.Flags().StringArrayVar(&artifactFlags, "artifact", nil, "Artifact as name=location (repeatable)")
	cmd.Flags().Int64Var(&expectedVersion, "expected-version", 0, "Reject unless the statement is at this version")
	return cmd
}

func newForceCommand(ctx *commandContext) *cobra.Command {
	var (
		reason string
		actor  string
	)

	cmd := &cobra.Command{
		Use:   "force <statement-id> <target-state>",
		Short: "Force a statement into a state, bypassing validation",
		Long: "Force moves a statement to any catalog state without edge or artifact checks.\n" +
			"The transition is journaled with the acting operator and reason.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(reason) == "" {
				return fmt.Errorf("--reason is required for forced transitions")
			}
			target, ok := pipeline.ParseState(args[1])
			if !ok {
				return fmt.Errorf("unknown state %q", args[1])
			}
			return ctx.withController(func(cfg *config.Config, store *statement.Store, controller *statecontrol.Controller) error {
				result, err := controller.ForceTransition(cmd.Context(), args[0], target, reason, actor)
				if err != nil {
					return err
				}
				return printOutcome(cmd, result)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the override is needed (required)")
	cmd.Flags().StringVar(&actor, "actor", defaultActor(), "Operator recorded in the journal")
	return cmd
}

func printOutcome(cmd *cobra.Command, result *statecontrol.TransitionResult) error {
	if result.Failed() {
		return fmt.Errorf("%s: %s", result.ErrorKind, result.Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n",
		result.StatementID, result.PreviousState, result.CurrentState)
	return nil
}

func parseArtifacts(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	artifacts := make(map[string]string, len(values))
	for _, value := range values {
		name, location, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(location) == "" {
			return nil, fmt.Errorf("invalid artifact %q, expected name=location", value)
		}
		artifacts[strings.TrimSpace(name)] = strings.TrimSpace(location)
	}
	return artifacts, nil
}

func defaultActor() string {
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return "operator"
}
