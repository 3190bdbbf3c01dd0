package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/roach88/intentd/internal/engine"
)

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:           "cancel <intent-id>",
		Short:         "Cancel a non-terminal intent",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(rootOpts.Server)
			var res engine.CancelResult
			body := map[string]string{"reason": reason}
			if err := client.post("/v1/intents/"+url.PathEscape(args[0])+"/cancel", body, &res); err != nil {
				return err
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Print(res)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason recorded on the intent")
	return cmd
}

// NewKillCommand creates the kill command.
func NewKillCommand(rootOpts *RootOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:           "kill",
		Short:         "Emergency-cancel every non-terminal intent and stop workers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(rootOpts.Server)
			var res engine.KillResult
			body := map[string]string{"reason": reason}
			if err := client.post("/v1/control/kill", body, &res); err != nil {
				return err
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Print(res)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "kill reason recorded on each cancelled intent")
	return cmd
}

// NewPauseCommand creates the pause command.
func NewPauseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "pause",
		Short:         "Pause execution of all intents",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return controlPost(rootOpts, cmd, "/v1/control/pause")
		},
	}
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "resume",
		Short:         "Resume paused execution",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return controlPost(rootOpts, cmd, "/v1/control/resume")
		},
	}
}

func controlPost(rootOpts *RootOptions, cmd *cobra.Command, path string) error {
	client := newAPIClient(rootOpts.Server)
	var st engine.ControlState
	if err := client.post(path, nil, &st); err != nil {
		return err
	}
	f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	return f.Print(st)
}
