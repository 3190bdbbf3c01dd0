package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/intentd/internal/engine"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <intent-id>",
		Short:         "Show one intent",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(rootOpts.Server)
			var in engine.Intent
			if err := client.get("/v1/intents/"+url.PathEscape(args[0]), &in); err != nil {
				return err
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Print(intentSummary(in))
		},
	}
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	States        []string
	CreatedAfter  string
	CreatedBefore string
	Cursor        string
	Limit         int
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List intents with filter and pagination",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if len(opts.States) > 0 {
				q.Set("state", joinStates(opts.States))
			}
			if opts.CreatedAfter != "" {
				q.Set("created_after", opts.CreatedAfter)
			}
			if opts.CreatedBefore != "" {
				q.Set("created_before", opts.CreatedBefore)
			}
			if opts.Cursor != "" {
				q.Set("cursor", opts.Cursor)
			}
			if opts.Limit > 0 {
				q.Set("limit", strconv.Itoa(opts.Limit))
			}

			path := "/v1/intents"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			client := newAPIClient(rootOpts.Server)
			var res engine.ListResult
			if err := client.get(path, &res); err != nil {
				return err
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "text" {
				for _, in := range res.Items {
					if err := f.Print(intentSummary(in)); err != nil {
						return err
					}
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "total: %d\n", res.TotalCount)
				return err
			}
			return f.Print(res)
		},
	}

	cmd.Flags().StringSliceVar(&opts.States, "state", nil, "filter by state (repeatable)")
	cmd.Flags().StringVar(&opts.CreatedAfter, "created-after", "", "filter by creation time (RFC 3339)")
	cmd.Flags().StringVar(&opts.CreatedBefore, "created-before", "", "filter by creation time (RFC 3339)")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "pagination cursor from a previous page")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size")

	return cmd
}

func joinStates(states []string) string {
	out := ""
	for i, s := range states {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "queue",
		Short:         "Show aggregate queue status",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(rootOpts.Server)
			var st engine.QueueStatus
			if err := client.get("/v1/queue", &st); err != nil {
				return err
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Print(st)
		},
	}
}
