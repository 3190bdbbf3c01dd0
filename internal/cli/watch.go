package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	IdleTimeout time.Duration
}

// NewWatchCommand creates the watch command.
//
// The idle timeout is client-side: the engine guarantees a terminal marker
// once the intent is terminal, but a dead connection would otherwise hang
// the reader forever.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:           "watch <intent-id>",
		Short:         "Stream an intent's transition events until it is terminal",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, opts, cmd, args[0])
		},
	}

	cmd.Flags().DurationVar(&opts.IdleTimeout, "idle-timeout", 90*time.Second, "abort if no event or heartbeat arrives within this window")
	return cmd
}

func runWatch(rootOpts *RootOptions, opts *WatchOptions, cmd *cobra.Command, id string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	endpoint := strings.TrimRight(rootOpts.Server, "/") + "/v1/intents/" + url.PathEscape(id) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "build request", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open for the intent's lifetime.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return WrapExitError(ExitCommandError, "server unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WrapExitError(ExitFailure, fmt.Sprintf("stream failed with status %d", resp.StatusCode), nil)
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	idle := time.NewTimer(opts.IdleTimeout)
	defer idle.Stop()

	out := cmd.OutOrStdout()
	event := ""
	for {
		select {
		case <-idle.C:
			cancel()
			return WrapExitError(ExitFailure, "stream idle timeout", nil)

		case line, open := <-lines:
			if !open {
				select {
				case err := <-scanErr:
					if err != nil && ctx.Err() == nil {
						return WrapExitError(ExitFailure, "stream read", err)
					}
				default:
				}
				return nil
			}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(opts.IdleTimeout)

			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data := strings.TrimPrefix(line, "data: ")
				if rootOpts.Format == "text" {
					fmt.Fprintf(out, "%s  %s\n", event, data)
				} else {
					fmt.Fprintln(out, data)
				}
				if event == "end" {
					cancel()
					return nil
				}
			}
		}
	}
}
