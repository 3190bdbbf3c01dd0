package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/intentd/internal/engine"
)

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "submit [payload-json]",
		Short: "Submit an intent for execution",
		Long: `Submit an intent payload and start its lifecycle.

The payload is an arbitrary JSON object; the engine stores it opaquely.
Reads from stdin when no argument is given.

Example:
  intentd submit '{"symbol":"SOL","amount":"1.5"}'
  echo '{"symbol":"SOL"}' | intentd submit`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 1 {
				raw = args[0]
			} else {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return WrapExitError(ExitCommandError, "read stdin", err)
				}
				raw = string(data)
			}

			var payload map[string]any
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				return WrapExitError(ExitCommandError, "payload must be a JSON object", err)
			}

			client := newAPIClient(rootOpts.Server)
			var in engine.Intent
			if err := client.post("/v1/intents", engine.CreateRequest{ID: id, Payload: payload}, &in); err != nil {
				return err
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Print(intentSummary(in))
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "explicit intent id (generated when omitted)")
	return cmd
}

// intentSummary adds a one-line text rendering to an intent.
type intentSummary engine.Intent

// Summary implements the OutputFormatter text hook.
func (in intentSummary) Summary() string {
	return fmt.Sprintf("%s  %s", in.ID, in.State)
}

// MarshalJSON preserves the engine's JSON shape.
func (in intentSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(engine.Intent(in))
}
