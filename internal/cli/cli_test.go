package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/intentd/internal/engine"
	"github.com/roach88/intentd/internal/server"
	"github.com/roach88/intentd/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uniformDelays(d time.Duration) map[engine.State]time.Duration {
	m := make(map[engine.State]time.Duration)
	for _, s := range engine.SuccessPath[1:] {
		m[s] = d
	}
	return m
}

// startServer runs an in-process intentd server on a manual clock, so
// submitted intents hold in PENDING for the duration of the test.
func startServer(t *testing.T) (string, *engine.Engine) {
	t.Helper()
	clk := testutil.NewManualClock(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	eng := engine.New(
		engine.WithClock(clk),
		engine.WithFailurePolicy(engine.NoFailures{}),
		engine.WithStageDelays(uniformDelays(10*time.Millisecond)),
		engine.WithLogger(quietLogger()),
	)
	t.Cleanup(eng.Close)

	ts := httptest.NewServer(server.New(eng, quietLogger()).Handler())
	t.Cleanup(ts.Close)
	return ts.URL, eng
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRoot_InvalidFormat(t *testing.T) {
	_, err := runCLI(t, "--format", "xml", "queue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSubmit_TextOutput(t *testing.T) {
	url, _ := startServer(t)

	out, err := runCLI(t,
		"submit", `{"symbol":"SOL","amount":"1.5"}`,
		"--id", "cli-1", "--server", url)
	require.NoError(t, err)
	assert.Equal(t, "cli-1  PENDING\n", out)
}

func TestSubmit_RejectsBadPayload(t *testing.T) {
	url, _ := startServer(t)

	_, err := runCLI(t, "submit", "not json", "--server", url)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGet_JSONOutput(t *testing.T) {
	url, eng := startServer(t)
	_, err := eng.Create(engine.CreateRequest{
		ID:      "cli-get",
		Payload: map[string]any{"symbol": "SOL"},
	})
	require.NoError(t, err)

	out, err := runCLI(t, "get", "cli-get", "--server", url, "--format", "json")
	require.NoError(t, err)

	var in engine.Intent
	require.NoError(t, json.Unmarshal([]byte(out), &in))
	assert.Equal(t, "cli-get", in.ID)
	assert.Equal(t, engine.StatePending, in.State)
}

func TestGet_NotFoundExitCode(t *testing.T) {
	url, _ := startServer(t)

	_, err := runCLI(t, "get", "missing", "--server", url)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "NOT_FOUND")
}

func TestCLI_ServerUnreachable(t *testing.T) {
	_, err := runCLI(t, "queue", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestList_TextOutput(t *testing.T) {
	url, eng := startServer(t)
	for _, id := range []string{"cli-a", "cli-b"} {
		_, err := eng.Create(engine.CreateRequest{ID: id})
		require.NoError(t, err)
	}

	out, err := runCLI(t, "list", "--server", url, "--state", "PENDING")
	require.NoError(t, err)

	assert.Contains(t, out, "cli-a  PENDING")
	assert.Contains(t, out, "cli-b  PENDING")
	assert.True(t, strings.HasSuffix(out, "total: 2\n"), out)
}

func TestCancel(t *testing.T) {
	url, eng := startServer(t)
	_, err := eng.Create(engine.CreateRequest{ID: "cli-c"})
	require.NoError(t, err)

	out, err := runCLI(t, "cancel", "cli-c",
		"--reason", "operator request", "--server", url, "--format", "json")
	require.NoError(t, err)

	var res engine.CancelResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Cancelled)
	assert.Equal(t, engine.StateCancelled, res.FinalState)

	in, err := eng.Get("cli-c")
	require.NoError(t, err)
	assert.Equal(t, "operator request", in.Outcome.Reason)
}

func TestPauseResumeQueue(t *testing.T) {
	url, _ := startServer(t)

	out, err := runCLI(t, "pause", "--server", url, "--format", "json")
	require.NoError(t, err)
	var st engine.ControlState
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.Paused)

	out, err = runCLI(t, "queue", "--server", url, "--format", "json")
	require.NoError(t, err)
	var qs engine.QueueStatus
	require.NoError(t, json.Unmarshal([]byte(out), &qs))
	assert.True(t, qs.Paused)

	out, err = runCLI(t, "resume", "--server", url, "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.False(t, st.Paused)
}

func TestKill(t *testing.T) {
	url, eng := startServer(t)
	for _, id := range []string{"cli-k1", "cli-k2"} {
		_, err := eng.Create(engine.CreateRequest{ID: id})
		require.NoError(t, err)
	}

	out, err := runCLI(t, "kill", "--reason", "drill", "--server", url, "--format", "json")
	require.NoError(t, err)

	var res engine.KillResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.IntentsCancelled)
}

// Watching an already-terminal intent prints its terminal event and the end
// marker, then exits cleanly.
func TestWatch_TerminalIntent(t *testing.T) {
	url, eng := startServer(t)
	_, err := eng.Create(engine.CreateRequest{ID: "cli-w"})
	require.NoError(t, err)

	res, err := eng.Cancel("cli-w", "")
	require.NoError(t, err)
	require.True(t, res.Cancelled)

	out, err := runCLI(t, "watch", "cli-w", "--server", url)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "transition  "), lines[0])
	assert.Contains(t, lines[0], `"CANCELLED"`)
	assert.True(t, strings.HasPrefix(lines[1], "end  "), lines[1])
	assert.Contains(t, lines[1], `"finalState":"CANCELLED"`)
}
