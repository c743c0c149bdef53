package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/pixelagent/agent"
	"github.com/BaSui01/pixelagent/client"
	"github.com/BaSui01/pixelagent/internal/metrics"
	"github.com/BaSui01/pixelagent/ledger"
	"github.com/BaSui01/pixelagent/routine"
	"github.com/BaSui01/pixelagent/scheduler"
	"github.com/BaSui01/pixelagent/testutil"
	"github.com/BaSui01/pixelagent/testutil/fixtures"
	"github.com/BaSui01/pixelagent/types"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	color.NoColor = true
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(testutil.TestContext(t))
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- exit codes ---

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(types.NewConfigurationError("bad")))
	assert.Equal(t, 2, exitCode(usageError("--route is required")))
	assert.Equal(t, 1, exitCode(types.NewOperationFailed("logout button not found")))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

// --- locate ---

func TestLocateCommand(t *testing.T) {
	dir := t.TempDir()
	screen := fixtures.Texture(120, 90, 3)
	hay := fixtures.WritePNG(t, dir, "shot.png", screen)
	hit := fixtures.WritePNG(t, dir, "hit.png", fixtures.Crop(screen, types.NewRegion(40, 30, 16, 16).Rect()))
	miss := fixtures.WritePNG(t, dir, "miss.png", fixtures.Texture(16, 16, 77))

	out, err := execute(t, "locate", "--haystack", hay, "--needle", hit)
	require.NoError(t, err)
	assert.Contains(t, out, "(40,30 16x16)")
	assert.Contains(t, out, "found")

	out, err = execute(t, "locate", "--haystack", hay, "--needle", miss, "--confidence", "0.95")
	require.Error(t, err)
	assert.Contains(t, out, "not found")
	assert.Equal(t, 1, exitCode(err))

	_, err = execute(t, "locate", "--haystack", hay)
	assert.Equal(t, 2, exitCode(err))

	_, err = execute(t, "locate", "--haystack", hay, "--needle", hit, "--backend", "sift")
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}

// --- checkpoints ---

func TestCheckpointsCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", `
session:
  min_session: 1h
  max_session: 3h
  min_break: 10m
  max_break: 20m
  total_sessions: 3
  roll_chance: 5
  forced_chance: 1
`)
	out, err := execute(t, "checkpoints", "--config", cfg, "--start", "2026-05-04T09:00:00Z")
	require.NoError(t, err)

	assert.Contains(t, out, "session 1 of 3 from 2026-05-04 09:00:00")
	for _, at := range []string{"10:00:00", "10:30:00", "11:00:00", "11:30:00", "12:00:00"} {
		assert.Contains(t, out, "2026-05-04 "+at)
	}
	assert.Contains(t, out, "chance 1/5, checkpoint 5 with 1/1")

	_, err = execute(t, "checkpoints", "--config", cfg, "--start", "tomorrow")
	assert.Equal(t, 2, exitCode(err))
}

func TestCheckpointsCommand_InvalidConfig(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "config.yaml", "session:\n  min_session: 3h\n  max_session: 1h\n")
	_, err := execute(t, "checkpoints", "--config", cfg)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}

// --- ledger ---

func TestLedgerCommand(t *testing.T) {
	dir := t.TempDir()
	store, err := ledger.NewFileStore(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.Append(context.Background(), &ledger.Record{
		Session: 1, Total: 2, Checkpoint: 2, Roll: 5, LoggedOutAt: at, Break: 15 * time.Minute,
	}))
	require.NoError(t, store.Append(context.Background(), &ledger.Record{
		Session: 2, Total: 2, Checkpoint: 5, Forced: true, Roll: 1, LoggedOutAt: at.Add(2 * time.Hour), Final: true,
	}))
	require.NoError(t, store.Close())

	cfg := writeFile(t, dir, "config.yaml", "ledger:\n  type: file\n  base_dir: "+dir+"\n")
	defer func(orig func() time.Time) { now = orig }(now)
	now = func() time.Time { return at.Add(3 * time.Hour) }

	out, err := execute(t, "ledger", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "session 1/2  checkpoint 2 (rolled, roll 5)")
	assert.Contains(t, out, "3 hours ago  break 15 minutes")
	assert.Contains(t, out, "session 2/2  checkpoint 5 (forced, roll 1)")
	assert.Contains(t, out, "final")
	assert.Contains(t, out, "2 breaks (1 forced)")

	out, err = execute(t, "ledger", "--config", cfg, "--json")
	require.NoError(t, err)
	var records []ledger.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 2)
}

func TestLedgerCommand_Empty(t *testing.T) {
	out, err := execute(t, "ledger")
	require.NoError(t, err)
	assert.Contains(t, out, "no breaks recorded")
}

// --- version ---

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pixelagent dev")
	assert.Contains(t, out, "Git Commit: unknown")
}

// --- run ---

func TestRunCommand_RequiresRoutine(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, err.Error(), "--routine")
}

func TestTravelCommand_RequiresRoute(t *testing.T) {
	_, err := execute(t, "travel")
	assert.Equal(t, 2, exitCode(err))
}

func TestRunCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	needles := filepath.Join(dir, "needles")
	for i, name := range client.StartupNeedles() {
		fixtures.WritePNG(t, needles, name, fixtures.Texture(12, 12, uint32(100+i)))
	}
	screen := fixtures.WritePNG(t, dir, "shot.png", fixtures.Texture(800, 600, 1))
	rt := writeFile(t, dir, "routine.yaml", `
name: press-space
steps:
  - action: key
    key: space
`)
	cfg := writeFile(t, dir, "config.yaml", `
client:
  display: {left: 0, top: 0, width: 800, height: 600}
vision:
  needle_dir: `+needles+`
session:
  login_on_start: false
agent:
  max_iterations: 2
  pause: {min: 0s, max: 0s}
input:
  pre_click: {min: 0s, max: 0s}
  post_click: {min: 0s, max: 0s}
  move_duration: {min: 0s, max: 0s}
  key_delay: {min: 0s, max: 0s}
`)

	out, err := execute(t, "run", "--config", cfg, "--routine", rt, "--dry-run", "--screen", screen)
	require.NoError(t, err)
	assert.Contains(t, out, "iterations: 2 (0 stopped early)")
	assert.Contains(t, out, "sessions:   0/4")
	assert.Contains(t, out, "dry run:")
}

func TestRunCommand_MissingNeedlesFailFast(t *testing.T) {
	dir := t.TempDir()
	screen := fixtures.WritePNG(t, dir, "shot.png", fixtures.Texture(64, 64, 1))
	rt := writeFile(t, dir, "routine.yaml", "name: r\nsteps:\n  - action: key\n    key: space\n")
	cfg := writeFile(t, dir, "config.yaml", "vision:\n  needle_dir: "+filepath.Join(dir, "none")+"\n")

	_, err := execute(t, "run", "--config", cfg, "--routine", rt, "--dry-run", "--screen", screen)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
	assert.Equal(t, 2, exitCode(err))
}

// --- status endpoint ---

type idleAccount struct{}

func (idleAccount) Login(context.Context) error  { return nil }
func (idleAccount) Logout(context.Context) error { return nil }

type noopRoutine struct{}

func (noopRoutine) Run(context.Context, *routine.Routine) (routine.Result, error) {
	return routine.Result{Executed: 1}, nil
}

type idleSchedule struct{}

func (idleSchedule) Start(now time.Time) scheduler.State {
	return scheduler.State{SessionStart: now, Total: 2}
}

func (idleSchedule) Tick(_ context.Context, st scheduler.State, _ time.Time) (scheduler.State, scheduler.Outcome, error) {
	return st, scheduler.Outcome{Kind: scheduler.OutcomeIdle}, nil
}

func TestStatusHandler(t *testing.T) {
	runner, err := agent.NewRunner(idleAccount{}, noopRoutine{}, &routine.Routine{Name: "r"}, idleSchedule{},
		agent.Config{OnFatal: agent.FatalCrash, MaxIterations: 3})
	require.NoError(t, err)
	_, err = runner.Run(testutil.TestContext(t))
	require.NoError(t, err)

	m := metrics.NewCollector("pixelagent_test", zaptest.NewLogger(t))
	m.RecordRoutineStep("key", "ok")
	h := statusHandler(m, runner, zaptest.NewLogger(t))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/status")
	require.Equal(t, http.StatusOK, w.Code)
	var st agent.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, agent.StateCompleted, st.State)
	assert.Equal(t, 3, st.Report.Iterations)
	assert.Equal(t, 2, st.Report.Schedule.Total)

	w = get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "pixelagent_test_routine_steps_total"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
