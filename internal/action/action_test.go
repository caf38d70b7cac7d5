package action

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ark/internal/bus"
	"ark/pkg/models"
)

// spawnSleeper starts a short-lived child process so signal delivery can be
// exercised against a real pid instead of an invented number.
func spawnSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	return cmd
}

func TestDispatchKillSignalsRealProcess(t *testing.T) {
	cmd := spawnSleeper(t)

	d := New(nil, nil)
	result := d.Dispatch(models.ActionIntent{Kind: models.ActionKill, PID: cmd.Process.Pid})

	assert.Empty(t, result.Failed)
	require.Len(t, result.Executed, 1)
	assert.Equal(t, cmd.Process.Pid, result.Executed[0].PID)
}

func TestDispatchSignalRejectsUnknownName(t *testing.T) {
	d := New(nil, nil)
	result := d.Dispatch(models.ActionIntent{Kind: models.ActionSignal, PID: 1, Signal: "SIGNOTAREALSIGNAL"})
	require.Len(t, result.Failed, 1)
}

func TestDispatchUnknownKindFails(t *testing.T) {
	d := New(nil, nil)
	result := d.Dispatch(models.ActionIntent{Kind: "bogus", PID: 1})
	require.Len(t, result.Failed, 1)
}

func TestPostOrderPutsDescendantsAheadOfAncestors(t *testing.T) {
	// processTree's shape: [pid, children..., grandchildren...].
	targets := []int{300, 301, 302, 401, 402}
	got := postOrder(targets)
	assert.Equal(t, []int{402, 401, 302, 301, 300}, got)
}

func TestDispatchPublishesActionExecEvent(t *testing.T) {
	cmd := spawnSleeper(t)
	b := bus.New(4)
	d := New(nil, b)

	d.Dispatch(models.ActionIntent{Kind: models.ActionKill, PID: cmd.Process.Pid})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	select {
	case ev := <-b.Events():
		assert.Equal(t, models.KindActionExec, ev.Kind)
		assert.Equal(t, cmd.Process.Pid, ev.PID)
		assert.Equal(t, string(models.ActionKill), ev.Value)
	case <-ctx.Done():
		t.Fatal("expected an action.exec event on the bus")
	}
}

func TestAuditLogRecordsEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	log, err := OpenAuditLog(path, 0)
	require.NoError(t, err)
	defer log.Close()

	err = log.Record(models.AuditEntry{
		Intent: models.ActionIntent{Kind: models.ActionKill, PID: 42},
		Result: models.ActionResult{Executed: []models.ActionTargetResult{{PID: 42}}},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pid":42`)
}

func TestAuditLogRotatesWhenOverSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	log, err := OpenAuditLog(path, 10)
	require.NoError(t, err)
	defer log.Close()

	err = log.Record(models.AuditEntry{Intent: models.ActionIntent{Kind: models.ActionKill, PID: 1}})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}
