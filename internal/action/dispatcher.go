// Package action executes the narrowed kill/kill_tree/signal intent set the
// scene analyzers and rule engine recommend, grounded on
// original_source/agent/src/exec/fix_engine.rs's FixEngine/FixResult split
// and executor.rs's per-action dispatch, but signaling via os.Process
// instead of shelling out to the kill(1) binary.
package action

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"ark/internal/bus"
	"ark/internal/logger"
	"ark/pkg/models"
)

// Dispatcher applies action intents to live processes and records every
// attempt to an audit log.
type Dispatcher struct {
	audit *AuditLog
	bus   *bus.Bus
}

// New builds a Dispatcher writing to the given audit log and publishing
// action.exec events onto b; audit may be nil to disable auditing and b may
// be nil to disable event publication (both used in tests).
func New(audit *AuditLog, b *bus.Bus) *Dispatcher {
	return &Dispatcher{audit: audit, bus: b}
}

// Dispatch executes intent and returns the per-target executed/failed
// split fix_engine.rs's FixResult reports, rather than failing the whole
// intent on the first error.
func (d *Dispatcher) Dispatch(intent models.ActionIntent) models.ActionResult {
	result := models.ActionResult{Intent: intent}

	switch intent.Kind {
	case models.ActionKill:
		result = applySingle(intent, syscall.SIGKILL)
	case models.ActionSignal:
		sig, err := parseSignal(intent.Signal)
		if err != nil {
			result.Failed = append(result.Failed, models.ActionTargetResult{PID: intent.PID, Error: err.Error()})
			break
		}
		result = applySingle(intent, sig)
	case models.ActionKillTree:
		result = applyTree(intent)
	default:
		result.Failed = append(result.Failed, models.ActionTargetResult{PID: intent.PID, Error: fmt.Sprintf("unknown action kind %q", intent.Kind)})
	}

	if d.audit != nil {
		if err := d.audit.Record(models.AuditEntry{Timestamp: time.Now().UTC(), Intent: intent, Result: result}); err != nil {
			logger.Warnf("action: failed to write audit entry: %v", err)
		}
	}

	d.publishActionExec(intent)

	return result
}

// publishActionExec emits the action.exec event spec.md requires after
// every dispatch, so the graph records the intervention as metadata on the
// target process rather than the caller's response being the only trace of
// it having happened.
func (d *Dispatcher) publishActionExec(intent models.ActionIntent) {
	if d.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := models.Event{
		Timestamp: time.Now(),
		Kind:      models.KindActionExec,
		EntityID:  fmt.Sprintf("pid-%d", intent.PID),
		PID:       intent.PID,
		Value:     string(intent.Kind),
	}
	if err := d.bus.Publish(ctx, ev); err != nil {
		logger.Warnf("action: failed to publish action.exec event: %v", err)
	}
}

func applySingle(intent models.ActionIntent, sig syscall.Signal) models.ActionResult {
	result := models.ActionResult{Intent: intent}
	if err := signalPID(intent.PID, sig); err != nil {
		result.Failed = append(result.Failed, models.ActionTargetResult{PID: intent.PID, Error: err.Error()})
		return result
	}
	result.Executed = append(result.Executed, models.ActionTargetResult{PID: intent.PID})
	return result
}

func applyTree(intent models.ActionIntent) models.ActionResult {
	result := models.ActionResult{Intent: intent}
	targets := postOrder(processTree(intent.PID))

	for _, pid := range targets {
		if err := signalPID(pid, syscall.SIGKILL); err != nil {
			result.Failed = append(result.Failed, models.ActionTargetResult{PID: pid, Error: err.Error()})
			continue
		}
		result.Executed = append(result.Executed, models.ActionTargetResult{PID: pid})
	}
	return result
}

// postOrder reverses processTree's [pid, children..., grandchildren...]
// enumeration so every descendant is signalled before its ancestor,
// spec.md's required kill_tree ordering. Reversing a breadth-first
// enumeration is sufficient: BFS visits shallower pids first, so reversing
// always places a deeper (more-descendant) pid ahead of any of its
// ancestors, which is all post-order signaling requires here.
func postOrder(targets []int) []int {
	out := make([]int, len(targets))
	for i, pid := range targets {
		out[len(targets)-1-i] = pid
	}
	return out
}

func signalPID(pid int, sig syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}
	return nil
}
