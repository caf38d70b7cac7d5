package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"ark/pkg/models"
)

// wireEvent mirrors the JSON line a probe writes to stdout, one event per
// line, snake_case field names matching original_source/core/src/event.rs.
type wireEvent struct {
	Ts       int64  `json:"ts"`
	Type     string `json:"event_type"`
	EntityID string `json:"entity_id"`
	JobID    string `json:"job_id,omitempty"`
	PID      int    `json:"pid,omitempty"`
	Value    string `json:"value"`
}

var validKinds = map[string]models.Kind{
	string(models.KindComputeUtil):   models.KindComputeUtil,
	string(models.KindComputeMem):    models.KindComputeMem,
	string(models.KindTransportBw):   models.KindTransportBw,
	string(models.KindTransportDrop): models.KindTransportDrop,
	string(models.KindStorageIops):   models.KindStorageIops,
	string(models.KindStorageQDepth): models.KindStorageQDepth,
	string(models.KindProcessState):  models.KindProcessState,
	string(models.KindErrorHw):       models.KindErrorHw,
	string(models.KindErrorNet):      models.KindErrorNet,
	string(models.KindTopoLinkDown):  models.KindTopoLinkDown,
	string(models.KindIntentRun):     models.KindIntentRun,
	string(models.KindActionExec):    models.KindActionExec,
}

// ParseLine decodes one probe stdout line into an Event, independent of
// process supervision so it can be unit tested directly.
func ParseLine(line []byte) (*models.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	kind, ok := validKinds[w.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event_type %q", ErrParse, w.Type)
	}
	if w.EntityID == "" {
		return nil, fmt.Errorf("%w: missing entity_id", ErrParse)
	}

	ts := time.Now()
	if w.Ts > 0 {
		ts = time.UnixMilli(w.Ts)
	}

	return &models.Event{
		Timestamp: ts,
		Kind:      kind,
		EntityID:  w.EntityID,
		JobID:     w.JobID,
		PID:       w.PID,
		Value:     w.Value,
	}, nil
}
