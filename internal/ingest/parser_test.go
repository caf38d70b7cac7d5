package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ark/pkg/models"
)

func TestParseLineValid(t *testing.T) {
	line := []byte(`{"ts":1700000000000,"event_type":"compute.util","entity_id":"gpu-0","value":"92","pid":4211}`)
	ev, err := ParseLine(line)
	require.NoError(t, err)
	assert.Equal(t, models.KindComputeUtil, ev.Kind)
	assert.Equal(t, "gpu-0", ev.EntityID)
	assert.Equal(t, "92", ev.Value)
	assert.Equal(t, 4211, ev.PID)
}

func TestParseLineUnknownType(t *testing.T) {
	line := []byte(`{"event_type":"bogus.kind","entity_id":"gpu-0","value":"1"}`)
	_, err := ParseLine(line)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestParseLineMissingEntity(t *testing.T) {
	line := []byte(`{"event_type":"compute.util","value":"1"}`)
	_, err := ParseLine(line)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestParseLineMalformedJSON(t *testing.T) {
	_, err := ParseLine([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}
