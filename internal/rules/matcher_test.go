package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("gpu-0", "gpu-*"))
	assert.True(t, matchesPattern("gpu-1", "gpu-*"))
	assert.False(t, matchesPattern("cpu-0", "gpu-*"))
	assert.True(t, matchesPattern("mlx5_0", "mlx5_*"))
}

func TestMatchMetricNumericStrictlyRejectsNonNumeric(t *testing.T) {
	attrs := map[string]string{"state": "D"}
	m := MetricCondition{Key: "state", Op: OpGt, Target: "0", ValueType: ValueNumeric}
	assert.False(t, matchMetric(m, attrs))
}

func TestMatchMetricAutoFallsBackToString(t *testing.T) {
	attrs := map[string]string{"state": "running"}
	m := MetricCondition{Key: "state", Op: OpEq, Target: "running", ValueType: ValueAuto}
	assert.True(t, matchMetric(m, attrs))
}

func TestMatchMetricAutoPrefersNumericWhenBothParse(t *testing.T) {
	attrs := map[string]string{"util": "95"}
	m := MetricCondition{Key: "util", Op: OpGte, Target: "90", ValueType: ValueAuto}
	assert.True(t, matchMetric(m, attrs))
}

func TestMatchMetricMissingKeyNeverMatches(t *testing.T) {
	m := MetricCondition{Key: "missing", Op: OpEq, Target: "x"}
	assert.False(t, matchMetric(m, map[string]string{}))
}
