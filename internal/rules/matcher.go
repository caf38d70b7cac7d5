package rules

import (
	"strconv"
	"strings"

	"ark/internal/graph"
	"ark/pkg/models"
)

// matchCondition evaluates one condition node against a recent-events
// window and a graph snapshot, following original_source/src/rules/matcher.rs's
// RuleMatcher::match_condition dispatch.
func matchCondition(c *Condition, events []models.Event, snap graph.Snapshot) bool {
	switch c.Type {
	case CondEvent:
		return matchEventCondition(c, events)
	case CondGraph:
		return matchGraphCondition(c, snap)
	case CondMetric:
		return matchMetricCondition(c, snap)
	case CondAny:
		for i := range c.Conditions {
			if matchCondition(&c.Conditions[i], events, snap) {
				return true
			}
		}
		return false
	case CondAll:
		for i := range c.Conditions {
			if !matchCondition(&c.Conditions[i], events, snap) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func matchEventCondition(c *Condition, events []models.Event) bool {
	for _, ev := range events {
		if string(ev.Kind) != c.EventType {
			continue
		}
		if c.EntityIDPattern != "" && !matchesPattern(ev.EntityID, c.EntityIDPattern) {
			continue
		}
		if c.ValuePattern != "" && !strings.Contains(ev.Value, c.ValuePattern) {
			continue
		}
		if c.ValueThreshold != nil {
			v, err := strconv.ParseFloat(ev.Value, 64)
			if err != nil {
				// An unparseable value never satisfies a threshold — avoids
				// misreading something like "D" (disk sleep) as 0.0.
				continue
			}
			if v < *c.ValueThreshold {
				continue
			}
		}
		return true
	}
	return false
}

func matchGraphCondition(c *Condition, snap graph.Snapshot) bool {
	for _, e := range snap.Edges {
		if string(e.Kind) != c.EdgeType {
			continue
		}
		if c.FromPattern != "" && !matchesPattern(e.From.ID, c.FromPattern) {
			continue
		}
		if c.ToPattern != "" && !matchesPattern(e.To.ID, c.ToPattern) {
			continue
		}
		return true
	}
	return false
}

func matchMetricCondition(c *Condition, snap graph.Snapshot) bool {
	for _, n := range snap.Nodes {
		if c.NodeType != "" && string(n.Kind) != c.NodeType {
			continue
		}
		if c.EntityIDPattern != "" && !matchesPattern(n.ID, c.EntityIDPattern) {
			continue
		}

		allMatch := true
		for _, m := range c.Metrics {
			if !matchMetric(m, n.Attrs) {
				allMatch = false
				break
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}

// matchMetric evaluates one MetricCondition against a node's Attrs map.
// Strict typing throughout: a Numeric-typed condition that can't parse
// either side never matches, and Auto only falls back to string comparison
// when a numeric parse genuinely fails on at least one side. No branch here
// ever coerces a non-numeric value to zero.
func matchMetric(m MetricCondition, attrs map[string]string) bool {
	actual, ok := attrs[m.Key]
	if !ok {
		return false
	}

	switch defaultValueType(m.ValueType) {
	case ValueNumeric:
		av, aerr := strconv.ParseFloat(actual, 64)
		if aerr != nil {
			return false
		}
		tv, terr := strconv.ParseFloat(m.Target, 64)
		if terr != nil {
			return false
		}
		return compareNumeric(av, tv, m.Op)
	case ValueString:
		return compareString(actual, m.Target, m.Op)
	default: // Auto
		av, aerr := strconv.ParseFloat(actual, 64)
		tv, terr := strconv.ParseFloat(m.Target, 64)
		if aerr == nil && terr == nil {
			return compareNumeric(av, tv, m.Op)
		}
		return compareString(actual, m.Target, m.Op)
	}
}

func compareNumeric(actual, target float64, op ComparisonOp) bool {
	const eps = 0.001
	switch op {
	case OpGt:
		return actual > target
	case OpLt:
		return actual < target
	case OpEq:
		return abs(actual-target) < eps
	case OpGte:
		return actual >= target
	case OpLte:
		return actual <= target
	case OpNe:
		return abs(actual-target) >= eps
	case OpContains:
		return strings.Contains(strconv.FormatFloat(actual, 'f', -1, 64), strconv.FormatFloat(target, 'f', -1, 64))
	default:
		return false
	}
}

func compareString(actual, target string, op ComparisonOp) bool {
	switch op {
	case OpEq:
		return actual == target
	case OpNe:
		return actual != target
	case OpContains:
		return strings.Contains(actual, target)
	default:
		return false
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// matchesPattern supports at most one '*' wildcard: "gpu-*" (prefix),
// "*-0" (suffix), or "gpu-*-a" (prefix+suffix, exactly two '*'-split
// parts). More than two parts (multiple wildcards) falls back to an exact
// match, verbatim from original_source/src/rules/matcher.rs's
// matches_pattern.
func matchesPattern(text, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return text == pattern
	}
	parts := strings.Split(pattern, "*")
	switch len(parts) {
	case 2:
		return strings.HasPrefix(text, parts[0]) && strings.HasSuffix(text, parts[1])
	case 1:
		return strings.HasPrefix(text, parts[0]) || strings.HasSuffix(text, parts[0])
	default:
		return text == pattern
	}
}
