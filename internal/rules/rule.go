// Package rules loads declarative YAML rules and evaluates their condition
// trees against a window of recent events plus the current causal graph.
package rules

// ComparisonOp is a value-comparison operator usable in a metric condition.
type ComparisonOp string

const (
	OpGt       ComparisonOp = "gt"
	OpLt       ComparisonOp = "lt"
	OpEq       ComparisonOp = "eq"
	OpGte      ComparisonOp = "gte"
	OpLte      ComparisonOp = "lte"
	OpNe       ComparisonOp = "ne"
	OpContains ComparisonOp = "contains"
)

// ValueType controls how a metric condition's actual/target strings are
// compared.
type ValueType string

const (
	ValueNumeric ValueType = "numeric"
	ValueString  ValueType = "string"
	ValueAuto    ValueType = "auto"
)

// MetricCondition matches one key in a node's Attrs map.
type MetricCondition struct {
	Key       string       `yaml:"key"`
	Op        ComparisonOp `yaml:"op"`
	Target    string       `yaml:"target"`
	ValueType ValueType    `yaml:"value_type"`
}

// ConditionType tags which leaf/internal shape a Condition holds.
type ConditionType string

const (
	CondEvent  ConditionType = "event"
	CondGraph  ConditionType = "graph"
	CondMetric ConditionType = "metric"
	CondAny    ConditionType = "any"
	CondAll    ConditionType = "all"
)

// Condition is a node in a rule's condition tree. Only the fields relevant
// to Type are populated; this mirrors the tagged-enum shape of
// original_source/src/rules/rule.rs's Condition without needing Go's
// interface-per-variant ceremony, since YAML unmarshaling into one struct
// with a discriminant is the idiomatic way yaml.v3 handles this shape.
type Condition struct {
	Type ConditionType `yaml:"type"`

	// event
	EventType       string   `yaml:"event_type,omitempty"`
	EntityIDPattern string   `yaml:"entity_id_pattern,omitempty"`
	ValuePattern    string   `yaml:"value_pattern,omitempty"`
	ValueThreshold  *float64 `yaml:"value_threshold,omitempty"`

	// graph
	EdgeType    string `yaml:"edge_type,omitempty"`
	FromPattern string `yaml:"from_pattern,omitempty"`
	ToPattern   string `yaml:"to_pattern,omitempty"`

	// metric
	NodeType string            `yaml:"node_type,omitempty"`
	Metrics  []MetricCondition `yaml:"metrics,omitempty"`

	// any / all
	Conditions []Condition `yaml:"conditions,omitempty"`
}

// RootCausePattern names the root cause a matched rule attributes.
type RootCausePattern struct {
	Primary   string   `yaml:"primary"`
	Secondary []string `yaml:"secondary,omitempty"`
}

// SolutionStep is one recommended remediation step.
type SolutionStep struct {
	Step    int    `yaml:"step"`
	Action  string `yaml:"action"`
	Command string `yaml:"command,omitempty"`
	Manual  bool   `yaml:"manual"`
}

// Applicability holds a rule's surfacing settings. Evaluate does not filter
// matches on them: it copies MinConfidence into Match.Confidence, and
// RequiredEvents is not checked.
type Applicability struct {
	MinConfidence  float64  `yaml:"min_confidence"`
	RequiredEvents []string `yaml:"required_events,omitempty"`
}

// Rule is one loaded YAML rule file.
type Rule struct {
	Name              string            `yaml:"name"`
	Scene             string            `yaml:"scene"`
	Priority          int               `yaml:"priority"`
	Conditions        []Condition       `yaml:"conditions"`
	RootCausePattern  RootCausePattern  `yaml:"root_cause_pattern"`
	SolutionSteps     []SolutionStep    `yaml:"solution_steps"`
	RelatedEvidences  []string          `yaml:"related_evidences,omitempty"`
	Applicability     Applicability     `yaml:"applicability"`

	sourceFile string
}

func defaultValueType(vt ValueType) ValueType {
	if vt == "" {
		return ValueAuto
	}
	return vt
}

func defaultMinConfidence(c float64) float64 {
	if c == 0 {
		return 0.8
	}
	return c
}
