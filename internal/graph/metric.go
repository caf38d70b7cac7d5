package graph

import "strconv"

// parseMetricValue strictly type-checks raw before it is used in any
// magnitude comparison. It returns ok=false on anything that isn't a valid
// float — callers must treat that as "cannot evaluate", never as zero or
// any other default. See the transport.drop and storage.qdepth branches of
// handleFlowEvent for where this matters.
func parseMetricValue(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// formatMetricValue renders an accumulated numeric metric (e.g. drop_count)
// back into the string-typed attribute form every node attribute is stored
// as.
func formatMetricValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
