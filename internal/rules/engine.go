package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"ark/internal/graph"
	"ark/internal/logger"
	"ark/pkg/models"
)

// Match is one rule that satisfied its condition tree against the current
// window, carrying enough of the rule body for a scene report or a `why`
// answer to cite it.
type Match struct {
	Rule       *Rule
	Confidence float64
}

// LoadStats reports how many rule files were loaded versus skipped,
// mirroring the teacher's SigmaLoadStats.
type LoadStats struct {
	TotalFiles     int
	Loaded         int
	SkippedInvalid int
}

// Engine evaluates the loaded rule set against a window of recent events
// and the current graph snapshot.
type Engine struct {
	rules []*Rule
}

// Load reads every *.yml/*.yaml file under dir into an Engine, sorted by
// (priority desc, name asc) so evaluation and reporting are deterministic —
// the priority-with-lexicographic-tiebreak selection spec.md calls for.
func Load(dir string) (*Engine, LoadStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("read rules dir %s: %w", dir, err)
	}

	var stats LoadStats
	var loaded []*Rule

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		stats.TotalFiles++

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warnf("rules: failed to read %s: %v", path, err)
			stats.SkippedInvalid++
			continue
		}

		var r Rule
		if err := yaml.Unmarshal(data, &r); err != nil {
			logger.Warnf("rules: failed to parse %s: %v", path, err)
			stats.SkippedInvalid++
			continue
		}
		r.sourceFile = path
		r.Applicability.MinConfidence = defaultMinConfidence(r.Applicability.MinConfidence)
		loaded = append(loaded, &r)
		stats.Loaded++
	}

	sort.Slice(loaded, func(i, j int) bool {
		if loaded[i].Priority != loaded[j].Priority {
			return loaded[i].Priority > loaded[j].Priority
		}
		return loaded[i].Name < loaded[j].Name
	})

	logger.Infof("rules: loaded=%d skipped_invalid=%d files=%d dir=%s", stats.Loaded, stats.SkippedInvalid, stats.TotalFiles, dir)

	return &Engine{rules: loaded}, stats, nil
}

// Evaluate returns every rule whose condition tree is satisfied, in
// priority order.
func (e *Engine) Evaluate(events []models.Event, snap graph.Snapshot) []Match {
	var matches []Match
	for _, r := range e.rules {
		if !allConditionsMatch(r.Conditions, events, snap) {
			continue
		}
		matches = append(matches, Match{Rule: r, Confidence: r.Applicability.MinConfidence})
	}
	return matches
}

func allConditionsMatch(conds []Condition, events []models.Event, snap graph.Snapshot) bool {
	for i := range conds {
		if !matchCondition(&conds[i], events, snap) {
			return false
		}
	}
	return true
}
