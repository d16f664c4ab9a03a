// Package compute implements the nine statistical computations the job
// server runs against the loaded dataset, ported from the reference
// DataIngestor so that identical input produces identical output down to
// sort order and the exact error/null-data conventions for missing data.
package compute

import (
	"fmt"
	"sort"

	"github.com/nimbusdata/statsqueue/internal/dataset"
	"github.com/nimbusdata/statsqueue/pkg/types"
)

// errNoData is the wire shape returned when a question has no matching rows
// at all, carried over verbatim from the reference implementation.
type errNoData struct {
	Error string `json:"error"`
}

func noDataError() errNoData {
	return errNoData{Error: "No data available for the given question"}
}

// Dispatcher runs a single job's computation against a fixed dataset. A
// Dispatcher is stateless and safe for concurrent use by any number of
// worker goroutines, since Table is read-only after load.
type Dispatcher interface {
	Compute(kind types.JobKind, args types.JobArgs) (any, error)
}

// DatasetDispatcher is the Dispatcher backed by an in-memory dataset.Table.
type DatasetDispatcher struct {
	table *dataset.Table
}

// NewDatasetDispatcher returns a Dispatcher that answers jobs from table.
func NewDatasetDispatcher(table *dataset.Table) *DatasetDispatcher {
	return &DatasetDispatcher{table: table}
}

// Compute runs the computation named by kind against args and returns the
// JSON-serializable result value. The only error this returns is for an
// unrecognized job kind; missing-data conditions are reported in the
// result value itself, matching the original design.
func (d *DatasetDispatcher) Compute(kind types.JobKind, args types.JobArgs) (any, error) {
	switch kind {
	case types.StatesMean:
		return d.statesMean(args.Question), nil
	case types.StateMean:
		return d.stateMean(args.Question, args.State), nil
	case types.Best5:
		return d.best5(args.Question), nil
	case types.Worst5:
		return d.worst5(args.Question), nil
	case types.GlobalMean:
		return d.globalMean(args.Question), nil
	case types.DiffFromMean:
		return d.diffFromMean(args.Question), nil
	case types.StateDiffFromMean:
		return d.stateDiffFromMean(args.Question, args.State), nil
	case types.MeanByCategory:
		return d.meanByCategory(args.Question, ""), nil
	case types.StateMeanByCategory:
		return d.meanByCategory(args.Question, args.State), nil
	default:
		return nil, fmt.Errorf("compute: unrecognized job kind %q", kind)
	}
}

// stateAccumulator totals and counts per state, used by every
// per-state-mean computation.
type stateAccumulator struct {
	totals map[string]float64
	counts map[string]int
	order  []string
}

func newStateAccumulator() *stateAccumulator {
	return &stateAccumulator{
		totals: make(map[string]float64),
		counts: make(map[string]int),
	}
}

func (a *stateAccumulator) add(state string, value float64) {
	if _, ok := a.totals[state]; !ok {
		a.order = append(a.order, state)
	}
	a.totals[state] += value
	a.counts[state]++
}

func (a *stateAccumulator) means() map[string]float64 {
	means := make(map[string]float64, len(a.totals))
	for state, total := range a.totals {
		means[state] = total / float64(a.counts[state])
	}
	return means
}

func (d *DatasetDispatcher) statesMean(question string) any {
	acc := newStateAccumulator()
	for _, e := range d.table.Entries {
		if e.Question == question && e.HasDataValue {
			acc.add(e.LocationDesc, e.DataValue)
		}
	}
	means := acc.means()

	states := make([]string, 0, len(means))
	for state := range means {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return means[states[i]] < means[states[j]] })

	out := NewOrderedMap()
	for _, state := range states {
		out.Set(state, means[state])
	}
	return out
}

func (d *DatasetDispatcher) stateMean(question, state string) any {
	var sum float64
	var n int
	for _, e := range d.table.Entries {
		if e.Question == question && e.LocationDesc == state && e.HasDataValue {
			sum += e.DataValue
			n++
		}
	}
	if n == 0 {
		return map[string]any{state: nil}
	}
	return map[string]any{state: sum / float64(n)}
}

func (d *DatasetDispatcher) best5(question string) any {
	return d.rankedFive(question, true)
}

func (d *DatasetDispatcher) worst5(question string) any {
	return d.rankedFive(question, false)
}

// rankedFive implements both best5 and worst5: the only difference between
// them is whether the "best is min" question list sorts ascending or
// descending.
func (d *DatasetDispatcher) rankedFive(question string, best bool) any {
	acc := newStateAccumulator()
	matched := false
	for _, e := range d.table.Entries {
		if e.Question == question && e.HasDataValue {
			acc.add(e.LocationDesc, e.DataValue)
			matched = true
		}
	}
	if !matched {
		return noDataError()
	}
	means := acc.means()

	var ascending bool
	switch {
	case d.table.BestIsMin(question):
		ascending = best
	case d.table.BestIsMax(question):
		ascending = !best
	default:
		return struct {
			Error string `json:"error"`
		}{Error: "Question not found in predefined lists"}
	}

	states := make([]string, 0, len(means))
	for state := range means {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		if ascending {
			return means[states[i]] < means[states[j]]
		}
		return means[states[i]] > means[states[j]]
	})
	if len(states) > 5 {
		states = states[:5]
	}

	out := NewOrderedMap()
	for _, state := range states {
		out.Set(state, means[state])
	}
	return out
}

func (d *DatasetDispatcher) globalMean(question string) any {
	var sum float64
	var n int
	for _, e := range d.table.Entries {
		if e.Question == question && e.HasDataValue {
			sum += e.DataValue
			n++
		}
	}
	if n == 0 {
		return map[string]any{"global_mean": nil}
	}
	return map[string]any{"global_mean": sum / float64(n)}
}

func (d *DatasetDispatcher) diffFromMean(question string) any {
	acc := newStateAccumulator()
	var globalSum float64
	var globalN int
	for _, e := range d.table.Entries {
		if e.Question == question && e.HasDataValue {
			acc.add(e.LocationDesc, e.DataValue)
			globalSum += e.DataValue
			globalN++
		}
	}
	if globalN == 0 {
		return noDataError()
	}
	globalMean := globalSum / float64(globalN)
	means := acc.means()

	states := make([]string, 0, len(means))
	for state := range means {
		states = append(states, state)
	}
	diffs := make(map[string]float64, len(states))
	for _, state := range states {
		diffs[state] = globalMean - means[state]
	}
	sort.Slice(states, func(i, j int) bool { return diffs[states[i]] > diffs[states[j]] })

	out := NewOrderedMap()
	for _, state := range states {
		out.Set(state, diffs[state])
	}
	return out
}

func (d *DatasetDispatcher) stateDiffFromMean(question, state string) any {
	var globalSum float64
	var globalN int
	for _, e := range d.table.Entries {
		if e.Question == question && e.HasDataValue {
			globalSum += e.DataValue
			globalN++
		}
	}
	if globalN == 0 {
		return noDataError()
	}
	globalMean := globalSum / float64(globalN)

	var stateSum float64
	var stateN int
	for _, e := range d.table.Entries {
		if e.Question == question && e.LocationDesc == state && e.HasDataValue {
			stateSum += e.DataValue
			stateN++
		}
	}
	if stateN == 0 {
		return map[string]any{state: nil}
	}
	stateMean := stateSum / float64(stateN)

	return map[string]any{state: globalMean - stateMean}
}

// categoryKey identifies one (state, stratification category, stratum)
// group for mean-by-category.
type categoryKey struct {
	state    string
	category string
	value    string
}

var categoryPriority = map[string]int{
	"Age (years)":    1,
	"Education":      2,
	"Gender":         3,
	"Income":         4,
	"Race/Ethnicity": 5,
	"Total":          6,
}

var agePriority = map[string]int{
	"18 - 24": 1, "25 - 34": 2, "35 - 44": 3, "45 - 54": 4, "55 - 64": 5, "65 or older": 6,
}

var educationPriority = map[string]int{
	"Less than high school": 1, "High school graduate": 2,
	"Some college or technical school": 3, "College graduate": 4,
}

var incomePriority = map[string]int{
	"Less than $15,000": 1, "$15,000 - $24,999": 2, "$25,000 - $34,999": 3,
	"$35,000 - $49,999": 4, "$50,000 - $74,999": 5, "$75,000 or greater": 6,
	"Data not reported": 7,
}

const unknownPriority = 99

func (k categoryKey) valueRank() int {
	switch k.category {
	case "Age (years)":
		if r, ok := agePriority[k.value]; ok {
			return r
		}
	case "Education":
		if r, ok := educationPriority[k.value]; ok {
			return r
		}
	case "Income":
		if r, ok := incomePriority[k.value]; ok {
			return r
		}
	}
	return unknownPriority
}

func (k categoryKey) categoryRank() int {
	if r, ok := categoryPriority[k.category]; ok {
		return r
	}
	return unknownPriority
}

// label renders the group key the way the reference implementation does:
// the string form of a Python 3-tuple.
func (k categoryKey) label() string {
	return fmt.Sprintf("('%s', '%s', '%s')", k.state, k.category, k.value)
}

// meanByCategory implements both mean_by_category (state == "") and
// state_mean_by_category (state filters rows before grouping).
func (d *DatasetDispatcher) meanByCategory(question, state string) any {
	totals := make(map[categoryKey]float64)
	counts := make(map[categoryKey]int)
	var keys []categoryKey

	for _, e := range d.table.Entries {
		if e.Question != question || !e.HasDataValue {
			continue
		}
		if state != "" && e.LocationDesc != state {
			continue
		}
		key := categoryKey{
			state:    e.LocationDesc,
			category: e.StratificationCategory1,
			value:    e.Stratification1,
		}
		if _, ok := totals[key]; !ok {
			keys = append(keys, key)
		}
		totals[key] += e.DataValue
		counts[key]++
	}

	if len(keys) == 0 {
		return noDataError()
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.state != b.state {
			return a.state < b.state
		}
		if a.categoryRank() != b.categoryRank() {
			return a.categoryRank() < b.categoryRank()
		}
		if a.valueRank() != b.valueRank() {
			return a.valueRank() < b.valueRank()
		}
		return a.value < b.value
	})

	out := NewOrderedMap()
	for _, key := range keys {
		out.Set(key.label(), totals[key]/float64(counts[key]))
	}
	return out
}
