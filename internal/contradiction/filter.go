// Package contradiction finds cases whose outcome membership disagrees with the
// classification of the truth table row they were assigned to.
//
// A case is a contradiction when it sits in a selected row and its outcome score
// is strictly below the crisp threshold. The check is the same for consistent and
// inconsistent rows; the row class only decides which rows are inspected and how
// the resulting records are tagged.
package contradiction

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/qcacontra/internal/model"
)

// Threshold is the crisp-set membership crossover point
const Threshold = 0.5

// Policy decides what happens to truth table labels missing from the dataset
type Policy string

const (
	PolicyStrict  Policy = "strict"  // Fail with ErrUnknownCaseLabel; only labels of selected rows are checked
	PolicyLenient Policy = "lenient" // Skip the label and report it in Result.Skipped
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyStrict, "":
		return PolicyStrict, nil
	case PolicyLenient:
		return PolicyLenient, nil
	default:
		return "", fmt.Errorf("invalid policy %q (want strict or lenient)", s)
	}
}

// Options tune a Filter
type Options struct {
	Policy  Policy
	Outcome string // Outcome column override; empty uses the truth table's outcome
}

// Result is the output of a single filter pass
type Result struct {
	Contradictions []model.Contradiction
	SelectedRows   int
	Candidates     int
	Skipped        []string
}

// Filter extracts contradictory cases. It holds no state beyond its options and
// is safe for concurrent use.
type Filter struct {
	opts Options
}

// NewFilter creates a filter with the given options
func NewFilter(opts Options) *Filter {
	if opts.Policy == "" {
		opts.Policy = PolicyStrict
	}
	return &Filter{opts: opts}
}

// Policy returns the unknown-label policy in effect
func (f *Filter) Policy() Policy {
	return f.opts.Policy
}

// Apply runs the filter over a dataset and its truth table. Neither input is modified.
func (f *Filter) Apply(ds *model.Dataset, tt *model.TruthTable, class model.RowClass) (*Result, error) {
	if ds == nil || tt == nil {
		return nil, fmt.Errorf("dataset and truth table are required")
	}

	outcome := f.opts.Outcome
	if outcome == "" {
		outcome = tt.Outcome
	}
	if err := checkOutcome(ds, outcome); err != nil {
		return nil, err
	}
	if err := checkMemberships(ds); err != nil {
		return nil, err
	}

	// label -> row it was assigned to
	assigned := make(map[string]*model.Row)
	labels := ds.Labels()
	skipped := make(map[string]struct{})
	selected := 0

	for i := range tt.Rows {
		row := &tt.Rows[i]
		if !class.Selects(row.Outcome) {
			continue
		}
		selected++

		for _, label := range row.Cases {
			if _, ok := labels[label]; !ok {
				if f.opts.Policy == PolicyStrict {
					return nil, &CaseLabelError{Label: label, Row: row.ID}
				}
				skipped[label] = struct{}{}
				continue
			}
			if prev, dup := assigned[label]; dup && prev != row {
				return nil, fmt.Errorf("%w: %q in rows %s and %s", ErrOverlappingRows, label, prev.ID, row.ID)
			}
			assigned[label] = row
		}
	}

	result := &Result{
		Contradictions: []model.Contradiction{},
		SelectedRows:   selected,
		Candidates:     len(assigned),
		Skipped:        sortedKeys(skipped),
	}

	for _, c := range ds.Cases {
		row, ok := assigned[c.Label]
		if !ok {
			continue
		}
		score := c.Values[outcome]
		if score >= Threshold {
			continue
		}
		result.Contradictions = append(result.Contradictions, model.Contradiction{
			Case:       c.Label,
			Conditions: conditionValues(ds, c, outcome),
			Outcome:    score,
			RowClass:   model.TagFor(row.Outcome),
			Row:        row.ID,
		})
	}

	return result, nil
}

// checkOutcome ensures the outcome column is declared and present on every case
func checkOutcome(ds *model.Dataset, outcome string) error {
	if outcome == "" {
		return fmt.Errorf("%w: no outcome column named", ErrMissingColumn)
	}
	if !ds.HasColumn(outcome) {
		return fmt.Errorf("%w: %q", ErrMissingColumn, outcome)
	}
	for _, c := range ds.Cases {
		if _, ok := c.Values[outcome]; !ok {
			return fmt.Errorf("%w: %q has no value for case %q", ErrMissingColumn, outcome, c.Label)
		}
	}
	return nil
}

// checkMemberships rejects any score outside [0,1], in dataset order
func checkMemberships(ds *model.Dataset) error {
	for _, c := range ds.Cases {
		for _, col := range ds.Columns {
			v, ok := c.Values[col]
			if !ok {
				continue
			}
			if math.IsNaN(v) || v < 0 || v > 1 {
				return &MembershipError{Case: c.Label, Column: col, Value: v}
			}
		}
	}
	return nil
}

func conditionValues(ds *model.Dataset, c model.Case, outcome string) map[string]float64 {
	values := make(map[string]float64, len(ds.Columns))
	for _, col := range ds.Columns {
		if col == outcome {
			continue
		}
		if v, ok := c.Values[col]; ok {
			values[col] = v
		}
	}
	return values
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
