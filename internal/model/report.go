package model

import (
	"fmt"
	"strings"
	"time"
)

// RowClass selects which truth table rows the contradiction filter inspects
type RowClass int

const (
	RowsConsistent   RowClass = iota // Rows classified as outcome-consistent (1)
	RowsInconsistent                 // Rows classified as outcome-inconsistent (0)
	RowsBoth                         // Union of the two
)

func (r RowClass) String() string {
	switch r {
	case RowsConsistent:
		return "consistent"
	case RowsInconsistent:
		return "inconsistent"
	case RowsBoth:
		return "both"
	default:
		return fmt.Sprintf("RowClass(%d)", int(r))
	}
}

// ParseRowClass parses a CLI or config row selector
func ParseRowClass(s string) (RowClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "consistent", "1":
		return RowsConsistent, nil
	case "inconsistent", "0":
		return RowsInconsistent, nil
	case "both", "all", "":
		return RowsBoth, nil
	default:
		return RowsBoth, fmt.Errorf("invalid row class %q (want consistent, inconsistent or both)", s)
	}
}

// Selects reports whether a row with the given classification is part of this class
func (r RowClass) Selects(c Classification) bool {
	switch r {
	case RowsConsistent:
		return c == ClassConsistent
	case RowsInconsistent:
		return c == ClassInconsistent
	case RowsBoth:
		return c == ClassConsistent || c == ClassInconsistent
	default:
		return false
	}
}

// RowTag labels a contradiction with the class of row it came from
type RowTag string

const (
	TagConsistentRow   RowTag = "consistent row"
	TagInconsistentRow RowTag = "inconsistent row"
)

// TagFor returns the tag for a row classification
func TagFor(c Classification) RowTag {
	if c == ClassConsistent {
		return TagConsistentRow
	}
	return TagInconsistentRow
}

// Contradiction is a case whose crisp outcome membership disagrees with its configuration
type Contradiction struct {
	Case       string             `json:"case" yaml:"case"`             // Case label
	Conditions map[string]float64 `json:"conditions" yaml:"conditions"` // Condition scores (outcome column excluded)
	Outcome    float64            `json:"outcome" yaml:"outcome"`       // Outcome membership score (< 0.5)
	RowClass   RowTag             `json:"row_class" yaml:"row_class"`   // Class of the row the case belongs to
	Row        string             `json:"row" yaml:"row"`               // Configuration id in the truth table
}

// Report is the result of one contradiction analysis
type Report struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"` // Analysis name (batch manifests)
	Dataset     string    `json:"dataset" yaml:"dataset"`               // Dataset source path
	Table       string    `json:"table" yaml:"table"`                   // Truth table source path
	Outcome     string    `json:"outcome" yaml:"outcome"`
	Conditions  []string  `json:"conditions" yaml:"conditions"`
	RowClass    string    `json:"row_class" yaml:"row_class"`
	Policy      string    `json:"policy" yaml:"policy"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	CacheHit    bool      `json:"cache_hit,omitempty" yaml:"cache_hit,omitempty"`

	Summary        Summary         `json:"summary" yaml:"summary"`
	Contradictions []Contradiction `json:"contradictions" yaml:"contradictions"`
}

// Summary counts what the filter looked at. Skipped lists truth table labels that
// were not found in the dataset and ignored under the lenient policy.
type Summary struct {
	SelectedRows   int            `json:"selected_rows" yaml:"selected_rows"`
	Candidates     int            `json:"candidates" yaml:"candidates"`
	Skipped        []string       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Contradictions int            `json:"contradictions" yaml:"contradictions"`
	PerClass       map[RowTag]int `json:"per_class,omitempty" yaml:"per_class,omitempty"`
}
