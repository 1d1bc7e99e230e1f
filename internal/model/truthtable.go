package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Classification is the outcome value a truth table row was assigned
type Classification int

const (
	ClassUndetermined Classification = -1 // "?", "C" or "-" rows (remainders, contradictions)
	ClassInconsistent Classification = 0  // Configuration below the inclusion cutoff
	ClassConsistent   Classification = 1  // Configuration at or above the inclusion cutoff
)

func (c Classification) String() string {
	switch c {
	case ClassConsistent:
		return "1"
	case ClassInconsistent:
		return "0"
	default:
		return "?"
	}
}

// ParseClassification accepts the outcome codes used by truth table builders
func ParseClassification(s string) (Classification, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1":
		return ClassConsistent, nil
	case "0":
		return ClassInconsistent, nil
	case "?", "C", "-":
		return ClassUndetermined, nil
	default:
		return ClassUndetermined, fmt.Errorf("unknown outcome code %q", s)
	}
}

// MarshalJSON writes 1 and 0 as numbers and anything else as "?"
func (c Classification) MarshalJSON() ([]byte, error) {
	if c == ClassUndetermined {
		return json.Marshal("?")
	}
	return json.Marshal(int(c))
}

// UnmarshalJSON accepts 1, 0, "1", "0", "?" and "C"
func (c *Classification) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := ParseClassification(n.String())
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("outcome must be a number or string: %w", err)
	}
	parsed, err := ParseClassification(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML mirrors MarshalJSON
func (c Classification) MarshalYAML() (interface{}, error) {
	if c == ClassUndetermined {
		return "?", nil
	}
	return int(c), nil
}

// UnmarshalYAML accepts the same codes as UnmarshalJSON
func (c *Classification) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: outcome must be a scalar", node.Line)
	}
	parsed, err := ParseClassification(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

// Row is one configuration of a truth table
type Row struct {
	ID         string         `json:"id" yaml:"id"`                         // Configuration number as printed by the builder
	Conditions map[string]int `json:"conditions" yaml:"conditions"`         // Condition -> 0/1 in this configuration
	Outcome    Classification `json:"outcome" yaml:"outcome"`               // Row classification
	N          int            `json:"n,omitempty" yaml:"n,omitempty"`       // Number of cases in the configuration
	Incl       *float64       `json:"incl,omitempty" yaml:"incl,omitempty"` // Sufficiency inclusion score
	PRI        *float64       `json:"pri,omitempty" yaml:"pri,omitempty"`   // Proportional reduction in inconsistency
	Cases      []string       `json:"cases" yaml:"cases"`                   // Labels of the cases assigned to the configuration
}

// UnmarshalJSON accepts the row id as a string or an integer configuration number
func (r *Row) UnmarshalJSON(data []byte) error {
	type plain Row
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.ID = ""
	if len(aux.ID) == 0 || string(aux.ID) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.ID, &s); err == nil {
		r.ID = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(aux.ID, &n); err != nil {
		return fmt.Errorf("row id must be a string or a number: %s", aux.ID)
	}
	r.ID = n.String()
	return nil
}

// Key returns a canonical string for the configuration vector
func (r Row) Key(conditions []string) string {
	var b strings.Builder
	for _, c := range conditions {
		fmt.Fprintf(&b, "%d", r.Conditions[c])
	}
	return b.String()
}

// TruthTable is the read-only output of an external truth table builder
type TruthTable struct {
	Source     string   `json:"source,omitempty" yaml:"source,omitempty"`
	Outcome    string   `json:"outcome" yaml:"outcome"`       // Outcome column the table was built for
	Conditions []string `json:"conditions" yaml:"conditions"` // Condition column names in table order
	InclCut    *float64 `json:"incl_cut,omitempty" yaml:"incl_cut,omitempty"`
	NCut       *int     `json:"n_cut,omitempty" yaml:"n_cut,omitempty"`
	Rows       []Row    `json:"rows" yaml:"rows"`
}
