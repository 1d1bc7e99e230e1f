package model

// Case is one row of a calibrated QCA dataset
type Case struct {
	Label  string             `json:"label" yaml:"label"`   // Unique case identifier (e.g., "AU", "Q")
	Values map[string]float64 `json:"values" yaml:"values"` // Column name -> set membership score in [0,1]
}

// Value returns the membership score for a column
func (c Case) Value(column string) (float64, bool) {
	v, ok := c.Values[column]
	return v, ok
}

// Dataset is an ordered collection of cases sharing the same columns.
// Case labels double as row identifiers.
type Dataset struct {
	Source  string   `json:"source,omitempty" yaml:"source,omitempty"` // Where the dataset was loaded from
	Columns []string `json:"columns" yaml:"columns"`                   // Column names in file order (label column excluded)
	Cases   []Case   `json:"cases" yaml:"cases"`
}

// HasColumn reports whether the dataset declares the named column
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Labels returns the set of case labels in the dataset
func (d *Dataset) Labels() map[string]struct{} {
	labels := make(map[string]struct{}, len(d.Cases))
	for _, c := range d.Cases {
		labels[c.Label] = struct{}{}
	}
	return labels
}
