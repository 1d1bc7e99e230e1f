package contradiction

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn     = errors.New("outcome column missing from dataset")
	ErrUnknownCaseLabel  = errors.New("truth table references unknown case label")
	ErrInvalidMembership = errors.New("membership score outside [0,1]")
	ErrOverlappingRows   = errors.New("case assigned to more than one truth table row")
)

// MembershipError reports the first out-of-range score found in a dataset
type MembershipError struct {
	Case   string
	Column string
	Value  float64
}

func (e *MembershipError) Error() string {
	return fmt.Sprintf("case %q column %q: score %v: %s", e.Case, e.Column, e.Value, ErrInvalidMembership)
}

func (e *MembershipError) Unwrap() error { return ErrInvalidMembership }

// CaseLabelError reports a truth table label with no matching dataset case
type CaseLabelError struct {
	Label string
	Row   string
}

func (e *CaseLabelError) Error() string {
	return fmt.Sprintf("row %s: %s %q", e.Row, ErrUnknownCaseLabel, e.Label)
}

func (e *CaseLabelError) Unwrap() error { return ErrUnknownCaseLabel }
