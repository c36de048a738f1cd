package masking

import (
	"fmt"
	"strings"
)

// Operator is a replacement policy for one entity type. Replace receives
// the matched text and returns what goes into the masked output. Today the
// only operator is a constant placeholder; hashing or format-preserving
// policies fit the same shape.
type Operator interface {
	Replace(entityType, match string) (string, error)
}

// ReplaceOperator substitutes a constant placeholder for every match.
type ReplaceOperator struct {
	NewValue string
}

// Replace returns the configured placeholder.
func (o ReplaceOperator) Replace(string, string) (string, error) {
	return o.NewValue, nil
}

// OperatorTable maps entity type to its replacement policy. A table is
// valid only when it carries a DEFAULT entry; Resolve falls back to it for
// types without a specific policy.
type OperatorTable map[string]Operator

// Resolve returns the operator for entityType, falling back to DEFAULT.
func (t OperatorTable) Resolve(entityType string) (Operator, error) {
	if op, ok := t[entityType]; ok {
		return op, nil
	}
	if op, ok := t[EntityDefault]; ok {
		return op, nil
	}
	return nil, fmt.Errorf("operator table has no %s entry", EntityDefault)
}

// Validate checks the mandatory DEFAULT entry.
func (t OperatorTable) Validate() error {
	if _, ok := t[EntityDefault]; !ok {
		return fmt.Errorf("operator table has no %s entry", EntityDefault)
	}
	return nil
}

// AnonymizerEngine rewrites text by replacing detected spans with their
// configured placeholders.
type AnonymizerEngine struct{}

// NewAnonymizerEngine creates an anonymizer.
func NewAnonymizerEngine() *AnonymizerEngine {
	return &AnonymizerEngine{}
}

// Anonymize rebuilds text with each [Start,End) span replaced by its
// operator's output. Detections must be non-overlapping and sorted by
// ascending start, as produced by the analyzer. All boundaries are taken
// from the original text's offsets, so replacements of differing length
// cannot shift one another: the output is spliced in a single left-to-right
// pass, never by positional mutation after a prior replacement.
func (e *AnonymizerEngine) Anonymize(text string, detections []Detection, operators OperatorTable) (string, error) {
	if len(detections) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, d := range detections {
		if d.Start < last || d.End > len(text) {
			return "", fmt.Errorf("detection span [%d,%d) out of order or out of bounds", d.Start, d.End)
		}
		op, err := operators.Resolve(d.EntityType)
		if err != nil {
			return "", err
		}
		replacement, err := op.Replace(d.EntityType, text[d.Start:d.End])
		if err != nil {
			return "", fmt.Errorf("operator for %s failed: %w", d.EntityType, err)
		}
		b.WriteString(text[last:d.Start])
		b.WriteString(replacement)
		last = d.End
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// DefaultOperators returns the fixed entity-type to placeholder table.
// US_PASSPORT maps to the DEFAULT placeholder but is listed explicitly for
// clarity.
func DefaultOperators() OperatorTable {
	return OperatorTable{
		EntityDefault:      ReplaceOperator{NewValue: "<PHI>"},
		EntityPerson:       ReplaceOperator{NewValue: "<PERSON>"},
		EntityPhoneNumber:  ReplaceOperator{NewValue: "<PHONE>"},
		EntityEmailAddress: ReplaceOperator{NewValue: "<EMAIL>"},
		EntityUSSSN:        ReplaceOperator{NewValue: "<SSN>"},
		"SSN":              ReplaceOperator{NewValue: "<SSN>"},
		EntityUSITIN:       ReplaceOperator{NewValue: "<ITIN>"},
		EntityUSPassport:   ReplaceOperator{NewValue: "<PHI>"},
		EntityDateTime:     ReplaceOperator{NewValue: "<DATE>"},
		EntityLocation:     ReplaceOperator{NewValue: "<LOCATION>"},
		EntityMRN:          ReplaceOperator{NewValue: "<MRN>"},
		EntityOrganization: ReplaceOperator{NewValue: "<ORGANIZATION>"},
		EntityURL:          ReplaceOperator{NewValue: "<URL>"},
		EntityCreditCard:   ReplaceOperator{NewValue: "<CREDIT_CARD>"},
		EntityZipCode:      ReplaceOperator{NewValue: "<ZIP>"},
		EntityVehicleVIN:   ReplaceOperator{NewValue: "<VIN>"},
		EntityLicensePlate: ReplaceOperator{NewValue: "<LICENSE_PLATE>"},
		EntityHealthPlanID: ReplaceOperator{NewValue: "<HPN>"},
		EntityDeviceID:     ReplaceOperator{NewValue: "<DEVICE>"},
	}
}
