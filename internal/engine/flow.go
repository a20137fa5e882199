package engine

import (
	"fmt"
	"strings"
)

// Variant discriminates which optional field groups of a flow are active,
// e.g. INDIVIDUAL vs CORPORATE customers or HEALTH vs MOTOR policies.
type Variant string

type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindDate   Kind = "date"
	KindChoice Kind = "choice"
)

// Field is a static form field definition.
type Field struct {
	Name  string
	Label string
	Kind  Kind
	// Rule is a validator tag applied to non-empty values, e.g. "email" or "len=6,numeric".
	Rule     string
	Required bool
	// Variants restricts the field to the listed variants. Empty means every variant.
	Variants []Variant
	Options  []string
	// OptionsFrom is a reference data key template. Placeholders in braces are
	// replaced by other field values, e.g. "cities-for-state:{state}".
	OptionsFrom string
}

func (f Field) AppliesTo(v Variant) bool {
	return matchVariant(f.Variants, v)
}

// Step is one page of a wizard. Steps are static and never mutated at runtime.
type Step struct {
	ID     string
	Title  string
	Fields []string
	// Variants restricts the step to the listed variants. Empty means every variant.
	Variants []Variant
}

func (s Step) IsApplicable(v Variant) bool {
	return matchVariant(s.Variants, v)
}

// Rule is a cross-field check run on the full-schema pass before submission.
// Check is skipped when any of Fields is empty.
type Rule struct {
	Name     string
	Message  string
	Fields   []string
	Variants []Variant
	Check    func(fields map[string]interface{}) bool
}

func (r Rule) AppliesTo(v Variant) bool {
	return matchVariant(r.Variants, v)
}

// Flow is a complete wizard definition: its variants, field table, ordered steps
// and cross-field rules.
type Flow struct {
	Name           string
	RecordType     string
	Variants       []Variant
	DefaultVariant Variant
	Fields         []Field
	Steps          []Step
	Rules          []Rule
}

func (f *Flow) HasVariant(v Variant) bool {
	for _, fv := range f.Variants {
		if fv == v {
			return true
		}
	}
	return false
}

func (f *Flow) Field(name string) (Field, bool) {
	for _, fd := range f.Fields {
		if fd.Name == name {
			return fd, true
		}
	}
	return Field{}, false
}

// StepIndex returns the position of the step with the given id, or -1.
func (f *Flow) StepIndex(id string) int {
	for i, s := range f.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// RequiredFieldsFor computes the mandatory fields of a step under a variant.
// The result follows the step's field order. An inapplicable step requires nothing.
func (f *Flow) RequiredFieldsFor(stepID string, v Variant) []string {
	i := f.StepIndex(stepID)
	if i < 0 || !f.Steps[i].IsApplicable(v) {
		return nil
	}
	var required []string
	for _, name := range f.Steps[i].Fields {
		fd, ok := f.Field(name)
		if ok && fd.Required && fd.AppliesTo(v) {
			required = append(required, name)
		}
	}
	return required
}

// ActiveFields lists every field that takes part in validation under v:
// the field applies to v and sits on a step applicable to v.
func (f *Flow) ActiveFields(v Variant) []Field {
	seen := make(map[string]bool)
	var active []Field
	for _, s := range f.Steps {
		if !s.IsApplicable(v) {
			continue
		}
		for _, name := range s.Fields {
			fd, ok := f.Field(name)
			if !ok || seen[name] || !fd.AppliesTo(v) {
				continue
			}
			seen[name] = true
			active = append(active, fd)
		}
	}
	return active
}

// Check verifies the definition is internally consistent.
func (f *Flow) Check() error {
	if f.Name == "" || f.RecordType == "" {
		return fmt.Errorf("flow: name and record type are required")
	}
	if len(f.Variants) == 0 {
		return fmt.Errorf("flow %s: no variants", f.Name)
	}
	if !f.HasVariant(f.DefaultVariant) {
		return fmt.Errorf("flow %s: default variant %q is not enumerated", f.Name, f.DefaultVariant)
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %s: no steps", f.Name)
	}
	if len(f.Steps[0].Variants) != 0 {
		return fmt.Errorf("flow %s: first step %s must apply to every variant", f.Name, f.Steps[0].ID)
	}

	names := make(map[string]bool, len(f.Fields))
	for _, fd := range f.Fields {
		if names[fd.Name] {
			return fmt.Errorf("flow %s: duplicate field %s", f.Name, fd.Name)
		}
		names[fd.Name] = true
		if fd.Kind == KindChoice && len(fd.Options) == 0 && fd.OptionsFrom == "" {
			return fmt.Errorf("flow %s: choice field %s has no options", f.Name, fd.Name)
		}
		if err := f.checkVariants(fd.Variants); err != nil {
			return fmt.Errorf("flow %s: field %s: %w", f.Name, fd.Name, err)
		}
	}

	ids := make(map[string]bool, len(f.Steps))
	for _, s := range f.Steps {
		if ids[s.ID] {
			return fmt.Errorf("flow %s: duplicate step %s", f.Name, s.ID)
		}
		ids[s.ID] = true
		for _, name := range s.Fields {
			if !names[name] {
				return fmt.Errorf("flow %s: step %s references unknown field %s", f.Name, s.ID, name)
			}
		}
		if err := f.checkVariants(s.Variants); err != nil {
			return fmt.Errorf("flow %s: step %s: %w", f.Name, s.ID, err)
		}
	}

	for _, r := range f.Rules {
		if r.Check == nil || len(r.Fields) == 0 {
			return fmt.Errorf("flow %s: rule %s needs fields and a check", f.Name, r.Name)
		}
		for _, name := range r.Fields {
			if !names[name] {
				return fmt.Errorf("flow %s: rule %s references unknown field %s", f.Name, r.Name, name)
			}
		}
	}
	return nil
}

func (f *Flow) checkVariants(vs []Variant) error {
	for _, v := range vs {
		if !f.HasVariant(v) {
			return fmt.Errorf("unknown variant %q", v)
		}
	}
	return nil
}

// ParseVariant normalises user input ("individual", " Corporate ") to the
// canonical upper-case variant.
func ParseVariant(s string) Variant {
	return Variant(strings.ToUpper(strings.TrimSpace(s)))
}

func matchVariant(vs []Variant, v Variant) bool {
	if len(vs) == 0 {
		return true
	}
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}
