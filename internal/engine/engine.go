// Package engine drives multi-step wizard drafts through a flow's steps,
// enforcing per-step completeness before forward progress and full
// completeness before a draft is handed to a persistence sink.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"insurance-desk/internal/jsonpatch"
	"insurance-desk/internal/model"
)

const defaultLookupTimeout = 2 * time.Second

type draft struct {
	variant   Variant
	fields    map[string]interface{}
	stepIndex int
	completed map[int]bool
	errors    map[string]string

	// baseline holds the fields of the record the draft was loaded from.
	baseline map[string]interface{}
	sourceID string
}

func newDraft(v Variant) draft {
	return draft{
		variant:   v,
		fields:    make(map[string]interface{}),
		completed: make(map[int]bool),
		errors:    make(map[string]string),
	}
}

// Engine owns one wizard draft. It is safe for concurrent use; at most one
// Submit may be in flight and every mutating call made meanwhile fails with
// ErrSubmitInProgress.
type Engine struct {
	mu            sync.Mutex
	flow          *Flow
	sink          Sink
	options       OptionsProvider
	observer      Observer
	log           zerolog.Logger
	now           func() time.Time
	lookupTimeout time.Duration

	d          draft
	submitting bool
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithOptionsProvider enables reference data checks for fields with OptionsFrom.
func WithOptionsProvider(p OptionsProvider) Option {
	return func(e *Engine) { e.options = p }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(flow *Flow, sink Sink, opts ...Option) *Engine {
	e := &Engine{
		flow:          flow,
		sink:          sink,
		observer:      nopObserver{},
		log:           zerolog.Nop(),
		now:           time.Now,
		lookupTimeout: defaultLookupTimeout,
		d:             newDraft(flow.DefaultVariant),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("flow", flow.Name).Logger()
	return e
}

func (e *Engine) Flow() *Flow {
	return e.flow
}

func (e *Engine) StepIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.d.stepIndex
}

func (e *Engine) Variant() Variant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.d.variant
}

// Value returns the stored value of a field, including fields inactive under
// the current variant.
func (e *Engine) Value(name string) (interface{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.d.fields[name]
	return v, ok
}

// SetVariant switches the discriminator. Values are never deleted; fields
// that no longer apply drop out of validation. Completed steps are kept only
// while they form an unbroken run of applicable steps that still validate.
func (e *Engine) SetVariant(v Variant) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.submitting {
		return ErrSubmitInProgress
	}
	if !e.flow.HasVariant(v) {
		return fmt.Errorf("%w: %q for flow %s", ErrInvalidVariant, v, e.flow.Name)
	}
	if v == e.d.variant {
		return nil
	}

	prev := e.d.variant
	e.d.variant = v

	if !e.flow.Steps[e.d.stepIndex].IsApplicable(v) {
		e.d.stepIndex = max(e.prevApplicable(e.d.stepIndex), 0)
	}

	frontier := -1
	for i, s := range e.flow.Steps {
		if !s.IsApplicable(v) {
			delete(e.d.completed, i)
			continue
		}
		if frontier >= 0 {
			delete(e.d.completed, i)
			continue
		}
		if !e.d.completed[i] || len(e.validateStepLocked(i)) > 0 {
			delete(e.d.completed, i)
			frontier = i
		}
	}
	if frontier >= 0 && e.d.stepIndex > frontier {
		e.d.stepIndex = frontier
	}

	for name := range e.d.errors {
		if f, ok := e.flow.Field(name); !ok || !f.AppliesTo(v) {
			delete(e.d.errors, name)
		}
	}

	e.log.Debug().
		Str("from", string(prev)).
		Str("to", string(v)).
		Int("step_index", e.d.stepIndex).
		Msg("variant switched")
	return nil
}

// UpdateField stores a value. A nil value clears the field. When the field
// sits on the current step its validator is re-run and errors updated.
// Neither the step index nor the completed steps change.
func (e *Engine) UpdateField(name string, value interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.submitting {
		return ErrSubmitInProgress
	}
	f, ok := e.flow.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	value = normalizeValue(value)
	if value == nil {
		delete(e.d.fields, name)
	} else {
		e.d.fields[name] = value
	}

	if e.onCurrentStep(name) && f.AppliesTo(e.d.variant) {
		if fe := e.checkFieldLocked(f); fe != nil {
			e.d.errors[name] = fe.Message
		} else {
			delete(e.d.errors, name)
		}
	}
	return nil
}

// ValidateStep reports the missing or invalid fields of a step under the
// current variant. It does not mutate the draft.
func (e *Engine) ValidateStep(i int) ([]FieldError, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.flow.Steps) {
		return nil, fmt.Errorf("%w: %d", ErrStepOutOfRange, i)
	}
	return e.validateStepLocked(i), nil
}

// Advance validates the current step, marks it completed and moves to the
// next applicable step. On the last applicable step it marks completion and
// stays. On failure it returns a *StepValidationError and the step index is
// unchanged.
func (e *Engine) Advance() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.submitting {
		return ErrSubmitInProgress
	}
	return e.advanceLocked()
}

func (e *Engine) advanceLocked() error {
	cur := e.d.stepIndex
	step := e.flow.Steps[cur]

	errs := e.validateStepLocked(cur)
	e.recordErrors(step.Fields, errs)
	if len(errs) > 0 {
		e.observer.Transition(e.flow.Name, "advance", false)
		return &StepValidationError{StepID: step.ID, StepIndex: cur, Fields: errs}
	}

	e.d.completed[cur] = true
	if next := e.nextApplicable(cur); next >= 0 {
		e.d.stepIndex = next
	}
	e.observer.Transition(e.flow.Name, "advance", true)
	e.log.Debug().Str("step", step.ID).Int("step_index", e.d.stepIndex).Msg("advanced")
	return nil
}

// Retreat moves to the previous applicable step without validation. It is a
// no-op on the first step.
func (e *Engine) Retreat() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.submitting {
		return ErrSubmitInProgress
	}
	if prev := e.prevApplicable(e.d.stepIndex); prev >= 0 {
		e.d.stepIndex = prev
	}
	e.observer.Transition(e.flow.Name, "retreat", true)
	return nil
}

// JumpTo moves to a completed step, or to the immediate next applicable step
// in which case it behaves exactly like Advance.
func (e *Engine) JumpTo(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.submitting {
		return ErrSubmitInProgress
	}
	if i < 0 || i >= len(e.flow.Steps) {
		e.observer.Transition(e.flow.Name, "jump", false)
		return fmt.Errorf("%w: %d is out of range", ErrStepNotReachable, i)
	}

	if e.d.completed[i] && e.flow.Steps[i].IsApplicable(e.d.variant) {
		e.d.stepIndex = i
		e.observer.Transition(e.flow.Name, "jump", true)
		return nil
	}
	if next := e.nextApplicable(e.d.stepIndex); next >= 0 && next == i {
		return e.advanceLocked()
	}

	e.observer.Transition(e.flow.Name, "jump", false)
	return fmt.Errorf("%w: %s", ErrStepNotReachable, e.flow.Steps[i].ID)
}

// Submit validates the whole draft and hands a snapshot to the sink. On
// success the engine resets to a fresh draft and the sink's confirmation
// token is returned. On sink failure the draft is left untouched.
func (e *Engine) Submit(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		return "", ErrSubmitInProgress
	}

	sub, err := e.prepareSubmissionLocked()
	if err != nil {
		e.mu.Unlock()
		e.observer.Submitted(e.flow.Name, "incomplete", 0)
		return "", err
	}
	e.submitting = true
	e.mu.Unlock()

	start := e.now()
	token, err := e.sink.Submit(ctx, sub)
	elapsed := e.now().Sub(start)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitting = false

	if err != nil {
		sf := asSinkFailure(err)
		e.observer.Submitted(e.flow.Name, "sink_failure", elapsed)
		e.log.Warn().Err(err).Str("kind", string(sf.Kind)).Msg("submission failed, draft kept")
		return "", sf
	}

	e.observer.Submitted(e.flow.Name, "success", elapsed)
	e.log.Info().
		Str("record_type", sub.RecordType).
		Str("variant", string(sub.Variant)).
		Str("confirmation", token).
		Strs("changed", jsonpatch.Fields(sub.Changes)).
		Dur("elapsed", elapsed).
		Msg("draft submitted")
	e.d = newDraft(e.flow.DefaultVariant)
	return token, nil
}

func (e *Engine) prepareSubmissionLocked() (Submission, error) {
	v := e.d.variant
	cur := e.d.stepIndex

	curErrs := e.validateStepLocked(cur)
	e.recordErrors(e.flow.Steps[cur].Fields, curErrs)

	var missing []string
	for i, s := range e.flow.Steps {
		if !s.IsApplicable(v) {
			continue
		}
		if e.d.completed[i] || (i == cur && len(curErrs) == 0) {
			continue
		}
		missing = append(missing, s.ID)
	}
	if len(missing) > 0 {
		return Submission{}, &IncompleteWizardError{MissingSteps: missing, Fields: curErrs}
	}

	active := e.flow.ActiveFields(v)
	var errs []FieldError
	projected := make(map[string]interface{}, len(active))
	names := make([]string, 0, len(active))
	for _, f := range active {
		names = append(names, f.Name)
		if fe := e.checkFieldLocked(f); fe != nil {
			errs = append(errs, *fe)
			continue
		}
		if val, ok := e.d.fields[f.Name]; ok {
			projected[f.Name] = val
		}
	}
	for _, r := range e.flow.Rules {
		if !r.AppliesTo(v) || !e.ruleInputsPresent(r) {
			continue
		}
		if !r.Check(e.d.fields) {
			errs = append(errs, FieldError{Field: r.Fields[0], Code: model.CodeRuleViolation, Message: r.Message})
		}
	}
	e.recordErrors(names, errs)
	if len(errs) > 0 {
		return Submission{}, &IncompleteWizardError{Fields: errs}
	}

	sub := Submission{
		Flow:        e.flow.Name,
		RecordType:  e.flow.RecordType,
		Variant:     v,
		Fields:      projected,
		SourceID:    e.d.sourceID,
		SubmittedAt: e.now().UTC(),
	}
	if e.d.baseline != nil {
		sub.Changes = jsonpatch.Diff(cloneFields(e.d.baseline), cloneFields(projected), "")
	}
	return sub, nil
}

// Load replaces the draft with one pre-populated from an existing record.
// The loaded values become the baseline for the submission's change set.
// Unknown field names are ignored.
func (e *Engine) Load(rec Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.submitting {
		return ErrSubmitInProgress
	}
	v := rec.Variant
	if v == "" {
		v = e.flow.DefaultVariant
	}
	if !e.flow.HasVariant(v) {
		return fmt.Errorf("%w: %q for flow %s", ErrInvalidVariant, v, e.flow.Name)
	}

	d := newDraft(v)
	for name, val := range rec.Fields {
		if _, ok := e.flow.Field(name); !ok {
			continue
		}
		if val = normalizeValue(val); val != nil {
			d.fields[name] = val
		}
	}
	d.baseline = cloneFields(d.fields)
	d.sourceID = rec.ID
	e.d = d

	e.log.Debug().Str("source_id", rec.ID).Int("fields", len(d.fields)).Msg("draft loaded")
	return nil
}

// Reset discards the draft.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.submitting {
		return ErrSubmitInProgress
	}
	e.d = newDraft(e.flow.DefaultVariant)
	return nil
}

// Snapshot renders the draft for display.
func (e *Engine) Snapshot() model.DraftView {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.d.variant
	steps := make([]model.StepView, 0, len(e.flow.Steps))
	for i, s := range e.flow.Steps {
		required := e.flow.RequiredFieldsFor(s.ID, v)
		if required == nil {
			required = []string{}
		}
		steps = append(steps, model.StepView{
			Index:      i,
			ID:         s.ID,
			Title:      s.Title,
			Applicable: s.IsApplicable(v),
			Completed:  e.d.completed[i],
			Required:   required,
		})
	}

	completed := make([]int, 0, len(e.d.completed))
	for i := range e.d.completed {
		completed = append(completed, i)
	}
	sort.Ints(completed)

	errs := make(map[string]string, len(e.d.errors))
	for k, msg := range e.d.errors {
		errs[k] = msg
	}

	return model.DraftView{
		Flow:           e.flow.Name,
		RecordType:     e.flow.RecordType,
		Variant:        string(v),
		StepIndex:      e.d.stepIndex,
		Steps:          steps,
		CompletedSteps: completed,
		Fields:         cloneFields(e.d.fields),
		Errors:         errs,
		Submitting:     e.submitting,
	}
}

func (e *Engine) validateStepLocked(i int) []FieldError {
	s := e.flow.Steps[i]
	if !s.IsApplicable(e.d.variant) {
		return nil
	}
	var errs []FieldError
	for _, name := range s.Fields {
		f, ok := e.flow.Field(name)
		if !ok || !f.AppliesTo(e.d.variant) {
			continue
		}
		if fe := e.checkFieldLocked(f); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}

func (e *Engine) checkFieldLocked(f Field) *FieldError {
	if fe := checkField(withClock(context.Background(), e.now), f, e.d.fields); fe != nil {
		return fe
	}
	if f.OptionsFrom == "" || e.options == nil {
		return nil
	}
	s, ok := e.d.fields[f.Name].(string)
	if !ok || s == "" {
		return nil
	}
	key, ok := e.optionsKey(f.OptionsFrom)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.lookupTimeout)
	defer cancel()
	opts, err := e.options.Options(ctx, key)
	if err != nil {
		e.log.Warn().Err(err).Str("key", key).Msg("reference data unavailable, skipping option check")
		return nil
	}
	if !contains(opts, s) {
		return &FieldError{Field: f.Name, Code: model.CodeInvalidField, Message: "is not a listed option"}
	}
	return nil
}

// optionsKey fills "{field}" placeholders from the draft. It reports false
// when a referenced field is empty.
func (e *Engine) optionsKey(tmpl string) (string, bool) {
	var b strings.Builder
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			b.WriteString(tmpl)
			return b.String(), true
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			b.WriteString(tmpl)
			return b.String(), true
		}
		b.WriteString(tmpl[:open])
		val, ok := e.d.fields[tmpl[open+1:open+end]].(string)
		if !ok || val == "" {
			return "", false
		}
		b.WriteString(val)
		tmpl = tmpl[open+end+1:]
	}
}

func (e *Engine) ruleInputsPresent(r Rule) bool {
	for _, name := range r.Fields {
		if v, ok := e.d.fields[name]; !ok || isEmpty(v) {
			return false
		}
	}
	return true
}

// recordErrors refreshes the error map for the given fields.
func (e *Engine) recordErrors(names []string, errs []FieldError) {
	for _, name := range names {
		delete(e.d.errors, name)
	}
	for _, fe := range errs {
		e.d.errors[fe.Field] = fe.Message
	}
}

func (e *Engine) onCurrentStep(name string) bool {
	for _, n := range e.flow.Steps[e.d.stepIndex].Fields {
		if n == name {
			return true
		}
	}
	return false
}

func (e *Engine) nextApplicable(i int) int {
	for j := i + 1; j < len(e.flow.Steps); j++ {
		if e.flow.Steps[j].IsApplicable(e.d.variant) {
			return j
		}
	}
	return -1
}

func (e *Engine) prevApplicable(i int) int {
	for j := i - 1; j >= 0; j-- {
		if e.flow.Steps[j].IsApplicable(e.d.variant) {
			return j
		}
	}
	return -1
}

func cloneFields(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
