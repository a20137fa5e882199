package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSink struct {
	mu      sync.Mutex
	subs    []Submission
	err     error
	release chan struct{}
	entered chan struct{}
}

func (s *fakeSink) Submit(ctx context.Context, sub Submission) (string, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.subs = append(s.subs, sub)
	return "CUS-0001", nil
}

func customerFlow() *Flow {
	return &Flow{
		Name:           "customer",
		RecordType:     "customer",
		Variants:       []Variant{"INDIVIDUAL", "CORPORATE"},
		DefaultVariant: "INDIVIDUAL",
		Fields: []Field{
			{Name: "firstName", Kind: KindString, Required: true, Variants: []Variant{"INDIVIDUAL"}},
			{Name: "lastName", Kind: KindString, Required: true, Variants: []Variant{"INDIVIDUAL"}},
			{Name: "companyName", Kind: KindString, Required: true, Variants: []Variant{"CORPORATE"}},
			{Name: "contactPersonName", Kind: KindString, Required: true, Variants: []Variant{"CORPORATE"}},
			{Name: "email", Kind: KindString, Rule: "email", Required: true},
			{Name: "address", Kind: KindString},
			{Name: "city", Kind: KindString, OptionsFrom: "cities-for-state:{state}"},
			{Name: "state", Kind: KindString},
		},
		Steps: []Step{
			{ID: "info", Fields: []string{"firstName", "lastName", "companyName", "contactPersonName", "email", "address", "state", "city"}},
			{ID: "confirm"},
		},
	}
}

func policyFlow() *Flow {
	return &Flow{
		Name:           "policy",
		RecordType:     "policy-application",
		Variants:       []Variant{"HEALTH", "MOTOR"},
		DefaultVariant: "HEALTH",
		Fields: []Field{
			{Name: "proposerName", Kind: KindString, Required: true},
			{Name: "startDate", Kind: KindDate, Required: true},
			{Name: "endDate", Kind: KindDate, Required: true},
			{Name: "sumInsured", Kind: KindNumber, Rule: "gt=0", Required: true},
			{Name: "preExistingDisease", Kind: KindBool, Required: true, Variants: []Variant{"HEALTH"}},
			{Name: "vehicleNumber", Kind: KindString, Rule: "vehiclereg", Required: true, Variants: []Variant{"MOTOR"}},
		},
		Steps: []Step{
			{ID: "proposer", Fields: []string{"proposerName"}},
			{ID: "coverage", Fields: []string{"startDate", "endDate", "sumInsured"}},
			{ID: "medical-history", Fields: []string{"preExistingDisease"}, Variants: []Variant{"HEALTH"}},
			{ID: "vehicle", Fields: []string{"vehicleNumber"}, Variants: []Variant{"MOTOR"}},
			{ID: "review"},
		},
		Rules: []Rule{{
			Name:    "period",
			Message: "must not be before the start date",
			Fields:  []string{"endDate", "startDate"},
			Check: func(f map[string]interface{}) bool {
				start, _ := ParseDate(f["startDate"].(string))
				end, _ := ParseDate(f["endDate"].(string))
				return !end.Before(start)
			},
		}},
	}
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFlowDefinitionsAreConsistent(t *testing.T) {
	for _, f := range []*Flow{customerFlow(), policyFlow()} {
		if err := f.Check(); err != nil {
			t.Fatalf("flow %s: %v", f.Name, err)
		}
	}
}

func TestIndividualTwoStepSubmit(t *testing.T) {
	sink := &fakeSink{}
	e := New(customerFlow(), sink)

	mustDo(t, e.SetVariant("INDIVIDUAL"))
	mustDo(t, e.UpdateField("firstName", "Asha"))
	mustDo(t, e.UpdateField("lastName", "Rao"))
	mustDo(t, e.UpdateField("email", "a@x.com"))
	mustDo(t, e.Advance())

	if e.StepIndex() != 1 {
		t.Fatalf("expected step 1 (confirm), got %d", e.StepIndex())
	}

	token, err := e.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if token != "CUS-0001" {
		t.Fatalf("expected token CUS-0001, got %s", token)
	}

	view := e.Snapshot()
	if view.StepIndex != 0 || len(view.Fields) != 0 || len(view.CompletedSteps) != 0 {
		t.Fatalf("expected fresh draft after submit, got %+v", view)
	}

	if len(sink.subs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(sink.subs))
	}
	sub := sink.subs[0]
	if sub.RecordType != "customer" || sub.Variant != "INDIVIDUAL" {
		t.Fatalf("unexpected submission header: %s %s", sub.RecordType, sub.Variant)
	}
	if sub.Fields["firstName"] != "Asha" || sub.Fields["email"] != "a@x.com" {
		t.Fatalf("unexpected submitted fields: %v", sub.Fields)
	}
	if sub.Changes != nil {
		t.Fatalf("fresh drafts carry no change set, got %v", sub.Changes)
	}
}

func TestCorporateMissingContactPerson(t *testing.T) {
	e := New(customerFlow(), &fakeSink{})

	mustDo(t, e.SetVariant("CORPORATE"))
	mustDo(t, e.UpdateField("companyName", "Acme"))

	err := e.Advance()
	var sve *StepValidationError
	if !errors.As(err, &sve) {
		t.Fatalf("expected StepValidationError, got %v", err)
	}
	if !errors.Is(err, ErrStepValidation) {
		t.Fatal("expected error to match ErrStepValidation")
	}

	found := false
	for _, name := range sve.FieldNames() {
		if name == "contactPersonName" {
			found = true
		}
		if name == "firstName" || name == "lastName" {
			t.Fatalf("individual field %s must not be required for CORPORATE", name)
		}
	}
	if !found {
		t.Fatalf("expected contactPersonName in %v", sve.FieldNames())
	}
	if e.StepIndex() != 0 {
		t.Fatalf("step index must be unchanged, got %d", e.StepIndex())
	}
	if msg := e.Snapshot().Errors["contactPersonName"]; msg != "is required" {
		t.Fatalf("expected inline error for contactPersonName, got %q", msg)
	}
}

func TestVariantSwitchKeepsSharedFields(t *testing.T) {
	e := New(customerFlow(), &fakeSink{})

	mustDo(t, e.SetVariant("INDIVIDUAL"))
	mustDo(t, e.UpdateField("email", "a@x.com"))
	mustDo(t, e.UpdateField("firstName", "Asha"))
	mustDo(t, e.SetVariant("CORPORATE"))

	if v, _ := e.Value("email"); v != "a@x.com" {
		t.Fatalf("expected email to survive variant switch, got %v", v)
	}
	if v, _ := e.Value("firstName"); v != "Asha" {
		t.Fatalf("inactive fields are retained, got %v", v)
	}

	required := e.Flow().RequiredFieldsFor("info", "CORPORATE")
	for _, name := range required {
		if name == "firstName" {
			t.Fatal("firstName must not be required for CORPORATE")
		}
	}
}

func TestSetVariantIdempotent(t *testing.T) {
	once := New(policyFlow(), &fakeSink{})
	twice := New(policyFlow(), &fakeSink{})

	for _, e := range []*Engine{once, twice} {
		mustDo(t, e.UpdateField("proposerName", "Asha Rao"))
		mustDo(t, e.Advance())
	}
	mustDo(t, once.SetVariant("MOTOR"))
	mustDo(t, twice.SetVariant("MOTOR"))
	mustDo(t, twice.SetVariant("MOTOR"))

	a, b := once.Snapshot(), twice.Snapshot()
	if a.StepIndex != b.StepIndex || len(a.CompletedSteps) != len(b.CompletedSteps) || len(a.Fields) != len(b.Fields) {
		t.Fatalf("snapshots differ: %+v vs %+v", a, b)
	}
	for i := range a.Steps {
		if a.Steps[i].Applicable != b.Steps[i].Applicable {
			t.Fatalf("step %d applicability differs", i)
		}
	}
}

func TestInvalidVariant(t *testing.T) {
	e := New(customerFlow(), &fakeSink{})

	err := e.SetVariant("HEALTH")
	if !errors.Is(err, ErrInvalidVariant) {
		t.Fatalf("expected ErrInvalidVariant, got %v", err)
	}
	if e.Variant() != "INDIVIDUAL" {
		t.Fatalf("variant must be unchanged, got %s", e.Variant())
	}
}

func TestUnknownField(t *testing.T) {
	e := New(customerFlow(), &fakeSink{})

	if err := e.UpdateField("favouriteColour", "blue"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestUpdateFieldValidatesCurrentStepOnly(t *testing.T) {
	e := New(customerFlow(), &fakeSink{})

	mustDo(t, e.UpdateField("email", "not-an-email"))
	if msg := e.Snapshot().Errors["email"]; msg == "" {
		t.Fatal("expected inline error for invalid email")
	}

	mustDo(t, e.UpdateField("email", "a@x.com"))
	view := e.Snapshot()
	if _, ok := view.Errors["email"]; ok {
		t.Fatal("expected email error to clear")
	}
	if view.StepIndex != 0 || len(view.CompletedSteps) != 0 {
		t.Fatal("UpdateField must not move the wizard")
	}
}

func TestAdvanceRequiresEveryRequiredField(t *testing.T) {
	for _, v := range []Variant{"HEALTH", "MOTOR"} {
		e := New(policyFlow(), &fakeSink{})
		mustDo(t, e.SetVariant(v))
		mustDo(t, e.UpdateField("proposerName", "Asha Rao"))
		mustDo(t, e.Advance())

		// coverage: each required field missing in turn
		full := map[string]interface{}{"startDate": "2025-01-01", "endDate": "2025-12-31", "sumInsured": 500000}
		order := []string{"startDate", "endDate", "sumInsured"}
		for _, missing := range order {
			for _, name := range order {
				val := full[name]
				if name == missing {
					val = nil
				}
				mustDo(t, e.UpdateField(name, val))
			}
			if err := e.Advance(); !errors.Is(err, ErrStepValidation) {
				t.Fatalf("%s: expected failure without %s, got %v", v, missing, err)
			}
			if e.StepIndex() != 1 {
				t.Fatalf("%s: step index moved on failure", v)
			}
		}

		mustDo(t, e.UpdateField("sumInsured", -5))
		if err := e.Advance(); !errors.Is(err, ErrStepValidation) {
			t.Fatalf("%s: expected failure for negative sum insured", v)
		}

		for _, name := range order {
			mustDo(t, e.UpdateField(name, full[name]))
		}
		mustDo(t, e.Advance())

		want := map[Variant]string{"HEALTH": "medical-history", "MOTOR": "vehicle"}[v]
		if got := e.Flow().Steps[e.StepIndex()].ID; got != want {
			t.Fatalf("%s: expected step %s, got %s", v, want, got)
		}
	}
}

func TestAdvanceSkipsInapplicableSteps(t *testing.T) {
	e := New(policyFlow(), &fakeSink{})
	mustDo(t, e.SetVariant("MOTOR"))
	mustDo(t, e.UpdateField("proposerName", "Asha Rao"))
	mustDo(t, e.Advance())
	mustDo(t, e.UpdateField("startDate", "2025-01-01"))
	mustDo(t, e.UpdateField("endDate", "2025-12-31"))
	mustDo(t, e.UpdateField("sumInsured", 300000))
	mustDo(t, e.Advance())

	if e.StepIndex() != 3 {
		t.Fatalf("expected vehicle step (3), got %d", e.StepIndex())
	}

	mustDo(t, e.UpdateField("vehicleNumber", "MH12AB1234"))
	mustDo(t, e.Advance())
	if e.StepIndex() != 4 {
		t.Fatalf("expected review step (4), got %d", e.StepIndex())
	}

	mustDo(t, e.Retreat())
	if e.StepIndex() != 3 {
		t.Fatalf("retreat should land on vehicle, got %d", e.StepIndex())
	}
	mustDo(t, e.Retreat())
	if e.StepIndex() != 1 {
		t.Fatalf("retreat should skip medical-history, got %d", e.StepIndex())
	}
}

func TestRetreatThenAdvanceIsStable(t *testing.T) {
	e := New(policyFlow(), &fakeSink{})
	mustDo(t, e.UpdateField("proposerName", "Asha Rao"))
	mustDo(t, e.Advance())
	mustDo(t, e.UpdateField("startDate", "2025-01-01"))
	mustDo(t, e.UpdateField("endDate", "2025-12-31"))
	mustDo(t, e.UpdateField("sumInsured", 300000))
	mustDo(t, e.Advance())

	before := e.Snapshot()
	mustDo(t, e.Retreat())
	mustDo(t, e.Advance())
	after := e.Snapshot()

	if before.StepIndex != after.StepIndex {
		t.Fatalf("expected step %d, got %d", before.StepIndex, after.StepIndex)
	}
	if len(before.CompletedSteps) != len(after.CompletedSteps) {
		t.Fatalf("completed steps changed: %v -> %v", before.CompletedSteps, after.CompletedSteps)
	}
}

func TestRetreatAtFirstStepIsNoop(t *testing.T) {
	e := New(customerFlow(), &fakeSink{})
	mustDo(t, e.Retreat())
	if e.StepIndex() != 0 {
		t.Fatalf("expected step 0, got %d", e.StepIndex())
	}
}

func TestJumpTo(t *testing.T) {
	e := New(policyFlow(), &fakeSink{})

	if err := e.JumpTo(0); !errors.Is(err, ErrStepNotReachable) {
		t.Fatalf("uncompleted current step is not a jump target, got %v", err)
	}
	if err := e.JumpTo(4); !errors.Is(err, ErrStepNotReachable) {
		t.Fatalf("expected ErrStepNotReachable for review, got %v", err)
	}
	if err := e.JumpTo(99); !errors.Is(err, ErrStepNotReachable) {
		t.Fatalf("expected ErrStepNotReachable for out of range, got %v", err)
	}

	// next applicable step behaves like Advance, including validation
	if err := e.JumpTo(1); !errors.Is(err, ErrStepValidation) {
		t.Fatalf("expected validation failure jumping from an empty step, got %v", err)
	}
	mustDo(t, e.UpdateField("proposerName", "Asha Rao"))
	mustDo(t, e.JumpTo(1))
	if e.StepIndex() != 1 {
		t.Fatalf("expected step 1, got %d", e.StepIndex())
	}

	// back to a completed step
	mustDo(t, e.JumpTo(0))
	if e.StepIndex() != 0 {
		t.Fatalf("expected step 0, got %d", e.StepIndex())
	}

	// step 2 is neither completed nor next from 0
	if err := e.JumpTo(2); !errors.Is(err, ErrStepNotReachable) {
		t.Fatalf("expected ErrStepNotReachable, got %v", err)
	}
	if e.StepIndex() != 0 {
		t.Fatal("failed jump must not move the wizard")
	}
}

func TestSubmitIncompleteWizard(t *testing.T) {
	sink := &fakeSink{}
	e := New(policyFlow(), sink)
	mustDo(t, e.UpdateField("proposerName", "Asha Rao"))
	mustDo(t, e.Advance())
	mustDo(t, e.UpdateField("startDate", "2025-01-01"))
	mustDo(t, e.UpdateField("endDate", "2025-12-31"))
	mustDo(t, e.UpdateField("sumInsured", 300000))

	_, err := e.Submit(context.Background())
	var iwe *IncompleteWizardError
	if !errors.As(err, &iwe) {
		t.Fatalf("expected IncompleteWizardError, got %v", err)
	}
	if len(iwe.MissingSteps) != 2 || iwe.MissingSteps[0] != "medical-history" || iwe.MissingSteps[1] != "review" {
		t.Fatalf("unexpected missing steps: %v", iwe.MissingSteps)
	}
	if len(sink.subs) != 0 {
		t.Fatal("sink must not be called for an incomplete wizard")
	}
	if e.StepIndex() != 1 || len(e.Snapshot().CompletedSteps) != 1 {
		t.Fatal("failed submit must not change navigation state")
	}
}

func completePolicy(t *testing.T, e *Engine, start, end string) {
	t.Helper()
	mustDo(t, e.UpdateField("proposerName", "Asha Rao"))
	mustDo(t, e.Advance())
	mustDo(t, e.UpdateField("startDate", start))
	mustDo(t, e.UpdateField("endDate", end))
	mustDo(t, e.UpdateField("sumInsured", 300000))
	mustDo(t, e.Advance())
	mustDo(t, e.UpdateField("preExistingDisease", false))
	mustDo(t, e.Advance())
}

func TestSubmitCrossFieldRule(t *testing.T) {
	sink := &fakeSink{}
	e := New(policyFlow(), sink)
	completePolicy(t, e, "2025-06-01", "2025-01-01")

	_, err := e.Submit(context.Background())
	var iwe *IncompleteWizardError
	if !errors.As(err, &iwe) {
		t.Fatalf("expected IncompleteWizardError, got %v", err)
	}
	if len(iwe.Fields) != 1 || iwe.Fields[0].Field != "endDate" {
		t.Fatalf("expected endDate rule violation, got %v", iwe.Fields)
	}
	if len(sink.subs) != 0 {
		t.Fatal("sink must not be called when a rule fails")
	}
}

func TestSubmitDropsFieldsOfOtherVariants(t *testing.T) {
	sink := &fakeSink{}
	e := New(policyFlow(), sink)
	mustDo(t, e.UpdateField("vehicleNumber", "MH12AB1234"))
	completePolicy(t, e, "2025-01-01", "2025-12-31")

	if _, err := e.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, ok := sink.subs[0].Fields["vehicleNumber"]; ok {
		t.Fatal("MOTOR-only field must be cleared from a HEALTH submission")
	}
	if sink.subs[0].Fields["preExistingDisease"] != false {
		t.Fatal("expected preExistingDisease in submission")
	}
}

func TestVariantSwitchReopensSteps(t *testing.T) {
	e := New(policyFlow(), &fakeSink{})
	completePolicy(t, e, "2025-01-01", "2025-12-31")
	if e.StepIndex() != 4 {
		t.Fatalf("expected review, got %d", e.StepIndex())
	}

	mustDo(t, e.SetVariant("MOTOR"))

	if e.StepIndex() != 3 {
		t.Fatalf("expected wizard to return to the vehicle step, got %d", e.StepIndex())
	}
	if _, err := e.Submit(context.Background()); !errors.Is(err, ErrIncompleteWizard) {
		t.Fatalf("expected ErrIncompleteWizard after switching to MOTOR, got %v", err)
	}
	if v, _ := e.Value("preExistingDisease"); v != false {
		t.Fatal("HEALTH answers are retained after switching")
	}
}

func TestSinkFailurePreservesDraft(t *testing.T) {
	sink := &fakeSink{err: NewSinkFailure(SinkTransport, "policy service unreachable", nil)}
	e := New(policyFlow(), sink)
	completePolicy(t, e, "2025-01-01", "2025-12-31")
	before := e.Snapshot()

	_, err := e.Submit(context.Background())
	if !errors.Is(err, ErrSinkFailure) {
		t.Fatalf("expected ErrSinkFailure, got %v", err)
	}
	var sf *SinkFailure
	if !errors.As(err, &sf) || sf.Kind != SinkTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}

	after := e.Snapshot()
	if after.StepIndex != before.StepIndex || len(after.Fields) != len(before.Fields) {
		t.Fatal("draft must be preserved on sink failure")
	}

	sink.err = errors.New("boom")
	_, err = e.Submit(context.Background())
	if !errors.As(err, &sf) || sf.Kind != SinkServer {
		t.Fatalf("plain errors are reported as server failures, got %v", err)
	}

	sink.err = nil
	if _, err := e.Submit(context.Background()); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
}

func TestConcurrentSubmitIsRejected(t *testing.T) {
	sink := &fakeSink{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	e := New(policyFlow(), sink)
	completePolicy(t, e, "2025-01-01", "2025-12-31")

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background())
		done <- err
	}()

	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first submit never reached the sink")
	}

	if _, err := e.Submit(context.Background()); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	if err := e.UpdateField("proposerName", "Other"); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("edits during submit must be refused, got %v", err)
	}
	if !e.Snapshot().Submitting {
		t.Fatal("expected snapshot to report submitting")
	}

	close(sink.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if len(sink.subs) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(sink.subs))
	}
}

func TestLoadProducesChangeSet(t *testing.T) {
	sink := &fakeSink{}
	e := New(customerFlow(), sink)

	mustDo(t, e.Load(Record{
		ID:      "cust-42",
		Variant: "INDIVIDUAL",
		Fields: map[string]interface{}{
			"firstName": "Asha",
			"lastName":  "Rao",
			"email":     "a@x.com",
			"legacyId":  "ignored",
		},
	}))
	if _, ok := e.Value("legacyId"); ok {
		t.Fatal("unknown fields must not be loaded")
	}

	mustDo(t, e.UpdateField("email", "asha@x.com"))
	mustDo(t, e.Advance())
	if _, err := e.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	sub := sink.subs[0]
	if sub.SourceID != "cust-42" {
		t.Fatalf("expected source id cust-42, got %s", sub.SourceID)
	}
	if len(sub.Changes) != 1 || sub.Changes[0].Path != "/email" || sub.Changes[0].Op != "replace" {
		t.Fatalf("unexpected change set: %+v", sub.Changes)
	}
}

type staticOptions map[string][]string

func (s staticOptions) Options(_ context.Context, key string) ([]string, error) {
	opts, ok := s[key]
	if !ok {
		return nil, errors.New("unknown key")
	}
	return opts, nil
}

func TestOptionsFromReferenceData(t *testing.T) {
	opts := staticOptions{"cities-for-state:Maharashtra": {"Mumbai", "Pune"}}
	e := New(customerFlow(), &fakeSink{}, WithOptionsProvider(opts))

	mustDo(t, e.UpdateField("state", "Maharashtra"))
	mustDo(t, e.UpdateField("city", "Chennai"))
	if msg := e.Snapshot().Errors["city"]; msg != "is not a listed option" {
		t.Fatalf("expected option error, got %q", msg)
	}

	mustDo(t, e.UpdateField("city", "Pune"))
	if _, ok := e.Snapshot().Errors["city"]; ok {
		t.Fatal("expected city error to clear")
	}

	// unknown keys are skipped rather than blocking the user
	mustDo(t, e.UpdateField("state", "Atlantis"))
	mustDo(t, e.UpdateField("city", "Anywhere"))
	if _, ok := e.Snapshot().Errors["city"]; ok {
		t.Fatal("unavailable reference data must not block input")
	}
}

func TestResetDiscardsDraft(t *testing.T) {
	e := New(customerFlow(), &fakeSink{})
	mustDo(t, e.SetVariant("CORPORATE"))
	mustDo(t, e.UpdateField("companyName", "Acme"))
	mustDo(t, e.Reset())

	view := e.Snapshot()
	if view.Variant != "INDIVIDUAL" || len(view.Fields) != 0 {
		t.Fatalf("expected fresh draft, got %+v", view)
	}
}

func TestDateRulesUseEngineClock(t *testing.T) {
	flow := &Flow{
		Name:           "customer",
		RecordType:     "customer",
		Variants:       []Variant{"INDIVIDUAL"},
		DefaultVariant: "INDIVIDUAL",
		Fields: []Field{
			{Name: "dateOfBirth", Kind: KindDate, Rule: "notfuture", Required: true},
		},
		Steps: []Step{
			{ID: "info", Fields: []string{"dateOfBirth"}},
			{ID: "confirm"},
		},
	}
	clock := func() time.Time { return time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC) }
	e := New(flow, &fakeSink{}, WithClock(clock))

	mustDo(t, e.UpdateField("dateOfBirth", "2024-06-01"))
	err := e.Advance()
	var sve *StepValidationError
	if !errors.As(err, &sve) {
		t.Fatalf("expected step validation error for a birth date after the clock, got %v", err)
	}
	if sve.Fields[0].Field != "dateOfBirth" || sve.Fields[0].Code != "INVALID_FIELD" {
		t.Fatalf("unexpected field error: %+v", sve.Fields[0])
	}

	mustDo(t, e.UpdateField("dateOfBirth", "2019-12-31"))
	mustDo(t, e.Advance())
	if e.StepIndex() != 1 {
		t.Fatalf("expected step 1, got %d", e.StepIndex())
	}
}
