package engine

import (
	"errors"
	"fmt"
	"strings"

	"insurance-desk/internal/model"
)

var (
	ErrInvalidVariant   = errors.New("invalid variant")
	ErrUnknownField     = errors.New("unknown field")
	ErrStepOutOfRange   = errors.New("step out of range")
	ErrStepValidation   = errors.New("step validation failed")
	ErrStepNotReachable = errors.New("step not reachable")
	ErrIncompleteWizard = errors.New("wizard incomplete")
	ErrSubmitInProgress = errors.New("submit already in progress")
	ErrSinkFailure      = errors.New("sink failure")
)

// FieldError describes one missing or invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + " " + e.Message
}

// StepValidationError is returned by Advance when the current step has
// missing or invalid fields. The draft's step index is unchanged.
type StepValidationError struct {
	StepID    string
	StepIndex int
	Fields    []FieldError
}

func (e *StepValidationError) Error() string {
	return fmt.Sprintf("step %s: %s", e.StepID, joinFields(e.Fields))
}

func (e *StepValidationError) Unwrap() error {
	return ErrStepValidation
}

// FieldNames lists the offending field names in step order.
func (e *StepValidationError) FieldNames() []string {
	return fieldNames(e.Fields)
}

// IncompleteWizardError is returned by Submit when an applicable step has not
// been completed or the full-schema pass fails.
type IncompleteWizardError struct {
	MissingSteps []string
	Fields       []FieldError
}

func (e *IncompleteWizardError) Error() string {
	var parts []string
	if len(e.MissingSteps) > 0 {
		parts = append(parts, "steps not completed: "+strings.Join(e.MissingSteps, ", "))
	}
	if len(e.Fields) > 0 {
		parts = append(parts, joinFields(e.Fields))
	}
	return "wizard incomplete: " + strings.Join(parts, "; ")
}

func (e *IncompleteWizardError) Unwrap() error {
	return ErrIncompleteWizard
}

type SinkFailureKind string

const (
	// SinkTransport means the sink could not be reached; retrying may help.
	SinkTransport SinkFailureKind = "transport"
	// SinkRejected means the sink refused the record as submitted.
	SinkRejected SinkFailureKind = "rejected"
	// SinkServer means the sink failed while handling the record.
	SinkServer SinkFailureKind = "server"
)

// SinkFailure is a structured failure from a persistence sink. The draft is
// preserved whenever Submit returns one.
type SinkFailure struct {
	Kind    SinkFailureKind `json:"kind"`
	Message string          `json:"message"`
	Err     error           `json:"-"`
}

func NewSinkFailure(kind SinkFailureKind, message string, err error) *SinkFailure {
	return &SinkFailure{Kind: kind, Message: message, Err: err}
}

func (e *SinkFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sink %s failure: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("sink %s failure: %s", e.Kind, e.Message)
}

func (e *SinkFailure) Unwrap() error {
	return e.Err
}

func (e *SinkFailure) Is(target error) bool {
	return target == ErrSinkFailure
}

// asSinkFailure wraps arbitrary sink errors so callers always see a SinkFailure.
func asSinkFailure(err error) *SinkFailure {
	var sf *SinkFailure
	if errors.As(err, &sf) {
		return sf
	}
	return NewSinkFailure(SinkServer, "submission failed", err)
}

// Messages converts engine errors into UI messages. Unknown errors yield a
// single critical message.
func Messages(err error) []model.Message {
	if err == nil {
		return nil
	}

	var sve *StepValidationError
	if errors.As(err, &sve) {
		return fieldMessages(sve.Fields, sve.StepID)
	}

	var iwe *IncompleteWizardError
	if errors.As(err, &iwe) {
		var msgs []model.Message
		for _, s := range iwe.MissingSteps {
			msgs = append(msgs, model.Message{
				Level:   model.LevelCritical,
				Code:    model.CodeIncompleteStep,
				Step:    s,
				Message: "Step " + s + " has not been completed",
			})
		}
		return append(msgs, fieldMessages(iwe.Fields, "")...)
	}

	var sf *SinkFailure
	if errors.As(err, &sf) {
		return []model.Message{{
			Level:   model.LevelCritical,
			Code:    model.CodeSinkFailure,
			Message: sf.Message + ". Your entries were kept, please retry.",
		}}
	}

	code := model.CodeInvalidField
	switch {
	case errors.Is(err, ErrInvalidVariant):
		code = model.CodeInvalidVariant
	case errors.Is(err, ErrUnknownField):
		code = model.CodeUnknownField
	case errors.Is(err, ErrStepNotReachable), errors.Is(err, ErrStepOutOfRange):
		code = model.CodeStepNotReachable
	case errors.Is(err, ErrSubmitInProgress):
		code = model.CodeSubmitInProgress
	}
	return []model.Message{{Level: model.LevelCritical, Code: code, Message: err.Error()}}
}

func fieldMessages(fields []FieldError, step string) []model.Message {
	msgs := make([]model.Message, 0, len(fields))
	for _, fe := range fields {
		msgs = append(msgs, model.Message{
			Level:   model.LevelCritical,
			Code:    fe.Code,
			Field:   fe.Field,
			Step:    step,
			Message: fe.Message,
		})
	}
	return msgs
}

func fieldNames(fields []FieldError) []string {
	names := make([]string, 0, len(fields))
	for _, fe := range fields {
		names = append(names, fe.Field)
	}
	return names
}

func joinFields(fields []FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, fe := range fields {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, ", ")
}
