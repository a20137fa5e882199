package engine

import (
	"context"
	"errors"
	"time"

	"insurance-desk/internal/jsonpatch"
)

// ErrRecordNotFound is returned by a RecordSource for unknown ids.
var ErrRecordNotFound = errors.New("record not found")

// Submission is the immutable snapshot handed to a Sink. Fields holds only
// values active under the final variant.
type Submission struct {
	Flow        string                 `json:"flow"`
	RecordType  string                 `json:"record_type"`
	Variant     Variant                `json:"variant"`
	Fields      map[string]interface{} `json:"fields"`
	SourceID    string                 `json:"source_id,omitempty"`
	Changes     []jsonpatch.Op         `json:"changes,omitempty"`
	SubmittedAt time.Time              `json:"submitted_at"`
}

// Sink durably accepts finalized drafts. Failures should be *SinkFailure;
// other errors are wrapped as server failures.
type Sink interface {
	Submit(ctx context.Context, sub Submission) (token string, err error)
}

// Record is a stored record used to pre-populate a draft.
type Record struct {
	ID         string                 `json:"id"`
	RecordType string                 `json:"record_type"`
	Variant    Variant                `json:"variant"`
	Fields     map[string]interface{} `json:"fields"`
}

type RecordSource interface {
	Fetch(ctx context.Context, recordType, id string) (Record, error)
}

// OptionsProvider supplies ordered option lists for reference data keys.
type OptionsProvider interface {
	Options(ctx context.Context, key string) ([]string, error)
}

// Observer receives wizard activity, typically for metrics.
type Observer interface {
	Transition(flow, op string, ok bool)
	Submitted(flow, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) Transition(string, string, bool)         {}
func (nopObserver) Submitted(string, string, time.Duration) {}
