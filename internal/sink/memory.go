package sink

import (
	"context"
	"fmt"
	"sync"

	"insurance-desk/internal/engine"
)

// MemorySink keeps records in memory. It stands in for a real backend in
// development and tests.
type MemorySink struct {
	mu       sync.Mutex
	records  map[string]engine.Record
	subs     []engine.Submission
	failNext *engine.SinkFailure
}

func NewMemorySink() *MemorySink {
	return &MemorySink{records: make(map[string]engine.Record)}
}

// Seed stores an existing record, e.g. a customer to pre-populate drafts from.
func (s *MemorySink) Seed(rec engine.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = cloneRecord(rec)
}

// FailNext makes the next Submit return f.
func (s *MemorySink) FailNext(f *engine.SinkFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = f
}

func (s *MemorySink) Submit(ctx context.Context, sub engine.Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", engine.NewSinkFailure(engine.SinkTransport, "submission cancelled", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if f := s.failNext; f != nil {
		s.failNext = nil
		return "", f
	}

	token := newToken(sub.RecordType)
	rec := engine.Record{ID: token, RecordType: sub.RecordType, Variant: sub.Variant, Fields: sub.Fields}
	s.records[token] = cloneRecord(rec)

	if src, ok := s.records[sub.SourceID]; ok && src.RecordType == sub.RecordType {
		rec.ID = src.ID
		s.records[src.ID] = cloneRecord(rec)
	}
	s.subs = append(s.subs, sub)
	return token, nil
}

func (s *MemorySink) Fetch(_ context.Context, recordType, id string) (engine.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.RecordType != recordType {
		return engine.Record{}, fmt.Errorf("%w: %s %s", engine.ErrRecordNotFound, recordType, id)
	}
	return cloneRecord(rec), nil
}

// Submissions returns every accepted submission in order.
func (s *MemorySink) Submissions() []engine.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Submission, len(s.subs))
	copy(out, s.subs)
	return out
}

func cloneRecord(rec engine.Record) engine.Record {
	fields := make(map[string]interface{}, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	rec.Fields = fields
	return rec
}
