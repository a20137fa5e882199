package model

// DraftView is the read-only rendering of a wizard draft.
type DraftView struct {
	Flow           string                 `json:"flow"`
	RecordType     string                 `json:"record_type"`
	Variant        string                 `json:"variant"`
	StepIndex      int                    `json:"step_index"`
	Steps          []StepView             `json:"steps"`
	CompletedSteps []int                  `json:"completed_steps"`
	Fields         map[string]interface{} `json:"fields"`
	Errors         map[string]string      `json:"errors"`
	Submitting     bool                   `json:"submitting"`
}

type StepView struct {
	Index      int      `json:"index"`
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Applicable bool     `json:"applicable"`
	Completed  bool     `json:"completed"`
	Required   []string `json:"required"`
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Draft     DraftView `json:"draft"`
	Messages  []Message `json:"messages"`
}

type ValidationResponse struct {
	Step     int       `json:"step"`
	OK       bool      `json:"ok"`
	Messages []Message `json:"messages"`
}

type SubmitResponse struct {
	SessionID    string    `json:"session_id"`
	Confirmation string    `json:"confirmation"`
	Draft        DraftView `json:"draft"`
}

type FlowSummary struct {
	Name       string     `json:"name"`
	RecordType string     `json:"record_type"`
	Variants   []string   `json:"variants"`
	Steps      []StepView `json:"steps"`
}

type OptionsResponse struct {
	Key     string   `json:"key"`
	Options []string `json:"options"`
}

type ErrorResponse struct {
	Status   int       `json:"status"`
	Message  string    `json:"message"`
	Messages []Message `json:"messages,omitempty"`
}
