package model

type Message struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message"`
}

const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
)

const (
	CodeMissingField     = "MISSING_FIELD"
	CodeInvalidField     = "INVALID_FIELD"
	CodeRuleViolation    = "RULE_VIOLATION"
	CodeIncompleteStep   = "INCOMPLETE_STEP"
	CodeInvalidVariant   = "INVALID_VARIANT"
	CodeUnknownField     = "UNKNOWN_FIELD"
	CodeInactiveField    = "INACTIVE_FIELD"
	CodeStepNotReachable = "STEP_NOT_REACHABLE"
	CodeSubmitInProgress = "SUBMIT_IN_PROGRESS"
	CodeSinkFailure      = "SINK_FAILURE"
)
