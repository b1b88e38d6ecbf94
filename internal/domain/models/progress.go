package models

// EventKind tags a progress event.
type EventKind string

const (
	EventUpdate    EventKind = "update"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Failure codes carried by failed events.
const (
	FailureAnalysis   = "analysis_error"
	FailureTimeout    = "timeout"
	FailureInvalidJob = "invalid_job"
)

const (
	MsgInvalidJob = "invalid job id"
	MsgTimeout    = "timeout waiting for updates"
)

// ProgressEvent is one message on a job channel. The JSON shape keeps the
// status/progress/result/error keys the browser client reads.
type ProgressEvent struct {
	Kind    EventKind       `json:"type"`
	Stage   string          `json:"status"`
	Percent int             `json:"progress"`
	Report  *AnalysisReport `json:"result,omitempty"`
	Error   bool            `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
}

func UpdateEvent(stage string, percent int) ProgressEvent {
	return ProgressEvent{Kind: EventUpdate, Stage: stage, Percent: percent}
}

func CompletedEvent(report *AnalysisReport) ProgressEvent {
	return ProgressEvent{Kind: EventCompleted, Stage: "Analysis complete!", Percent: 100, Report: report}
}

func FailedEvent(code, message string) ProgressEvent {
	return ProgressEvent{
		Kind:    EventFailed,
		Stage:   "Error: " + message,
		Percent: 100,
		Error:   true,
		Message: message,
		Code:    code,
	}
}

// Terminal reports whether no further events may follow this one.
func (e ProgressEvent) Terminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventFailed
}
