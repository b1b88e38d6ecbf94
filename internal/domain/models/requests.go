package models

type JobStatusRequest struct {
	ID string `param:"id" validate:"required"`
}

// AnalysisRequestMessage is the payload accepted on the requests topic.
type AnalysisRequestMessage struct {
	RequestedBy string `json:"requested_by"`
}
