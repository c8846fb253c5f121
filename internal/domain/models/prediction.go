package models

// PredictionRequest is the payload written to the external predictor's
// stdin as a single JSON document. Built once per inbound batch request
// and immutable after construction.
type PredictionRequest struct {
	Products []ProductSnapshot `json:"products"`
	Days     int               `json:"days,omitempty"`   // demand forecasting only
	Cities   []string          `json:"cities,omitempty"` // demand forecasting only
}

// Operation selects which predictor entry point to run.
type Operation string

const (
	OpPredictDemand  Operation = "predict_demand"
	OpPredictPricing Operation = "predict_pricing"
)

// OutcomeKind classifies the result of one predictor invocation.
type OutcomeKind string

const (
	OutcomeSuccess        OutcomeKind = "success"
	OutcomeProcessFailure OutcomeKind = "process_failure"
	OutcomeTimeout        OutcomeKind = "timeout"
	OutcomeParseFailure   OutcomeKind = "parse_failure"
	OutcomeStartFailure   OutcomeKind = "start_failure"
)

// PredictionOutcome is the tagged result of one predictor invocation.
// Exactly one outcome is produced per invocation; callers branch
// exhaustively on Kind.
type PredictionOutcome struct {
	Kind     OutcomeKind
	Payload  *PredictionResponse // set when Kind == OutcomeSuccess
	ExitCode int                 // set when Kind == OutcomeProcessFailure
	Stderr   string              // diagnostic stream content, if any
	Raw      string              // unparseable output for OutcomeParseFailure
	Err      error               // set when Kind == OutcomeStartFailure
}

// Usable reports whether the outcome carries a payload the caller can
// act on. A parsed payload with an embedded success=false flag is
// equivalent to a process failure for branching purposes.
func (o *PredictionOutcome) Usable() bool {
	return o != nil && o.Kind == OutcomeSuccess && o.Payload != nil && o.Payload.Success
}

// PredictionResponse is the final stdout line of the external predictor.
// Earlier stdout lines are diagnostic noise and are ignored.
type PredictionResponse struct {
	Success         bool                  `json:"success"`
	ModelVersion    string                `json:"model_version,omitempty"`
	Recommendations []PriceRecommendation `json:"recommendations,omitempty"`
	Forecasts       []DemandForecast      `json:"forecasts,omitempty"`
	Error           string                `json:"error,omitempty"`
}
