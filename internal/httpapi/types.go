package httpapi

import (
	"fmt"

	"MACrossover/internal/model"
	"MACrossover/internal/store"
)

// ObservationRequest is the JSON body of POST /data and each element of
// POST /data/bulk.
type ObservationRequest struct {
	Datetime   string  `json:"datetime"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     int64   `json:"volume"`
	Instrument string  `json:"instrument"`
}

// Observation converts the request into a validated observation.
func (r ObservationRequest) Observation() (model.Observation, error) {
	ts, err := model.ParseTimestamp(r.Datetime)
	if err != nil {
		return model.Observation{}, err
	}
	obs := model.Observation{
		Time:       ts,
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		Instrument: r.Instrument,
	}
	return obs, obs.Validate()
}

func newObservationRequest(o model.Observation) ObservationRequest {
	return ObservationRequest{
		Datetime:   o.Time.UTC().Format(model.TimestampLayout),
		Open:       o.Open,
		High:       o.High,
		Low:        o.Low,
		Close:      o.Close,
		Volume:     o.Volume,
		Instrument: o.Instrument,
	}
}

// ObservationResponse is a stored observation as returned by the API.
type ObservationResponse struct {
	ID int64 `json:"id"`
	ObservationRequest
}

func newObservationResponse(r store.Record) ObservationResponse {
	return ObservationResponse{ID: r.ID, ObservationRequest: newObservationRequest(r.Observation)}
}

// EvaluationResponse is one entry of GET /strategy/history.
type EvaluationResponse struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	Instrument   string `json:"instrument"`
	Observations int    `json:"observations"`
	model.PerformanceSummary
}

func newEvaluationResponse(r store.EvaluationRecord) EvaluationResponse {
	return EvaluationResponse{
		ID:                 r.ID,
		CreatedAt:          r.CreatedAt.UTC().Format(model.TimestampLayout),
		Instrument:         r.Instrument,
		Observations:       r.Observations,
		PerformanceSummary: r.Summary,
	}
}

// MessageResponse carries a human-readable status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is returned for every non-2xx status.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func bulkMessage(n int) string {
	return fmt.Sprintf("Successfully added %d records", n)
}
