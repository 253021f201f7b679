package model

import "time"

// DiscoveryReport summarizes one reconciliation run. It is returned to the
// caller and never persisted.
type DiscoveryReport struct {
	RunID    string `json:"run_id"`
	DeviceID int64  `json:"device_id"`

	Found   int `json:"found"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`

	SlotsCreated int `json:"slots_created"`
	PortsCreated int `json:"ports_created"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall time of the run.
func (r *DiscoveryReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
