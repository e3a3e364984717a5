package models

import "time"

// ObservationsUpdated is consumed from Kafka when new price rows have landed.
type ObservationsUpdated struct {
	Fuel   string `json:"fuel"`
	Region string `json:"region,omitempty"`
	Date   string `json:"date,omitempty"`
}

// PhaseComputed is published after a fresh computation.
type PhaseComputed struct {
	ID         string          `json:"id"`
	Fuel       string          `json:"fuel"`
	Region     string          `json:"region,omitempty"`
	ComputedAt time.Time       `json:"computed_at"`
	NDays      int             `json:"n_days"`
	Phases     []PhaseInterval `json:"phases"`
	Error      string          `json:"error,omitempty"`
}
