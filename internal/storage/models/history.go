package models

import "time"

// BestIPObservation records a best IP the dashboard saw the server report.
// A row is written only when the IP differs from the previous observation.
type BestIPObservation struct {
	ID         int64     `json:"id"`
	IP         string    `json:"ip"`
	ObservedAt time.Time `json:"observed_at"`
}
