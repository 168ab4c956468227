package presence

import "time"

// Status is the derived live state of a guard. It is never stored;
// it is recomputed from clock state and recent pings on every read.
type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusOffline Status = "offline"
)

// Ping is a single GPS report from the guard app. Pings are only
// meaningful while the owning guard is clocked in.
type Ping struct {
	ID        string    `json:"id"`
	GuardID   string    `json:"guardId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
