package domain

// SystemEventKind tags process lifecycle records. These live apart from the
// employee log and are never replayed.
type SystemEventKind string

const (
	SystemServerStarted SystemEventKind = "server_started"
	SystemServerStopped SystemEventKind = "server_stopped"
)

// LogStats summarizes the employee event log.
type LogStats struct {
	TotalEvents int64          `json:"total_events"`
	Employees   int64          `json:"employees"`
	LastSeq     int64          `json:"last_seq"`
	ByKind      map[Kind]int64 `json:"by_kind"`
}
