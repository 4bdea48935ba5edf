package batch

//go:generate go run github.com/dmarkham/enumer -type State -trimprefix State -transform lower -yaml -json -output state.gen.go

// State is the lifecycle state of a batch run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateComplete
	StateStopped
)

// Status describes the batch run as seen by the persisted cursor.
type Status struct {
	State  State  `json:"state"`
	RunID  string `json:"run_id,omitempty"`
	Offset int    `json:"offset"`
	Total  int    `json:"total"`
}
