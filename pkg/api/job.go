package api

// JobState represents the lifecycle state of a generation job.
type JobState string

const (
	StatePending    JobState = "PENDING"
	StateProcessing JobState = "PROCESSING"
	StateCompleted  JobState = "COMPLETED"
	StateFailed     JobState = "FAILED"
)

// Terminal reports whether no further transitions are accepted from s.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// StageTag identifies which artifact of a job last changed. Clients use it
// to re-render only the affected panel instead of the whole screen.
type StageTag string

const (
	StageInit    StageTag = "INIT"
	StageProcess StageTag = "PROCESS"
	StageData    StageTag = "DATA"
	StageForm    StageTag = "FORM"
)

// Job is one immutable status snapshot of an asynchronous generation job.
//
// Snapshots are replaced wholesale on every mutation; nothing mutates a Job
// in place after it has been handed out by a store. Version increases by one
// on every observable change, including message-only updates, and backs the
// cache-validation token polling clients compare against.
type Job struct {
	ID    string   `json:"jobId"`
	State JobState `json:"state"`

	// Message is human-readable progress or error text, always present.
	Message string `json:"message"`

	LastUpdatedStage StageTag `json:"lastUpdatedStage"`
	Version          int64    `json:"version"`

	// Artifacts, each nil until the corresponding stage has committed.
	Process *ProcessGraph `json:"process,omitempty"`
	Data    *DataModel    `json:"dataEntities,omitempty"`
	Form    *FormModel    `json:"form,omitempty"`
}

// Clone returns a shallow copy of the snapshot. Artifact pointers are shared;
// committed artifacts are immutable by contract.
func (j *Job) Clone() *Job {
	cp := *j
	return &cp
}
