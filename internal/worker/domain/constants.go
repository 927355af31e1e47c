package domain

// Job status constants. Transitions are strictly forward:
// PENDING -> PROCESSING -> {DONE, FAILED}.
const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusDone       = "DONE"
	JobStatusFailed     = "FAILED"
)
