package model

// Job is one queued prediction of a batch.
type Job struct {
	ID          string
	Index       int // position in the originating batch
	Target      Target
	Observation Observation
	// Reply receives exactly one Outcome. It must be buffered so that
	// workers never block on a caller that has gone away.
	Reply chan<- Outcome
}

// Outcome is the result of a Job.
type Outcome struct {
	JobID  string
	Index  int
	Result Result
	Err    error
}

// Resolve sends the outcome for j without blocking. It reports false if the
// reply channel was full.
func (j Job) Resolve(res Result, err error) bool {
	select {
	case j.Reply <- Outcome{JobID: j.ID, Index: j.Index, Result: res, Err: err}:
		return true
	default:
		return false
	}
}

// BatchItem is one entry of a batch submission.
type BatchItem struct {
	Target      Target
	Observation Observation
}
