package data

import "time"

// Run is one bulk status transition as journalled.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress or was killed
	From       string
	To         string
	Unfollow   bool
	DryRun     bool
	Total      int
	Matched    int
	Updated    int
	Unfollowed int
	Error      string
}

func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration is how long the run took, or zero if it never finished.
func (r *Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Change is what happened to one manga during a run.
type Change struct {
	RunID      string
	MangaID    string
	Previous   string
	Next       string // empty when only unfollowed
	Unfollowed bool
	AppliedAt  time.Time
	Error      string
}
