package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kerbaras/mdhold/pkg/data"
	"github.com/kerbaras/mdhold/pkg/logger"
	"github.com/kerbaras/mdhold/pkg/mangadex"
)

// UnfollowScope selects which manga a run unfollows.
type UnfollowScope string

const (
	// ScopeAll unfollows every manga in the status map.
	ScopeAll UnfollowScope = "all"
	// ScopeMatched unfollows only manga that were in the source status.
	ScopeMatched UnfollowScope = "matched"
)

func ParseUnfollowScope(v string) (UnfollowScope, error) {
	switch s := UnfollowScope(v); s {
	case ScopeAll, ScopeMatched:
		return s, nil
	}
	return "", fmt.Errorf("unfollow scope must be %s or %s, got %q", ScopeAll, ScopeMatched, v)
}

// ErrPartialRun is returned when ContinueOnError kept a run going past
// failures.
var ErrPartialRun = errors.New("run finished with failures")

// Action is what a run did to one manga.
type Action string

const (
	ActionSkip           Action = "skip"
	ActionUpdate         Action = "update"
	ActionUnfollow       Action = "unfollow"
	ActionUpdateUnfollow Action = "update+unfollow"
	ActionFail           Action = "error"
)

// Progress reports one processed manga.
type Progress struct {
	Index   int // 1-based
	Total   int
	MangaID string
	Status  mangadex.Status // status before the run touched it
	Action  Action
	Err     error
}

// StatusAPI is the part of the MangaDex client the updater drives.
type StatusAPI interface {
	Statuses(ctx context.Context, filter mangadex.Status) (mangadex.StatusMap, error)
	SetStatus(ctx context.Context, mangaID string, status mangadex.Status) error
	Unfollow(ctx context.Context, mangaID string) error
}

// Journal records runs. data.Repository implements it.
type Journal interface {
	StartRun(run *data.Run) error
	RecordChange(c *data.Change) error
	FinishRun(run *data.Run) error
}

type Options struct {
	From            mangadex.Status
	To              mangadex.Status
	Unfollow        bool
	UnfollowScope   UnfollowScope
	DryRun          bool
	ContinueOnError bool
}

// DefaultOptions moves reading to on_hold without unfollowing.
func DefaultOptions() Options {
	return Options{
		From:          mangadex.StatusReading,
		To:            mangadex.StatusOnHold,
		UnfollowScope: ScopeAll,
	}
}

func (o Options) Validate() error {
	if !o.From.Valid() {
		return fmt.Errorf("from: %w: %q", mangadex.ErrInvalidStatus, o.From)
	}
	if !o.To.Valid() {
		return fmt.Errorf("to: %w: %q", mangadex.ErrInvalidStatus, o.To)
	}
	if _, err := ParseUnfollowScope(string(o.UnfollowScope)); err != nil {
		return err
	}
	return nil
}

type Failure struct {
	MangaID string
	Err     error
}

// Result summarises a run. On error it holds the counts up to the failure.
type Result struct {
	RunID      string
	Total      int
	Matched    int
	Updated    int
	Unfollowed int
	Failures   []Failure
	DryRun     bool
}

// Updater applies a status transition across the user's whole status map.
type Updater struct {
	api          StatusAPI
	journal      Journal
	progressChan chan Progress
	closeOnce    sync.Once
}

// NewUpdater creates an Updater. journal may be nil.
func NewUpdater(api StatusAPI, journal Journal) *Updater {
	return &Updater{
		api:          api,
		journal:      journal,
		progressChan: make(chan Progress, 100),
	}
}

// GetProgressChannel returns the channel for receiving per-manga progress
func (u *Updater) GetProgressChannel() <-chan Progress {
	return u.progressChan
}

// Transition moves every manga in opts.From to opts.To, unfollowing as
// opts asks. Items are processed sequentially in manga ID order. Nothing is
// rolled back on failure.
func (u *Updater) Transition(ctx context.Context, opts Options) (res *Result, err error) {
	if opts.UnfollowScope == "" {
		opts.UnfollowScope = ScopeAll
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	statuses, err := u.api.Statuses(ctx, "")
	if err != nil {
		return nil, err
	}

	res = &Result{Total: len(statuses), DryRun: opts.DryRun}
	logger.Log.Infow("manga in status list",
		"total", res.Total, "matching", statuses.Count(opts.From), "from", opts.From)

	run := u.startRun(opts)
	if run != nil {
		res.RunID = run.ID
		defer func() { u.finishRun(run, res, err) }()
	}

	setStatus := opts.From != opts.To
	if !setStatus && !opts.Unfollow {
		logger.Log.Infow("source and target status are the same, nothing to do", "status", opts.From)
	}

	for i, id := range statuses.IDs() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		current := statuses[id]
		matched := current == opts.From
		if matched {
			res.Matched++
		}

		change := &data.Change{MangaID: id, Previous: string(current)}
		action, itemErr := u.apply(ctx, id, matched, setStatus, opts, res, change)

		if itemErr != nil {
			action = ActionFail
			change.Error = itemErr.Error()
			res.Failures = append(res.Failures, Failure{MangaID: id, Err: itemErr})
			logger.Log.Warnw("manga failed", "manga", id, "error", itemErr)
		}
		if action != ActionSkip {
			u.recordChange(run, change)
		}

		u.sendProgress(ctx, Progress{
			Index:   i + 1,
			Total:   res.Total,
			MangaID: id,
			Status:  current,
			Action:  action,
			Err:     itemErr,
		})

		if itemErr != nil && !opts.ContinueOnError {
			return res, itemErr
		}
	}

	logger.Log.Infow("run finished",
		"matched", res.Matched, "updated", res.Updated, "unfollowed", res.Unfollowed,
		"failures", len(res.Failures), "dry_run", opts.DryRun)

	if len(res.Failures) > 0 {
		return res, fmt.Errorf("%w: %d of %d manga", ErrPartialRun, len(res.Failures), res.Total)
	}
	return res, nil
}

// apply performs the calls for one manga and updates the counters.
func (u *Updater) apply(ctx context.Context, id string, matched, setStatus bool, opts Options, res *Result, change *data.Change) (Action, error) {
	action := ActionSkip

	if matched && setStatus {
		if !opts.DryRun {
			if err := u.api.SetStatus(ctx, id, opts.To); err != nil {
				return action, err
			}
		}
		res.Updated++
		change.Next = string(opts.To)
		action = ActionUpdate
		logger.Log.Debugw("status updated", "manga", id, "from", opts.From, "to", opts.To, "dry_run", opts.DryRun)
	}

	if opts.Unfollow && (opts.UnfollowScope == ScopeAll || matched) {
		if !opts.DryRun {
			if err := u.api.Unfollow(ctx, id); err != nil {
				return action, err
			}
		}
		res.Unfollowed++
		change.Unfollowed = true
		if action == ActionUpdate {
			action = ActionUpdateUnfollow
		} else {
			action = ActionUnfollow
		}
		logger.Log.Debugw("manga unfollowed", "manga", id, "dry_run", opts.DryRun)
	}

	return action, nil
}

// Journal failures are logged and never abort a run.

func (u *Updater) startRun(opts Options) *data.Run {
	if u.journal == nil {
		return nil
	}
	run := &data.Run{
		From:     string(opts.From),
		To:       string(opts.To),
		Unfollow: opts.Unfollow,
		DryRun:   opts.DryRun,
	}
	if err := u.journal.StartRun(run); err != nil {
		logger.Log.Warnw("journal unavailable for this run", "error", err)
		return nil
	}
	return run
}

func (u *Updater) recordChange(run *data.Run, change *data.Change) {
	if run == nil {
		return
	}
	change.RunID = run.ID
	if err := u.journal.RecordChange(change); err != nil {
		logger.Log.Warnw("failed to journal change", "manga", change.MangaID, "error", err)
	}
}

func (u *Updater) finishRun(run *data.Run, res *Result, err error) {
	run.Total = res.Total
	run.Matched = res.Matched
	run.Updated = res.Updated
	run.Unfollowed = res.Unfollowed
	if err != nil {
		run.Error = err.Error()
	}
	if jerr := u.journal.FinishRun(run); jerr != nil {
		logger.Log.Warnw("failed to journal run result", "run", run.ID, "error", jerr)
	}
}

// sendProgress delivers every update; consumers drain the channel until
// Close. It only gives up once ctx is done.
func (u *Updater) sendProgress(ctx context.Context, p Progress) {
	select {
	case u.progressChan <- p:
	case <-ctx.Done():
	}
}

// Close closes the progress channel. Call it once Transition has returned.
func (u *Updater) Close() {
	u.closeOnce.Do(func() { close(u.progressChan) })
}
