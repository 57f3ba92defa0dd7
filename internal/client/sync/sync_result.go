package sync

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stlauncher/stsync/internal/manifest"
	"github.com/stlauncher/stsync/internal/utils"
)

// Strategy is one of the two ways a local directory can be brought up to date
type Strategy string

const (
	StrategyBundle      Strategy = "bundle"
	StrategyIncremental Strategy = "incremental"
)

func (s Strategy) other() Strategy {
	if s == StrategyBundle {
		return StrategyIncremental
	}
	return StrategyBundle
}

// Result reports the outcome of one sync invocation.
// Expected failures (server down, bad archive, missing files) land here with Success false.
// Partial marks a failed bundle sync that overwrote local files with no backup to restore.
type Result struct {
	RunID          string
	Strategy       Strategy
	Success        bool
	Failure        string
	Downloaded     int
	DownloadErrors int
	Deleted        int
	DeleteErrors   int
	Bytes          int64
	BackupPath     string
	Restored       bool
	Partial        bool
	FellBack       bool
	Plan           *manifest.SyncPlan
	Log            []string
	Duration       time.Duration
}

// syncRun carries the result and the run's logger through one invocation.
// Everything logged at Info or above becomes a progress line in Result.Log.
type syncRun struct {
	result   *Result
	progress func(line string)
	log      *slog.Logger
	started  time.Time
}

func newSyncRun(progress func(string), strategy Strategy) *syncRun {
	r := &syncRun{
		result:   &Result{RunID: uuid.NewString(), Strategy: strategy},
		progress: progress,
		started:  time.Now(),
	}
	r.log = r.logger()
	return r
}

func (r *syncRun) logger() *slog.Logger {
	handler := utils.NewFanoutHandler(slog.Default().Handler(), utils.NewProgressHandler(r.record))
	return slog.New(handler).With("run", r.result.RunID, "strategy", r.result.Strategy)
}

func (r *syncRun) record(line string) {
	r.result.Log = append(r.result.Log, line)
	if r.progress != nil {
		r.progress(line)
	}
}

// logf records a human readable progress line
func (r *syncRun) logf(format string, args ...any) {
	r.log.Info(fmt.Sprintf(format, args...))
}

// fail marks the run as failed with a reason and logs it
func (r *syncRun) fail(reason string, err error) {
	r.result.Success = false
	r.result.Failure = reason
	if err != nil {
		r.result.Failure = fmt.Sprintf("%s: %v", reason, err)
		r.log.Warn(r.result.Failure, "reason", reason, "error", err)
		return
	}
	r.log.Warn(r.result.Failure, "reason", reason)
}

// restart begins a fresh attempt with another strategy, keeping the log so far
func (r *syncRun) restart(strategy Strategy) {
	prev := r.result
	r.result = &Result{
		RunID:    prev.RunID,
		Strategy: strategy,
		FellBack: true,
		Log:      prev.Log,
	}
	r.log = r.logger()
}

func (r *syncRun) finish() *Result {
	r.result.Duration = time.Since(r.started)
	return r.result
}
