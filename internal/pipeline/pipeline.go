// Package pipeline orchestrates a full ETL run: extract both judicial
// escrow sources, reshape them into the star schema and load the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dfarias/escrow-etl/internal/load"
	"github.com/dfarias/escrow-etl/internal/runlog"
)

// ErrRunInProgress is returned when a run is requested while another is
// still executing. Runs replace the destination tables wholesale, so two of
// them must never overlap.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Result summarizes a finished run.
type Result struct {
	RunID      string         `json:"run_id"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Tables     map[string]int `json:"tables,omitempty"`
	Logs       []runlog.Entry `json:"logs"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Status is a point-in-time view of the runner, safe to poll while a run
// executes.
type Status struct {
	Running   bool   `json:"running"`
	RunID     string `json:"run_id,omitempty"`
	Step      string `json:"step,omitempty"`
	StepIndex int    `json:"step_index,omitempty"`
	StepCount int    `json:"step_count,omitempty"`
}

// Runner executes pipeline runs against a fixed destination, one at a time.
type Runner struct {
	loader load.Loader
	log    zerolog.Logger

	mu     sync.Mutex
	status Status
}

func NewRunner(loader load.Loader, log zerolog.Logger) *Runner {
	return &Runner{loader: loader, log: log}
}

func defaultSteps() []Step {
	return []Step{
		&ExtractStep{},
		&ReshapeBalancesStep{},
		&NormalizeWithdrawalsStep{},
		&BuildDimensionStep{},
		&AttachKeysStep{},
		&LoadStep{},
	}
}

// StepDone is the terminal phase reported once a run completes. With the
// six executing steps it makes the 1..7 progress counter pollers observe.
const StepDone = "done"

// Run executes the full pipeline for one pair of source files. On fatal
// errors the returned Result carries Success=false, the error text and the
// run log collected up to the failure, alongside the error itself.
func (r *Runner) Run(ctx context.Context, balancesPath, withdrawalsPath string) (*Result, error) {
	runID := uuid.New().String()
	if !r.begin(runID) {
		return nil, ErrRunInProgress
	}
	defer r.end()

	log := r.log.With().Str("run_id", runID).Logger()
	rec := runlog.NewRecorder(log)
	state := &State{
		BalancesPath:    balancesPath,
		WithdrawalsPath: withdrawalsPath,
		Recorder:        rec,
		Loader:          r.loader,
	}

	result := &Result{RunID: runID, StartedAt: time.Now()}
	steps := defaultSteps()

	rec.Info("run started")
	phases := len(steps) + 1
	for i, step := range steps {
		r.setStep(step.Name(), i+1, phases)
		log.Debug().Str("step", step.Name()).Int("index", i+1).Msg("executing step")

		if err := step.Execute(ctx, state); err != nil {
			result.Error = err.Error()
			result.Logs = rec.Entries()
			result.FinishedAt = time.Now()
			log.Error().Err(err).Str("step", step.Name()).Msg("run failed")
			return result, err
		}
	}

	rec.Success(fmt.Sprintf("run finished: %d accounts, %d balance rows, %d withdrawal rows",
		state.Accounts.Len(), state.Balances.Len(), state.Withdrawals.Len()))

	r.setStep(StepDone, phases, phases)

	result.Success = true
	result.Tables = state.TableCounts
	result.Logs = rec.Entries()
	result.FinishedAt = time.Now()
	return result, nil
}

// Status reports whether a run is executing and which step it is on.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) begin(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Running {
		return false
	}
	r.status = Status{Running: true, RunID: runID}
	return true
}

// end clears the running flag but keeps the rest of the status, so a
// poller can still see which run last finished and where it stopped.
// begin overwrites it on the next run.
func (r *Runner) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Running = false
}

func (r *Runner) setStep(name string, index, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Step = name
	r.status.StepIndex = index
	r.status.StepCount = count
}
