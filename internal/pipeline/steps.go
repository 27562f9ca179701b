package pipeline

import (
	"context"
	"fmt"

	"github.com/dfarias/escrow-etl/internal/extract"
	"github.com/dfarias/escrow-etl/internal/load"
	"github.com/dfarias/escrow-etl/internal/runlog"
	"github.com/dfarias/escrow-etl/internal/table"
	"github.com/dfarias/escrow-etl/internal/transform"
)

// Step is a single stage of the run. Steps execute sequentially and
// communicate through the shared State; the first error aborts the run.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the pipeline steps.
type State struct {
	BalancesPath    string
	WithdrawalsPath string

	RawBalances    *table.Table
	RawWithdrawals *table.Table

	Balances    *table.Table
	Withdrawals *table.Table
	Accounts    *table.Table

	BalanceReport    transform.BalanceReport
	WithdrawalReport transform.WithdrawalReport

	UnmatchedBalances    int
	UnmatchedWithdrawals int

	// TableCounts is filled by the load step with rows written per table.
	TableCounts map[string]int

	Recorder *runlog.Recorder
	Loader   load.Loader
}

// ExtractStep reads both source files into raw tables.
type ExtractStep struct{}

func (s *ExtractStep) Name() string { return "extract sources" }

func (s *ExtractStep) Execute(ctx context.Context, state *State) error {
	balances, err := extract.Read(ctx, state.BalancesPath)
	if err != nil {
		state.Recorder.Critical("failed to read balance source", err.Error())
		return fmt.Errorf("read balances %q: %w", state.BalancesPath, err)
	}
	state.Recorder.Info(fmt.Sprintf("balance source loaded: %d rows, %d columns", balances.Len(), len(balances.Columns)))

	withdrawals, err := extract.Read(ctx, state.WithdrawalsPath)
	if err != nil {
		state.Recorder.Critical("failed to read withdrawal source", err.Error())
		return fmt.Errorf("read withdrawals %q: %w", state.WithdrawalsPath, err)
	}
	state.Recorder.Info(fmt.Sprintf("withdrawal source loaded: %d rows, %d columns", withdrawals.Len(), len(withdrawals.Columns)))

	state.RawBalances = balances
	state.RawWithdrawals = withdrawals
	return nil
}

// ReshapeBalancesStep melts the wide balance extract into one row per
// account, parcel and reference month.
type ReshapeBalancesStep struct{}

func (s *ReshapeBalancesStep) Name() string { return "reshape balances" }

func (s *ReshapeBalancesStep) Execute(ctx context.Context, state *State) error {
	out, report, err := transform.ReshapeBalances(state.RawBalances, state.Recorder)
	if err != nil {
		return fmt.Errorf("reshape balances: %w", err)
	}
	state.Balances = out
	state.BalanceReport = report
	return nil
}

// NormalizeWithdrawalsStep cleans monetary and date cells in place.
type NormalizeWithdrawalsStep struct{}

func (s *NormalizeWithdrawalsStep) Name() string { return "normalize withdrawals" }

func (s *NormalizeWithdrawalsStep) Execute(ctx context.Context, state *State) error {
	out, report := transform.NormalizeWithdrawals(state.RawWithdrawals, state.Recorder)
	state.Withdrawals = out
	state.WithdrawalReport = report
	return nil
}

// BuildDimensionStep derives the account dimension from both fact sets.
type BuildDimensionStep struct{}

func (s *BuildDimensionStep) Name() string { return "build account dimension" }

func (s *BuildDimensionStep) Execute(ctx context.Context, state *State) error {
	dim, err := transform.BuildAccountDimension(state.Balances, state.Withdrawals, state.Recorder)
	if err != nil {
		return fmt.Errorf("build account dimension: %w", err)
	}
	state.Accounts = dim
	return nil
}

// AttachKeysStep left-joins the surrogate key onto both fact tables.
type AttachKeysStep struct{}

func (s *AttachKeysStep) Name() string { return "attach surrogate keys" }

func (s *AttachKeysStep) Execute(ctx context.Context, state *State) error {
	state.Balances, state.UnmatchedBalances = transform.AttachSurrogateKeys(state.Balances, state.Accounts, state.Recorder)
	state.Withdrawals, state.UnmatchedWithdrawals = transform.AttachSurrogateKeys(state.Withdrawals, state.Accounts, state.Recorder)
	return nil
}

// LoadStep replaces the three destination tables.
type LoadStep struct{}

func (s *LoadStep) Name() string { return "load star schema" }

func (s *LoadStep) Execute(ctx context.Context, state *State) error {
	if err := state.Loader.Ping(ctx); err != nil {
		state.Recorder.Critical("destination store is unreachable", err.Error())
		return fmt.Errorf("ping destination: %w", err)
	}

	for _, out := range []struct {
		name string
		t    *table.Table
	}{
		{load.TableAccounts, state.Accounts},
		{load.TableBalances, state.Balances},
		{load.TableWithdrawals, state.Withdrawals},
	} {
		if err := state.Loader.Replace(ctx, out.name, out.t); err != nil {
			state.Recorder.Critical(fmt.Sprintf("failed to load table %s", out.name), err.Error())
			return fmt.Errorf("load %s: %w", out.name, err)
		}
		state.Recorder.Info(fmt.Sprintf("table %s loaded: %d rows", out.name, out.t.Len()))
	}

	counts, err := state.Loader.Stats(ctx)
	if err != nil {
		state.Recorder.Warning("loaded tables could not be verified", err.Error())
		counts = map[string]int{
			load.TableAccounts:    state.Accounts.Len(),
			load.TableBalances:    state.Balances.Len(),
			load.TableWithdrawals: state.Withdrawals.Len(),
		}
	}
	state.TableCounts = counts
	return nil
}
