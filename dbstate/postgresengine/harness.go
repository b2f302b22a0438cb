package postgresengine

import (
	"context"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

// State is the lifecycle state of a Harness.
type State int

const (
	// StateFresh is the state before the initial reset.
	StateFresh State = iota
	// StateClean means all tables were truncated and no fixture was loaded yet.
	StateClean
	// StateLoaded means a fixture was loaded and a baseline snapshot is held.
	StateLoaded
	// StateClosed means the harness wiped the store on exit and accepts no more fixtures.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateClean:
		return "clean"
	case StateLoaded:
		return "loaded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Harness drives one Store through a single test: wipe, load, exercise, diff, wipe.
// It is not safe for concurrent use.
type Harness struct {
	store    *Store
	state    State
	baseline dbstate.Snapshot
}

// NewHarness truncates all tables of the store and returns a clean harness.
// If the reset is refused or fails, no harness is returned.
func NewHarness(ctx context.Context, store *Store) (*Harness, error) {
	if store == nil {
		return nil, dbstate.ErrNilDatabaseConnection
	}

	h := &Harness{store: store, state: StateFresh}

	if err := store.ResetAll(ctx); err != nil {
		return nil, err
	}

	h.state = StateClean

	return h, nil
}

// Load inserts the fixture items and captures the resulting state as the new baseline.
func (h *Harness) Load(ctx context.Context, items ...dbstate.FixtureItem) (*Harness, error) {
	if h.state == StateClosed {
		return h, dbstate.ErrHarnessClosed
	}

	if err := h.store.Load(ctx, items...); err != nil {
		return h, err
	}

	return h, h.captureBaseline(ctx)
}

// LoadYAML is Load for a YAML fixture document.
func (h *Harness) LoadYAML(ctx context.Context, data []byte) (*Harness, error) {
	fixture, err := dbstate.ParseFixtureYAML(data)
	if err != nil {
		return h, err
	}

	return h.Load(ctx, fixture...)
}

// Diff compares the baseline captured by the last Load with the current content of the store.
func (h *Harness) Diff(ctx context.Context) (dbstate.DiffResult, error) {
	if h.baseline == nil {
		return nil, dbstate.ErrEmptyBaseline
	}

	current, err := h.store.Dump(ctx)
	if err != nil {
		return nil, err
	}

	pkeys, err := h.store.PrimaryKeys(ctx)
	if err != nil {
		return nil, err
	}

	diff, err := dbstate.Diff(h.baseline.Clone(), current, pkeys)
	if err != nil {
		return nil, err
	}

	h.logDiff(ctx, diff)

	return diff, nil
}

// DiffCompact is Diff reduced to [inserts, updates, deletes] counts per changed table.
func (h *Harness) DiffCompact(ctx context.Context) (dbstate.CompactDiff, error) {
	diff, err := h.Diff(ctx)
	if err != nil {
		return nil, err
	}

	return diff.Compact(), nil
}

// Close truncates all tables again. Closing a closed harness does nothing.
func (h *Harness) Close(ctx context.Context) error {
	if h.state == StateClosed {
		return nil
	}

	if err := h.store.ResetAll(ctx); err != nil {
		return err
	}

	h.state = StateClosed

	return nil
}

// State returns the current lifecycle state.
func (h *Harness) State() State {
	return h.state
}

// Baseline returns a copy of the baseline snapshot, if one was captured.
func (h *Harness) Baseline() (dbstate.Snapshot, bool) {
	if h.baseline == nil {
		return nil, false
	}

	return h.baseline.Clone(), true
}

// Store returns the store the harness drives.
func (h *Harness) Store() *Store {
	return h.store
}

func (h *Harness) captureBaseline(ctx context.Context) error {
	snapshot, err := h.store.Dump(ctx)
	if err != nil {
		return err
	}

	h.baseline = snapshot
	h.state = StateLoaded

	return nil
}

func (h *Harness) logDiff(ctx context.Context, diff dbstate.DiffResult) {
	args := []any{logAttrTableCount, len(diff)}

	for table, counts := range diff.Compact() {
		args = append(args, table, counts)
	}

	h.store.logInfo(ctx, logMsgDiffComputed, args...)
}
