package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mickamy/qprof/internal/model"
)

// Source is the part of the warehouse the resolver needs.
type Source interface {
	Find(ctx context.Context, store model.Store, id model.Identity) (*model.RawRow, error)
	Execute(ctx context.Context, statement string) (string, error)
}

// State is a step of the resolution.
type State int

const (
	SearchFull State = iota
	SearchFast
	Execute
	Resolved
	NotFound
)

func (s State) String() string {
	switch s {
	case SearchFull:
		return "search-full"
	case SearchFast:
		return "search-fast"
	case Execute:
		return "execute"
	case Resolved:
		return "resolved"
	case NotFound:
		return "not-found"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) terminal() bool { return s == Resolved || s == NotFound }

// Resolution is the telemetry row found for a query and how it was found.
type Resolution struct {
	Row        *model.RawRow
	Store      model.Store
	Executed   bool
	ExecutedID string
	// Path lists the states visited, terminal state included.
	Path []State
}

// Resolver locates the telemetry row of a query: full store first, then the fast store, and for
// SQL text only, by executing the statement.
type Resolver struct {
	src    Source
	logger *zap.Logger
}

// New builds a Resolver.
func New(src Source, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{src: src, logger: logger}
}

// Resolve walks the state machine until the row is found or the query is known to be missing.
// A by-ID miss yields model.ErrNotFound; the statement is executed at most once.
func (r *Resolver) Resolve(ctx context.Context, id model.Identity) (*Resolution, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	res := &Resolution{}
	state := SearchFull
	for {
		res.Path = append(res.Path, state)
		if state.terminal() {
			break
		}
		next, err := r.step(ctx, state, id, res)
		if err != nil {
			return nil, err
		}
		state = next
	}

	if state == NotFound {
		return res, fmt.Errorf("%w: %s, check the query history manually", model.ErrNotFound, id)
	}
	return res, nil
}

func (r *Resolver) step(ctx context.Context, state State, id model.Identity, res *Resolution) (State, error) {
	switch state {
	case SearchFull:
		r.logger.Info("looking up query in the full history", zap.Stringer("query", id))
		row, err := r.src.Find(ctx, model.StoreFull, id)
		if err != nil {
			return state, err
		}
		if row != nil {
			res.Row, res.Store = row, model.StoreFull
			return Resolved, nil
		}
		return SearchFast, nil

	case SearchFast:
		r.logger.Info("not in the full history yet, looking up the recent history", zap.Stringer("query", id))
		row, err := r.src.Find(ctx, model.StoreFast, id)
		if err != nil {
			return state, err
		}
		if row != nil {
			res.Row, res.Store = row, model.StoreFast
			return Resolved, nil
		}
		if id.Kind == model.KindID {
			return NotFound, nil
		}
		return Execute, nil

	case Execute:
		r.logger.Info("query not found in either history, executing it")
		queryID, err := r.src.Execute(ctx, id.Value)
		if err != nil {
			return state, err
		}
		res.Executed, res.ExecutedID = true, queryID
		r.logger.Debug("executed", zap.String("query_id", queryID))

		row, err := r.src.Find(ctx, model.StoreFast, model.ByID(queryID))
		if err != nil {
			return state, err
		}
		if row == nil {
			return state, fmt.Errorf("%w: executed query %s is missing from the recent history", model.ErrStoreInconsistent, queryID)
		}
		res.Row, res.Store = row, model.StoreFast
		return Resolved, nil

	default:
		return state, fmt.Errorf("resolver: no transition from %s", state)
	}
}
