package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mickamy/qprof/internal/model"
	"github.com/mickamy/qprof/internal/parser"
)

// Relations names the two query history relations.
type Relations struct {
	Full string
	Fast string
}

// DefaultRelations returns the Snowflake query history views.
func DefaultRelations() Relations {
	return Relations{
		Full: "snowflake.account_usage.query_history",
		Fast: "table(information_schema.query_history())",
	}
}

// Source reads query telemetry over a single warehouse session.
type Source struct {
	q      Querier
	rel    Relations
	logger *zap.Logger
}

// New builds a Source. Empty relation names fall back to DefaultRelations.
func New(q Querier, rel Relations, logger *zap.Logger) *Source {
	def := DefaultRelations()
	if rel.Full == "" {
		rel.Full = def.Full
	}
	if rel.Fast == "" {
		rel.Fast = def.Fast
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{q: q, rel: rel, logger: logger}
}

// Relations reports the relations the source reads from.
func (s *Source) Relations() Relations { return s.rel }

// Find returns the most recent row matching the identity in the given store, or nil when there
// is none.
func (s *Source) Find(ctx context.Context, store model.Store, id model.Identity) (*model.RawRow, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	relation, err := s.relation(store)
	if err != nil {
		return nil, err
	}
	query := findByTextSQL(relation)
	if id.Kind == model.KindID {
		query = findByIDSQL(relation)
	}

	return s.first(ctx, "find "+string(store), query, id.Value)
}

// Execute runs the statement on the session and returns the ID the warehouse assigned to it.
func (s *Source) Execute(ctx context.Context, statement string) (string, error) {
	if strings.TrimSpace(statement) == "" {
		return "", fmt.Errorf("%w: empty statement", model.ErrInvalidCriterion)
	}
	s.logger.Debug("executing statement", zap.String("sql", statement))
	if err := s.q.Exec(ctx, statement); err != nil {
		return "", &model.StoreError{Op: "execute", Err: err}
	}
	row, err := s.first(ctx, "last query id", lastQueryIDSQL)
	if err != nil {
		return "", err
	}
	if row == nil || len(row.Values) == 0 {
		return "", &model.StoreError{Op: "last query id", Err: errors.New("no result")}
	}
	id := parser.StringValue(row.Values[0])
	if id == "" {
		return "", &model.StoreError{Op: "last query id", Err: errors.New("empty query id")}
	}
	return id, nil
}

// Explain returns the text plan of the statement.
func (s *Source) Explain(ctx context.Context, statement string) (string, error) {
	if strings.TrimSpace(statement) == "" {
		return "", fmt.Errorf("%w: empty statement", model.ErrInvalidCriterion)
	}
	row, err := s.first(ctx, "explain", explainSQL(statement))
	if err != nil {
		return "", err
	}
	if row == nil || len(row.Values) == 0 {
		return "", fmt.Errorf("%w: explain returned no rows", model.ErrMalformedPlan)
	}
	return parser.StringValue(row.Values[0]), nil
}

// ExecutionStats counts executions of the exact text over the trailing window.
func (s *Source) ExecutionStats(ctx context.Context, text string) (model.ExecStats, error) {
	row, err := s.first(ctx, "execution stats", executionStatsSQL(s.rel.Full), text)
	if err != nil {
		return model.ExecStats{}, err
	}
	if row == nil || len(row.Values) < 2 {
		return model.ExecStats{}, nil
	}
	seconds, err := parser.FloatValue(row.Values[0])
	if err != nil {
		return model.ExecStats{}, &model.StoreError{Op: "execution stats", Err: err}
	}
	count, err := parser.Int64Value(row.Values[1])
	if err != nil {
		return model.ExecStats{}, &model.StoreError{Op: "execution stats", Err: err}
	}
	return model.ExecStats{Count: count, TotalSeconds: seconds}, nil
}

// InTop reports whether the text is among the top `limit` query texts of the trailing window
// for the given ranking.
func (s *Source) InTop(ctx context.Context, kind model.RankKind, limit int, text string) (bool, error) {
	if limit <= 0 {
		return false, fmt.Errorf("warehouse: invalid ranking limit %d", limit)
	}
	query, err := inTopSQL(s.rel.Full, kind, limit)
	if err != nil {
		return false, fmt.Errorf("warehouse: %w", err)
	}
	if kind == model.RankFrequent {
		text = FrequencyKey(text)
	}
	row, err := s.first(ctx, "rank "+kind.String(), query, text)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func (s *Source) relation(store model.Store) (string, error) {
	switch store {
	case model.StoreFull:
		return s.rel.Full, nil
	case model.StoreFast:
		return s.rel.Fast, nil
	default:
		return "", fmt.Errorf("warehouse: unknown store %q", store)
	}
}

// first runs a query and returns its first row, or nil when the result is empty.
func (s *Source) first(ctx context.Context, op, query string, args ...any) (*model.RawRow, error) {
	s.logger.Debug("query", zap.String("op", op), zap.String("sql", query))
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, &model.StoreError{Op: op, Err: err}
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, &model.StoreError{Op: op, Err: err}
		}
		return nil, nil
	}
	values, err := rows.Values()
	if err != nil {
		return nil, &model.StoreError{Op: op, Err: err}
	}
	cols := append([]string(nil), rows.Columns()...)
	return &model.RawRow{Columns: cols, Values: values}, nil
}
