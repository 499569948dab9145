package api

import (
	"context"
	"errors"

	"github.com/fluxbase-eu/queryfilter/internal/query"
)

// failingExecutor simulates a backend outage
type failingExecutor struct{}

var errBackendDown = errors.New("connection refused")

func (failingExecutor) Count(context.Context, query.Plan) (int64, error) {
	return 0, errBackendDown
}

func (failingExecutor) Fetch(context.Context, query.Plan, *query.Window) ([]query.Row, error) {
	return nil, errBackendDown
}
