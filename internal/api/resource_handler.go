package api

import (
	"errors"
	"fmt"

	"github.com/fluxbase-eu/queryfilter/internal/config"
	"github.com/fluxbase-eu/queryfilter/internal/database"
	"github.com/fluxbase-eu/queryfilter/internal/observability"
	"github.com/fluxbase-eu/queryfilter/internal/query"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// ResourceHandler serves the resources declared in the schema
type ResourceHandler struct {
	schema   *database.Schema
	exec     query.Executor
	api      config.APIConfig
	metrics  *observability.Metrics
	assemble []query.AssembleOption
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(schema *database.Schema, exec query.Executor, api config.APIConfig, metrics *observability.Metrics, opts ...query.AssembleOption) *ResourceHandler {
	return &ResourceHandler{
		schema:   schema,
		exec:     exec,
		api:      api,
		metrics:  metrics,
		assemble: opts,
	}
}

// ResponseMeta is the meta block of a response. Pagination is omitted when
// the all flag bypasses paging.
type ResponseMeta struct {
	Pagination *query.PageMeta `json:"pagination,omitempty"`
}

// ResourceResponse is the body of a successful listing
type ResourceResponse struct {
	Meta ResponseMeta `json:"meta"`
	Data []query.Row  `json:"data"`
}

// Index lists the rows of a resource filtered, ordered and paginated by the
// query string
func (h *ResourceHandler) Index(c fiber.Ctx) error {
	table, ok := h.schema.Table(c.Params("resource"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse("Resource not found"))
	}

	params, err := h.parseParams(c)
	if err != nil {
		return h.respondError(c, err)
	}
	plan := query.Assemble(params, query.NewPlan(table.Name), h.assemble...)
	ctx := c.RequestCtx()

	if params.All {
		rows, err := h.exec.Fetch(ctx, plan, nil)
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(ResourceResponse{Data: nonNil(rows)})
	}

	page, err := query.Paginate(ctx, h.exec, plan, params, h.api.DefaultPageSize)
	if err != nil {
		return h.respondError(c, err)
	}

	data := page.Items
	if params.PaginationOnly {
		data = []query.Row{}
	}
	return c.JSON(ResourceResponse{
		Meta: ResponseMeta{Pagination: &page.Meta},
		Data: nonNil(data),
	})
}

// Show returns a single row by primary key. with and select apply as they
// do for listings.
func (h *ResourceHandler) Show(c fiber.Ctx) error {
	table, ok := h.schema.Table(c.Params("resource"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse("Resource not found"))
	}

	params, err := h.parseParams(c)
	if err != nil {
		return h.respondError(c, err)
	}
	plan := query.Assemble(params, query.NewPlan(table.Name), h.assemble...).
		Where(query.Comparison{Field: table.PrimaryKey, Operator: query.OpEqual, Value: c.Params("id")}).
		WithLimit(1)

	rows, err := h.exec.Fetch(c.RequestCtx(), plan, nil)
	if err != nil {
		if errors.Is(err, query.ErrTypeMismatch) {
			// an id of the wrong type cannot match any row
			return c.Status(fiber.StatusNotFound).JSON(errorResponse("Model not found"))
		}
		return h.respondError(c, err)
	}
	if len(rows) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse("Model not found"))
	}

	return c.JSON(fiber.Map{"data": rows[0]})
}

func (h *ResourceHandler) parseParams(c fiber.Ctx) (query.FilterParams, error) {
	params, err := query.ParseParams(string(c.Request().URI().QueryString()))
	if err != nil {
		return params, err
	}
	if params.PerPage != nil && *params.PerPage > 0 {
		capped := h.api.EffectivePerPage(*params.PerPage)
		params.PerPage = &capped
	}
	h.metrics.ObserveFilterTerms(query.CountTerms(params))
	return params, nil
}

func (h *ResourceHandler) respondError(c fiber.Ctx, err error) error {
	if query.IsClientError(err) {
		log.Debug().Err(err).Str("path", c.Path()).Msg("Rejected query")
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse(err.Error()))
	}
	return fmt.Errorf("failed to serve %s: %w", c.Path(), err)
}

func nonNil(rows []query.Row) []query.Row {
	if rows == nil {
		return []query.Row{}
	}
	return rows
}
