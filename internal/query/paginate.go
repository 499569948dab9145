package query

import (
	"context"
	"fmt"
)

// PageMeta describes one page of a paginated result
type PageMeta struct {
	Items       int   `json:"items"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
}

// Page is a paginated result
type Page struct {
	Items []Row
	Meta  PageMeta
}

// ResolvePerPage returns the effective page size. The -1 sentinel resolves
// to total so that every row lands on the first page.
func ResolvePerPage(params FilterParams, total int64, defaultPerPage int) int {
	switch {
	case params.PerPage != nil && *params.PerPage == PerPageAll:
		return int(total)
	case params.PerPage != nil && *params.PerPage > 0:
		return *params.PerPage
	default:
		return defaultPerPage
	}
}

// Paginate counts the plan's rows and fetches the requested page. A plan
// limit caps the total, so paging never reaches past it.
func Paginate(ctx context.Context, exec Executor, plan Plan, params FilterParams, defaultPerPage int) (Page, error) {
	total, err := exec.Count(ctx, plan)
	if err != nil {
		return Page{}, fmt.Errorf("failed to count rows: %w", err)
	}
	if plan.Limit != nil && total > int64(*plan.Limit) {
		total = int64(*plan.Limit)
	}

	perPage := ResolvePerPage(params, total, defaultPerPage)
	currentPage := params.Page
	if currentPage < 1 {
		currentPage = 1
	}

	meta := PageMeta{
		TotalItems:  total,
		TotalPages:  totalPages(total, perPage),
		CurrentPage: currentPage,
		PerPage:     perPage,
	}

	// compare page numbers before computing the offset so a huge page
	// cannot overflow it
	if perPage <= 0 || total <= 0 || currentPage > meta.TotalPages {
		return Page{Items: []Row{}, Meta: meta}, nil
	}
	offset := (currentPage - 1) * perPage
	remaining := int(total) - offset
	if remaining <= 0 {
		return Page{Items: []Row{}, Meta: meta}, nil
	}

	window := &Window{Offset: offset, Limit: min(perPage, remaining)}
	items, err := exec.Fetch(ctx, plan, window)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch page %d: %w", currentPage, err)
	}
	if items == nil {
		items = []Row{}
	}
	meta.Items = len(items)

	return Page{Items: items, Meta: meta}, nil
}

func totalPages(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
