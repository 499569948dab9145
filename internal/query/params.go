package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PerPageAll is the per_page sentinel requesting a single page with every row
const PerPageAll = -1

// Entry is a key/value pair from a bracketed parameter such as filter[key]
type Entry struct {
	Key   string
	Value string
}

// OrderParam is one order[field]=direction entry
type OrderParam struct {
	Field     string
	Direction Direction
}

// FilterParams is the typed view of a request's query string. Filters and
// orders keep the order in which they appeared in the request.
type FilterParams struct {
	With           []string
	Filters        []Entry
	Orders         []OrderParam
	Limit          *int
	Select         []string
	PerPage        *int
	Page           int // 0 when absent
	All            bool
	PaginationOnly bool
}

// HasPerPage reports whether a usable per_page was supplied
func (p FilterParams) HasPerPage() bool {
	return p.PerPage != nil
}

// ParseParams parses a raw (still escaped) query string. Only the shape of
// the parameters is validated; field and relation names are left to the
// executor. A repeated filter or order key replaces the earlier value but
// keeps its position.
func ParseParams(rawQuery string) (FilterParams, error) {
	var params FilterParams
	filterIdx := map[string]int{}
	orderIdx := map[string]int{}

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return FilterParams{}, fmt.Errorf("%w: malformed key %q", ErrInvalidParameter, rawKey)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return FilterParams{}, fmt.Errorf("%w: malformed value for %q", ErrInvalidParameter, key)
		}

		name, sub, bracketed := splitBracket(key)
		switch name {
		case "filter":
			if !bracketed || sub == "" {
				return FilterParams{}, fmt.Errorf("%w: filter requires a field, e.g. filter[name]", ErrInvalidParameter)
			}
			if i, ok := filterIdx[sub]; ok {
				params.Filters[i].Value = value
				continue
			}
			filterIdx[sub] = len(params.Filters)
			params.Filters = append(params.Filters, Entry{Key: sub, Value: value})

		case "order":
			if !bracketed || sub == "" {
				return FilterParams{}, fmt.Errorf("%w: order requires a field, e.g. order[name]", ErrInvalidParameter)
			}
			dir, err := parseDirection(value)
			if err != nil {
				return FilterParams{}, err
			}
			if i, ok := orderIdx[sub]; ok {
				params.Orders[i].Direction = dir
				continue
			}
			orderIdx[sub] = len(params.Orders)
			params.Orders = append(params.Orders, OrderParam{Field: sub, Direction: dir})

		case "with":
			if bracketed {
				if value != "" {
					params.With = append(params.With, value)
				}
				continue
			}
			params.With = append(params.With, splitList(value)...)

		case "limit":
			n, err := parseInt(name, value)
			if err != nil {
				return FilterParams{}, err
			}
			if n < 0 {
				return FilterParams{}, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidParameter, n)
			}
			params.Limit = &n

		case "select":
			params.Select = nil
			for _, col := range splitList(value) {
				if col != "*" {
					params.Select = append(params.Select, col)
				}
			}

		case "per_page":
			n, err := parseInt(name, value)
			if err != nil {
				return FilterParams{}, err
			}
			if n != PerPageAll && n < 1 {
				// other non-positive sizes fall back to the default
				params.PerPage = nil
				continue
			}
			params.PerPage = &n

		case "page":
			n, err := parseInt(name, value)
			if err != nil {
				return FilterParams{}, err
			}
			if n < 1 {
				return FilterParams{}, fmt.Errorf("%w: page must be at least 1, got %d", ErrInvalidParameter, n)
			}
			params.Page = n

		case "all":
			params.All = true

		case "pagination":
			params.PaginationOnly = true
		}
	}

	return params, nil
}

// splitBracket splits "filter[a.b]" into ("filter", "a.b", true)
func splitBracket(key string) (string, string, bool) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, "", false
	}
	return key[:open], key[open+1 : len(key)-1], true
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseInt(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidParameter, name, value)
	}
	return n, nil
}

func parseDirection(raw string) (Direction, error) {
	switch dir := Direction(strings.ToLower(strings.TrimSpace(DecodeText(raw)))); dir {
	case Asc, Desc:
		return dir, nil
	default:
		return "", fmt.Errorf("%w: order direction must be asc or desc, got %q", ErrInvalidParameter, raw)
	}
}
