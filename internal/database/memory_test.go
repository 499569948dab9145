package database

import (
	"context"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/fluxbase-eu/queryfilter/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogSeed = `
authors:
  - {id: 1, name: Ann, age: 40, active: 1}
  - {id: 2, name: Bob, age: 25, active: 0}
  - {id: 3, name: Cid, age: 33, active: 1}
profiles:
  - {id: 1, author_id: 1, age: 40, city: Oslo}
  - {id: 2, author_id: 2, age: 25, city: Rome}
posts:
  - {id: 1, author_id: 1, name: Robust, title: First, views: 10, created_at: "2016-12-07 10:00:00"}
  - {id: 2, author_id: 2, name: Robin, title: Second, views: 3, created_at: "2016-12-09 08:00:00"}
  - {id: 3, author_id: 3, name: alpha, title: null, views: 7, created_at: "2016-12-09 15:00:00"}
  - {id: 4, author_id: 1, name: Beta, title: Fourth, views: 1, created_at: "2016-12-11 09:00:00"}
  - {id: 5, author_id: null, name: Gamma, title: Fifth, views: 5, created_at: "2016-12-08 12:00:00"}
comments:
  - {id: 1, post_id: 1, body: nice, approved: true}
  - {id: 2, post_id: 1, body: meh, approved: null}
  - {id: 3, post_id: 3, body: ok, approved: true}
`

var fixedNow = time.Date(2016, 12, 9, 15, 4, 5, 0, time.UTC)

func newBlogStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(blogSchema(t), nil)
	require.NoError(t, store.LoadSeed([]byte(blogSeed)))
	return store
}

func planFor(t *testing.T, table, raw string) (query.Plan, query.FilterParams) {
	t.Helper()
	params, err := query.ParseParams(raw)
	require.NoError(t, err)
	return query.Assemble(params, query.NewPlan(table), query.WithClock(func() time.Time { return fixedNow })), params
}

func fetchPosts(t *testing.T, store *MemoryStore, raw string) ([]query.Row, error) {
	t.Helper()
	plan, _ := planFor(t, "posts", raw)
	return store.Fetch(context.Background(), plan, nil)
}

func ids(rows []query.Row) []int {
	out := make([]int, 0, len(rows))
	for _, row := range rows {
		out = append(out, row["id"].(int))
	}
	return out
}

func sortedKeys(row query.Row) []string {
	return slices.Sorted(maps.Keys(row))
}

func TestMemoryStore_Filters(t *testing.T) {
	store := newBlogStore(t)

	tests := []struct {
		name    string
		raw     string
		wantIDs []int
	}{
		{"bare value means eq", "filter[name]=Robin", []int{2}},
		{"explicit eq", "filter[name]=eq:Robin", []int{2}},
		{"wildcard like", "filter[name]=like:Rob*&order[id]=asc", []int{1, 2}},
		{"like is case sensitive", "filter[name]=like:rob*", []int{}},
		{"encoded value keeps asterisk", "filter[name]=like:{{b64(Um9iKg==)}}", []int{}},
		{"not like skips nulls", "filter[title]=notlike:F*&order[id]=asc", []int{2}},
		{"numeric comparison", "filter[views]=ge:5&order[id]=asc", []int{1, 3, 5}},
		{"and binds tighter than or", "filter[views]=gt:5:and:lt:8:or:eq:1&order[id]=asc", []int{3, 4}},
		{"fields combine with and", "filter[views]=gt:2&filter[name]=like:R*&order[id]=asc", []int{1, 2}},
		{"in", "filter[id]=in:1,3&order[id]=asc", []int{1, 3}},
		{"not in", "filter[id]=notin:1,3&order[id]=asc", []int{2, 4, 5}},
		{"null", "filter[title]=null", []int{3}},
		{"operator ignored for keywords", "filter[title]=ne:null", []int{3}},
		{"notnull", "filter[title]=notnull&order[id]=asc", []int{1, 2, 4, 5}},
		{"today", "filter[created_at]=today&order[id]=asc", []int{2, 3}},
		{"nottoday", "filter[created_at]=nottoday&order[id]=asc", []int{1, 4, 5}},
		{"related field", "filter[author.active]=eq:1&order[id]=asc", []int{1, 3, 4}},
		{"negated related field", "filter[!author.active]=eq:1&order[id]=asc", []int{2, 5}},
		{"nested relation", "filter[author.profile.city]=Oslo&order[id]=asc", []int{1, 4}},
		{"has many relation", "filter[comments.approved]=notnull&order[id]=asc", []int{1, 3}},
		{"negated has many relation", "filter[!comments.body]=like:*&order[id]=asc", []int{2, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := fetchPosts(t, store, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(rows))
		})
	}
}

func TestMemoryStore_NullDates(t *testing.T) {
	store := NewMemoryStore(blogSchema(t), nil)
	require.NoError(t, store.LoadSeed([]byte(`
posts:
  - {id: 1, name: Dated, created_at: "2016-12-09 08:00:00"}
  - {id: 2, name: Older, created_at: "2016-12-01 08:00:00"}
  - {id: 3, name: Draft, created_at: null}
`)))

	tests := []struct {
		name    string
		raw     string
		wantIDs []int
	}{
		{"today skips null", "filter[created_at]=today", []int{1}},
		{"nottoday keeps null", "filter[created_at]=nottoday&order[id]=asc", []int{2, 3}},
		{"comparison skips null", "filter[created_at]=lt:2016-12-10&order[id]=asc", []int{1, 2}},
		{"null", "filter[created_at]=null", []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := fetchPosts(t, store, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(rows))
		})
	}
}

func TestMemoryStore_CreatedAtWindow(t *testing.T) {
	store := newBlogStore(t)

	rows, err := fetchPosts(t, store, "filter[created_at]=lt:2016-12-10:and:gt:2016-12-08&order[name]=asc&limit=10")
	require.NoError(t, err)

	// byte order puts upper case before lower case
	assert.Equal(t, []int{5, 2, 3}, ids(rows))
	for _, row := range rows {
		createdAt := row["created_at"].(string)
		assert.Greater(t, createdAt, "2016-12-08")
		assert.Less(t, createdAt, "2016-12-10")
	}
}

func TestMemoryStore_Order(t *testing.T) {
	store := newBlogStore(t)

	t.Run("related field ascending puts nulls last", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "order[author.age]=asc")
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3, 1, 4, 5}, ids(rows))
	})

	t.Run("related field descending puts nulls first", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "order[author.age]=desc")
		require.NoError(t, err)
		assert.Equal(t, []int{5, 1, 4, 3, 2}, ids(rows))
	})

	t.Run("orders apply in request order", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "order[author_id]=desc&order[views]=asc")
		require.NoError(t, err)
		assert.Equal(t, []int{5, 3, 2, 4, 1}, ids(rows))
	})

	t.Run("two hops are rejected", func(t *testing.T) {
		_, err := fetchPosts(t, store, "order[author.profile.age]=asc")
		assert.ErrorIs(t, err, query.ErrUnsupportedOrder)
	})

	t.Run("has many is rejected", func(t *testing.T) {
		_, err := fetchPosts(t, store, "order[comments.body]=asc")
		assert.ErrorIs(t, err, query.ErrUnsupportedOrder)
	})
}

func TestMemoryStore_LimitAndSelect(t *testing.T) {
	store := newBlogStore(t)

	t.Run("limit", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "order[id]=asc&limit=2")
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, ids(rows))
	})

	t.Run("limit zero", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "limit=0")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("select", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "filter[id]=1&select=id,name")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, query.Row{"id": 1, "name": "Robust"}, rows[0])
	})

	t.Run("negative window offset starts at the first row", func(t *testing.T) {
		plan, _ := planFor(t, "posts", "order[id]=asc")
		rows, err := store.Fetch(context.Background(), plan, &query.Window{Offset: -10, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, ids(rows))
	})

	t.Run("window", func(t *testing.T) {
		plan, _ := planFor(t, "posts", "order[id]=asc")
		rows, err := store.Fetch(context.Background(), plan, &query.Window{Offset: 3, Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, []int{4, 5}, ids(rows))
	})
}

func TestMemoryStore_Count(t *testing.T) {
	store := newBlogStore(t)

	plan, _ := planFor(t, "posts", "filter[views]=gt:2&order[name]=desc&limit=1")
	count, err := store.Count(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestMemoryStore_With(t *testing.T) {
	store := newBlogStore(t)

	t.Run("belongs to", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "with[]=author&order[id]=asc")
		require.NoError(t, err)
		require.Len(t, rows, 5)

		author, ok := rows[0]["author"].(query.Row)
		require.True(t, ok)
		assert.Equal(t, "Ann", author["name"])
		assert.Nil(t, rows[4]["author"])
	})

	t.Run("has many", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "with=comments&order[id]=asc&limit=2")
		require.NoError(t, err)

		comments, ok := rows[0]["comments"].([]query.Row)
		require.True(t, ok)
		assert.Len(t, comments, 2)
		assert.Equal(t, []query.Row{}, rows[1]["comments"])
	})

	t.Run("nested", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "with[]=author.profile&filter[id]=1")
		require.NoError(t, err)
		require.Len(t, rows, 1)

		author := rows[0]["author"].(query.Row)
		profile := author["profile"].(query.Row)
		assert.Equal(t, "Oslo", profile["city"])
	})

	t.Run("select without the join column", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "select=id,name&with[]=author&with[]=comments&filter[id]=1")
		require.NoError(t, err)
		require.Len(t, rows, 1)

		assert.NotContains(t, rows[0], "author_id")
		author, ok := rows[0]["author"].(query.Row)
		require.True(t, ok)
		assert.Equal(t, "Ann", author["name"])
		assert.Len(t, rows[0]["comments"], 2)
	})

	t.Run("select hiding the primary key", func(t *testing.T) {
		rows, err := fetchPosts(t, store, "select=name&with=comments&filter[id]=3")
		require.NoError(t, err)
		require.Len(t, rows, 1)

		assert.Equal(t, []string{"comments", "name"}, sortedKeys(rows[0]))
		assert.Len(t, rows[0]["comments"], 1)
	})

	t.Run("stored rows are not modified", func(t *testing.T) {
		_, err := fetchPosts(t, store, "with[]=author")
		require.NoError(t, err)

		rows, err := fetchPosts(t, store, "filter[id]=1")
		require.NoError(t, err)
		assert.NotContains(t, rows[0], "author")
	})

	t.Run("unknown relation", func(t *testing.T) {
		_, err := fetchPosts(t, store, "with[]=editor")
		assert.ErrorIs(t, err, query.ErrUnknownRelation)
	})
}

func TestMemoryStore_Errors(t *testing.T) {
	store := newBlogStore(t)
	empty := NewMemoryStore(blogSchema(t), nil)

	tests := []struct {
		name    string
		store   *MemoryStore
		raw     string
		wantErr error
	}{
		{"type mismatch", store, "filter[views]=gt:many", query.ErrTypeMismatch},
		{"type mismatch in list", store, "filter[views]=in:1,x", query.ErrTypeMismatch},
		{"unknown field", store, "filter[email]=x", query.ErrUnknownField},
		{"unknown field on empty table", empty, "filter[email]=x", query.ErrUnknownField},
		{"negation marker on a plain field", store, "filter[!name]=x", query.ErrUnknownField},
		{"unknown relation", store, "filter[editor.name]=x", query.ErrUnknownRelation},
		{"unknown related field", empty, "filter[author.email]=x", query.ErrUnknownField},
		{"unknown operator", store, "filter[name]=between:a", query.ErrUnsupportedOperator},
		{"unknown select column", store, "select=secret", query.ErrUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fetchPosts(t, tt.store, tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMemoryStore_Paginate(t *testing.T) {
	store := newBlogStore(t)
	ctx := context.Background()

	t.Run("per_page -1 returns every row on one page", func(t *testing.T) {
		plan, params := planFor(t, "posts", "per_page=-1")
		page, err := query.Paginate(ctx, store, plan, params, 2)
		require.NoError(t, err)

		assert.Len(t, page.Items, 5)
		assert.Equal(t, query.PageMeta{Items: 5, TotalItems: 5, TotalPages: 1, CurrentPage: 1, PerPage: 5}, page.Meta)
	})

	t.Run("last page", func(t *testing.T) {
		plan, params := planFor(t, "posts", "order[id]=asc&per_page=2&page=3")
		page, err := query.Paginate(ctx, store, plan, params, 15)
		require.NoError(t, err)

		assert.Equal(t, []int{5}, ids(page.Items))
		assert.Equal(t, 3, page.Meta.TotalPages)
	})

	t.Run("huge page number", func(t *testing.T) {
		plan, params := planFor(t, "posts", "per_page=5&page=2305843009213693953")
		page, err := query.Paginate(ctx, store, plan, params, 15)
		require.NoError(t, err)

		assert.Empty(t, page.Items)
		assert.Equal(t, 1, page.Meta.TotalPages)
	})

	t.Run("limit caps pages", func(t *testing.T) {
		plan, params := planFor(t, "posts", "order[id]=asc&limit=3&per_page=2&page=2")
		page, err := query.Paginate(ctx, store, plan, params, 15)
		require.NoError(t, err)

		assert.Equal(t, []int{3}, ids(page.Items))
		assert.Equal(t, int64(3), page.Meta.TotalItems)
		assert.Equal(t, 2, page.Meta.TotalPages)
	})
}

func TestMemoryStore_Seed(t *testing.T) {
	t.Run("unknown resource", func(t *testing.T) {
		store := NewMemoryStore(blogSchema(t), nil)
		err := store.LoadSeed([]byte("users:\n  - {id: 1}\n"))
		assert.ErrorIs(t, err, query.ErrUnknownRelation)
	})

	t.Run("unknown column", func(t *testing.T) {
		store := NewMemoryStore(blogSchema(t), nil)
		err := store.LoadSeed([]byte("authors:\n  - {id: 1, email: a@b.c}\n"))
		assert.ErrorIs(t, err, query.ErrUnknownField)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		store := NewMemoryStore(blogSchema(t), nil)
		assert.Error(t, store.LoadSeed([]byte("authors: [")))
	})

	t.Run("missing file", func(t *testing.T) {
		store := NewMemoryStore(blogSchema(t), nil)
		assert.Error(t, store.LoadSeedFile("testdata/missing.yaml"))
	})
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"Rob%", "Robin", true},
		{"Rob%", "Rob", true},
		{"Rob%", "rob", false},
		{"%in", "Robin", true},
		{"R_b", "Rob", true},
		{"R_b", "Roob", false},
		{"a.c", "abc", false},
		{"a.c", "a.c", true},
		{`100\%`, "100%", true},
		{`100\%`, "1000", false},
		{"line%", "line\nbreak", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, likePattern(tt.pattern).MatchString(tt.input))
		})
	}
}
