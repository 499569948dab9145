package database

import (
	"testing"

	"github.com/fluxbase-eu/queryfilter/internal/config"
	"github.com/stretchr/testify/require"
)

// blogResources describes posts written by authors, each author owning a
// profile and many posts, each post carrying many comments.
func blogResources() []config.ResourceConfig {
	return []config.ResourceConfig{
		{
			Name:    "posts",
			Columns: []string{"id", "author_id", "name", "title", "views", "created_at"},
			Relations: []config.RelationConfig{
				{Name: "author", Kind: config.RelationBelongsTo, Target: "authors", ForeignKey: "author_id"},
				{Name: "comments", Kind: config.RelationHasMany, Target: "comments", ForeignKey: "post_id"},
			},
		},
		{
			Name:    "authors",
			Columns: []string{"id", "name", "age", "active"},
			Relations: []config.RelationConfig{
				{Name: "profile", Kind: config.RelationHasOne, Target: "profiles", ForeignKey: "author_id"},
				{Name: "posts", Kind: config.RelationHasMany, Target: "posts", ForeignKey: "author_id"},
			},
		},
		{
			Name:    "profiles",
			Columns: []string{"id", "author_id", "age", "city"},
		},
		{
			Name:    "comments",
			Columns: []string{"id", "post_id", "body", "approved"},
			Relations: []config.RelationConfig{
				{Name: "post", Kind: config.RelationBelongsTo, Target: "posts", ForeignKey: "post_id"},
			},
		},
	}
}

func blogSchema(t *testing.T) *Schema {
	t.Helper()
	schema, err := NewSchema(blogResources())
	require.NoError(t, err)
	return schema
}
