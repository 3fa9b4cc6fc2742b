package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/navsync"
)

func TestRepository_CategoryCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, navsync.NavigationFile, []navsync.NavigationCategory{validCategory("a")})

	require.NoError(t, f.repo.AddCategory(ctx, validCategory("b")))
	*f.now = testNow.Add(time.Hour)
	require.NoError(t, f.repo.UpdateCategory(ctx, "b", func(c *navsync.NavigationCategory) {
		c.ID = "renamed"
		c.Title = "Bee"
	}))

	var stored []navsync.NavigationCategory
	f.remoteJSON(t, navsync.NavigationFile, &stored)
	require.Len(t, stored, 2)
	assert.Equal(t, "b", stored[1].ID)
	assert.Equal(t, "Bee", stored[1].Title)
	assert.Equal(t, "2024-05-01T12:00:00Z", stored[1].CreatedAt)
	assert.Equal(t, "2024-05-01T13:00:00Z", stored[1].UpdatedAt)

	require.NoError(t, f.repo.DeleteCategory(ctx, "a"))
	f.remoteJSON(t, navsync.NavigationFile, &stored)
	require.Len(t, stored, 1)
	assert.Equal(t, "b", stored[0].ID)

	assert.ErrorIs(t, f.repo.DeleteCategory(ctx, "a"), ErrCategoryNotFound)
	assert.ErrorIs(t, f.repo.UpdateCategory(ctx, "a", func(*navsync.NavigationCategory) {}), ErrCategoryNotFound)
}

func TestRepository_AddCategoryRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, navsync.NavigationFile, []navsync.NavigationCategory{validCategory("a")})

	err := f.repo.AddCategory(ctx, validCategory("a"))
	assert.ErrorIs(t, err, navsync.ErrValidation)
}

func TestRepository_ItemCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, navsync.NavigationFile, []navsync.NavigationCategory{validCategory("a")})

	item := navsync.NavigationItem{
		ID:          "go",
		Title:       "Go",
		Description: "The Go language",
		Icon:        "code",
		Href:        "https://go.dev",
		Enabled:     true,
	}
	require.NoError(t, f.repo.AddItem(ctx, "a", item))
	require.NoError(t, f.repo.UpdateItem(ctx, "a", "go", func(it *navsync.NavigationItem) {
		it.Enabled = false
	}))

	var stored []navsync.NavigationCategory
	f.remoteJSON(t, navsync.NavigationFile, &stored)
	require.Len(t, stored[0].Items, 2)
	assert.False(t, stored[0].Items[1].Enabled)
	assert.Equal(t, "2024-05-01T12:00:00Z", stored[0].Items[1].UpdatedAt)
	assert.Equal(t, "2024-05-01T12:00:00Z", stored[0].UpdatedAt)

	require.NoError(t, f.repo.DeleteItem(ctx, "a", "a-item"))
	f.remoteJSON(t, navsync.NavigationFile, &stored)
	require.Len(t, stored[0].Items, 1)
	assert.Equal(t, "go", stored[0].Items[0].ID)

	assert.ErrorIs(t, f.repo.AddItem(ctx, "missing", item), ErrCategoryNotFound)
	assert.ErrorIs(t, f.repo.DeleteItem(ctx, "a", "a-item"), ErrItemNotFound)
	assert.ErrorIs(t, f.repo.UpdateItem(ctx, "a", "nope", func(*navsync.NavigationItem) {}), ErrItemNotFound)
}

func TestRepository_AddItemValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, navsync.NavigationFile, []navsync.NavigationCategory{validCategory("a")})

	err := f.repo.AddItem(ctx, "a", navsync.NavigationItem{ID: "bad", Title: "Bad", Href: "ftp://x"})
	assert.ErrorIs(t, err, navsync.ErrValidation)

	cats, err := f.repo.Navigation(ctx)
	require.NoError(t, err)
	assert.Len(t, cats[0].Items, 1)
}
