package content

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/CreativeUnicorns/navsync"
)

// editNavigation applies fn to a fresh copy of the remote tree and saves the
// result. Edits are serialized so two local edits cannot overwrite each other.
func (r *Repository) editNavigation(ctx context.Context, fn func([]navsync.NavigationCategory, string) ([]navsync.NavigationCategory, error)) error {
	r.editMu.Lock()
	defer r.editMu.Unlock()

	categories, err := r.loadNavigation(ctx)
	if err != nil {
		return err
	}
	stamp := r.now().UTC().Format(time.RFC3339)
	categories, err = fn(categories, stamp)
	if err != nil {
		return err
	}
	return r.UpdateNavigation(ctx, categories)
}

func findCategory(categories []navsync.NavigationCategory, id string) (int, error) {
	i := slices.IndexFunc(categories, func(c navsync.NavigationCategory) bool { return c.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %q", ErrCategoryNotFound, id)
	}
	return i, nil
}

// AddCategory appends a category to the navigation tree.
func (r *Repository) AddCategory(ctx context.Context, category navsync.NavigationCategory) error {
	return r.editNavigation(ctx, func(categories []navsync.NavigationCategory, stamp string) ([]navsync.NavigationCategory, error) {
		if category.CreatedAt == "" {
			category.CreatedAt = stamp
		}
		category.UpdatedAt = stamp
		return append(categories, category), nil
	})
}

// UpdateCategory applies update to the category with the given id. The id
// itself cannot be changed.
func (r *Repository) UpdateCategory(ctx context.Context, id string, update func(*navsync.NavigationCategory)) error {
	return r.editNavigation(ctx, func(categories []navsync.NavigationCategory, stamp string) ([]navsync.NavigationCategory, error) {
		i, err := findCategory(categories, id)
		if err != nil {
			return nil, err
		}
		update(&categories[i])
		categories[i].ID = id
		categories[i].UpdatedAt = stamp
		return categories, nil
	})
}

// DeleteCategory removes the category with the given id.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	return r.editNavigation(ctx, func(categories []navsync.NavigationCategory, _ string) ([]navsync.NavigationCategory, error) {
		i, err := findCategory(categories, id)
		if err != nil {
			return nil, err
		}
		return slices.Delete(categories, i, i+1), nil
	})
}

// AddItem appends an item to a category.
func (r *Repository) AddItem(ctx context.Context, categoryID string, item navsync.NavigationItem) error {
	return r.editNavigation(ctx, func(categories []navsync.NavigationCategory, stamp string) ([]navsync.NavigationCategory, error) {
		i, err := findCategory(categories, categoryID)
		if err != nil {
			return nil, err
		}
		if item.CreatedAt == "" {
			item.CreatedAt = stamp
		}
		item.UpdatedAt = stamp
		categories[i].Items = append(categories[i].Items, item)
		categories[i].UpdatedAt = stamp
		return categories, nil
	})
}

// UpdateItem applies update to one item of a category.
func (r *Repository) UpdateItem(ctx context.Context, categoryID, itemID string, update func(*navsync.NavigationItem)) error {
	return r.editNavigation(ctx, func(categories []navsync.NavigationCategory, stamp string) ([]navsync.NavigationCategory, error) {
		i, err := findCategory(categories, categoryID)
		if err != nil {
			return nil, err
		}
		items := categories[i].Items
		j := slices.IndexFunc(items, func(it navsync.NavigationItem) bool { return it.ID == itemID })
		if j < 0 {
			return nil, fmt.Errorf("%w: %q in category %q", ErrItemNotFound, itemID, categoryID)
		}
		update(&items[j])
		items[j].ID = itemID
		items[j].UpdatedAt = stamp
		categories[i].UpdatedAt = stamp
		return categories, nil
	})
}

// DeleteItem removes one item from a category.
func (r *Repository) DeleteItem(ctx context.Context, categoryID, itemID string) error {
	return r.editNavigation(ctx, func(categories []navsync.NavigationCategory, stamp string) ([]navsync.NavigationCategory, error) {
		i, err := findCategory(categories, categoryID)
		if err != nil {
			return nil, err
		}
		items := categories[i].Items
		j := slices.IndexFunc(items, func(it navsync.NavigationItem) bool { return it.ID == itemID })
		if j < 0 {
			return nil, fmt.Errorf("%w: %q in category %q", ErrItemNotFound, itemID, categoryID)
		}
		categories[i].Items = slices.Delete(items, j, j+1)
		categories[i].UpdatedAt = stamp
		return categories, nil
	})
}
