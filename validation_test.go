package navsync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItem(id string) NavigationItem {
	return NavigationItem{
		ID:          id,
		Title:       "Go",
		Description: "The Go programming language",
		Icon:        "go",
		Href:        "https://go.dev",
		Enabled:     true,
	}
}

func TestValidateNavigationItem(t *testing.T) {
	assert.Empty(t, ValidateNavigationItem(validItem("go")))

	item := validItem("")
	item.Href = "ftp://example.com"
	item.Title = strings.Repeat("x", 101)
	errs := ValidateNavigationItem(item)
	require.Len(t, errs, 3)
	assert.Equal(t, "id", errs[0].Field)
	assert.Equal(t, CodeRequired, errs[0].Code)
	assert.Equal(t, "title", errs[1].Field)
	assert.Equal(t, CodeMaxLength, errs[1].Code)
	assert.Equal(t, "href", errs[2].Field)
	assert.Equal(t, CodeInvalidFormat, errs[2].Code)
}

func TestValidateNavigation_NestedAndDuplicate(t *testing.T) {
	bad := validItem("broken")
	bad.Icon = ""
	categories := []NavigationCategory{
		{ID: "dev", Title: "Dev", Items: []NavigationItem{validItem("a")}, Enabled: true},
		{
			ID:    "dev",
			Title: "Dev again",
			SubCategories: []NavigationSubCategory{
				{ID: "", Title: "Tools", Items: []NavigationItem{bad}},
			},
		},
	}

	errs := ValidateNavigation(categories)
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "[1].id")
	assert.Contains(t, fields, "[1].subCategories[0].id")
	assert.Contains(t, fields, "[1].subCategories[0].items[0].icon")
	assert.Equal(t, CodeDuplicate, errs[0].Code)
}

func TestValidateSite(t *testing.T) {
	assert.Empty(t, ValidateSite(DefaultSiteConfig()))

	cfg := DefaultSiteConfig()
	cfg.Basic.Title = " "
	cfg.Basic.Email = "not-an-email"
	cfg.Basic.URL = "example.com"
	cfg.Appearance.Theme = "neon"
	errs := ValidateSite(cfg)
	require.Len(t, errs, 4)
	assert.Equal(t, "basic.title", errs[0].Field)
	assert.Equal(t, "basic.email", errs[1].Field)
	assert.Equal(t, "basic.url", errs[2].Field)
	assert.Equal(t, "appearance.theme", errs[3].Field)
}

func TestValidateResources(t *testing.T) {
	sections := []ResourceSection{
		{ID: "tools", Title: "Tools", Items: []ResourceItem{{Title: "Editor", URL: "https://example.com"}}},
		{ID: "", Title: "Broken", Items: []ResourceItem{{Title: ""}}},
	}
	errs := ValidateResources(sections)
	require.Len(t, errs, 3)
	assert.Equal(t, "[1].id", errs[0].Field)
}

func TestDefaultNavigationIsValid(t *testing.T) {
	assert.Empty(t, ValidateNavigation(DefaultNavigation()))
}

func TestCalculateNavigationStats(t *testing.T) {
	disabled := validItem("off")
	disabled.Enabled = false
	categories := []NavigationCategory{
		{ID: "a", Enabled: true, Items: []NavigationItem{validItem("1"), disabled}},
		{ID: "b", Enabled: false, SubCategories: []NavigationSubCategory{
			{ID: "b1", Enabled: true, Items: []NavigationItem{validItem("2")}},
		}},
	}
	stats := CalculateNavigationStats(categories)
	assert.Equal(t, NavigationStats{
		TotalCategories:    1,
		TotalSubCategories: 1,
		TotalItems:         3,
		EnabledItems:       2,
		DisabledItems:      1,
	}, stats)
}
