// Package navsync defines the content types exchanged with the remote store.
package navsync

import (
	"time"
)

// Well-known remote paths of the tracked collections.
const (
	NavigationFile = "navigation.json"
	SiteFile       = "site.json"
	ResourcesFile  = "resources.json"
)

// LastSyncKey is the LocalStore key holding the RFC 3339 time of the last
// successful reconciliation.
const LastSyncKey = "last_sync_time"

// Revision is the opaque version token returned by the remote store after a write.
type Revision string

// Commit is a single entry of the remote store's history.
type Commit struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message,omitempty"`
	AuthorDate time.Time `json:"author_date"`
}

// NavigationItem is a single link shown in a navigation category.
type NavigationItem struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	TitleEn       string   `json:"titleEn,omitempty"`
	Description   string   `json:"description"`
	DescriptionEn string   `json:"descriptionEn,omitempty"`
	Icon          string   `json:"icon"`
	Href          string   `json:"href"`
	Enabled       bool     `json:"enabled"`
	Tags          []string `json:"tags,omitempty"`
	Category      string   `json:"category,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`
}

// NavigationSubCategory groups items below a top-level category.
type NavigationSubCategory struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	TitleEn     string           `json:"titleEn,omitempty"`
	Description string           `json:"description,omitempty"`
	Icon        string           `json:"icon,omitempty"`
	Items       []NavigationItem `json:"items"`
	Enabled     bool             `json:"enabled"`
	Order       int              `json:"order,omitempty"`
}

// NavigationCategory is a top-level entry of navigation.json.
type NavigationCategory struct {
	ID            string                  `json:"id"`
	Title         string                  `json:"title"`
	TitleEn       string                  `json:"titleEn,omitempty"`
	Icon          string                  `json:"icon,omitempty"`
	Description   string                  `json:"description,omitempty"`
	DescriptionEn string                  `json:"descriptionEn,omitempty"`
	Items         []NavigationItem        `json:"items"`
	SubCategories []NavigationSubCategory `json:"subCategories,omitempty"`
	Enabled       bool                    `json:"enabled"`
	Order         int                     `json:"order,omitempty"`
	ParentID      string                  `json:"parentId,omitempty"`
	CreatedAt     string                  `json:"createdAt,omitempty"`
	UpdatedAt     string                  `json:"updatedAt,omitempty"`
}

// NavigationStats summarizes a navigation tree.
type NavigationStats struct {
	TotalCategories    int `json:"totalCategories"`
	TotalSubCategories int `json:"totalSubCategories"`
	TotalItems         int `json:"totalItems"`
	EnabledItems       int `json:"enabledItems"`
	DisabledItems      int `json:"disabledItems"`
}

// SiteBasicConfig holds the site identity.
type SiteBasicConfig struct {
	Title         string `json:"title"`
	TitleEn       string `json:"titleEn,omitempty"`
	Description   string `json:"description"`
	DescriptionEn string `json:"descriptionEn,omitempty"`
	Keywords      string `json:"keywords"`
	KeywordsEn    string `json:"keywordsEn,omitempty"`
	Author        string `json:"author,omitempty"`
	Email         string `json:"email,omitempty"`
	URL           string `json:"url,omitempty"`
}

// SiteAppearanceConfig holds presentation settings.
type SiteAppearanceConfig struct {
	Logo         string `json:"logo"`
	Favicon      string `json:"favicon"`
	Theme        string `json:"theme"` // light, dark or system
	PrimaryColor string `json:"primaryColor,omitempty"`
	AccentColor  string `json:"accentColor,omitempty"`
	FontFamily   string `json:"fontFamily,omitempty"`
	CustomCSS    string `json:"customCss,omitempty"`
}

type SiteSeoConfig struct {
	EnableSeo       bool   `json:"enableSeo"`
	OgImage         string `json:"ogImage,omitempty"`
	TwitterCard     string `json:"twitterCard,omitempty"`
	GoogleAnalytics string `json:"googleAnalytics,omitempty"`
}

type SiteFeatureConfig struct {
	EnableSearch      bool `json:"enableSearch"`
	EnableThemeToggle bool `json:"enableThemeToggle"`
	EnableI18n        bool `json:"enableI18n"`
	EnablePwa         bool `json:"enablePwa"`
	EnableComments    bool `json:"enableComments"`
}

// SiteConfig is the content of site.json.
type SiteConfig struct {
	Basic       SiteBasicConfig      `json:"basic"`
	Appearance  SiteAppearanceConfig `json:"appearance"`
	Seo         *SiteSeoConfig       `json:"seo,omitempty"`
	Features    *SiteFeatureConfig   `json:"features,omitempty"`
	Version     string               `json:"version,omitempty"`
	LastUpdated string               `json:"lastUpdated,omitempty"`
}

// ResourceItem is a single entry of a resource section.
type ResourceItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	URL         string `json:"url"`
}

// ResourceSection is a top-level entry of resources.json.
type ResourceSection struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Items []ResourceItem `json:"items"`
}

// Snapshot is a point-in-time copy of every tracked collection. It is not
// transactionally consistent: each collection is read independently.
type Snapshot struct {
	Navigation []NavigationCategory `json:"navigation"`
	Site       SiteConfig           `json:"site"`
	Resources  []ResourceSection    `json:"resources"`
	Timestamp  time.Time            `json:"timestamp"`
}

// DefaultSiteConfig returns the configuration written when site.json is missing.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Basic: SiteBasicConfig{
			Title:       "NavSphere",
			Description: "Navigation management platform",
			Keywords:    "navigation,bookmarks,management",
		},
		Appearance: SiteAppearanceConfig{
			Logo:    "/favicon.ico",
			Favicon: "/favicon.ico",
			Theme:   "system",
		},
	}
}

// DefaultNavigation returns the navigation written when navigation.json is missing.
func DefaultNavigation() []NavigationCategory {
	return []NavigationCategory{
		{
			ID:      "getting-started",
			Title:   "Getting Started",
			Icon:    "rocket",
			Enabled: true,
			Items: []NavigationItem{
				{
					ID:          "docs",
					Title:       "Documentation",
					Description: "Project documentation",
					Icon:        "book",
					Href:        "https://example.com/docs",
					Enabled:     true,
				},
			},
		},
	}
}

// CalculateNavigationStats counts enabled categories, sub-categories and items.
func CalculateNavigationStats(categories []NavigationCategory) NavigationStats {
	var stats NavigationStats
	count := func(items []NavigationItem) {
		for _, item := range items {
			stats.TotalItems++
			if item.Enabled {
				stats.EnabledItems++
			} else {
				stats.DisabledItems++
			}
		}
	}
	for _, category := range categories {
		if category.Enabled {
			stats.TotalCategories++
		}
		count(category.Items)
		for _, sub := range category.SubCategories {
			if sub.Enabled {
				stats.TotalSubCategories++
			}
			count(sub.Items)
		}
	}
	return stats
}
