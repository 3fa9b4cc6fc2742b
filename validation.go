// validation.go
package navsync

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 500
)

var (
	urlPattern   = regexp.MustCompile(`^https?://.+`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	validThemes  = map[string]bool{"light": true, "dark": true, "system": true}
)

// Validation error codes.
const (
	CodeRequired      = "REQUIRED"
	CodeMaxLength     = "MAX_LENGTH"
	CodeInvalidFormat = "INVALID_FORMAT"
	CodeInvalidValue  = "INVALID_VALUE"
	CodeDuplicate     = "DUPLICATE"
)

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateNavigationItem checks a single navigation item.
func ValidateNavigationItem(item NavigationItem) []FieldError {
	var errs []FieldError
	if blank(item.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id is required", Code: CodeRequired})
	}
	switch {
	case blank(item.Title):
		errs = append(errs, FieldError{Field: "title", Message: "title is required", Code: CodeRequired})
	case len(item.Title) > maxTitleLength:
		errs = append(errs, FieldError{Field: "title", Message: fmt.Sprintf("title must not exceed %d characters", maxTitleLength), Code: CodeMaxLength})
	}
	switch {
	case blank(item.Description):
		errs = append(errs, FieldError{Field: "description", Message: "description is required", Code: CodeRequired})
	case len(item.Description) > maxDescriptionLength:
		errs = append(errs, FieldError{Field: "description", Message: fmt.Sprintf("description must not exceed %d characters", maxDescriptionLength), Code: CodeMaxLength})
	}
	switch {
	case blank(item.Href):
		errs = append(errs, FieldError{Field: "href", Message: "href is required", Code: CodeRequired})
	case !urlPattern.MatchString(item.Href):
		errs = append(errs, FieldError{Field: "href", Message: "href must be an http(s) URL", Code: CodeInvalidFormat})
	}
	if blank(item.Icon) {
		errs = append(errs, FieldError{Field: "icon", Message: "icon is required", Code: CodeRequired})
	}
	return errs
}

// ValidateNavigationCategory checks a category, its items and its sub-categories.
func ValidateNavigationCategory(category NavigationCategory) []FieldError {
	var errs []FieldError
	if blank(category.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id is required", Code: CodeRequired})
	}
	switch {
	case blank(category.Title):
		errs = append(errs, FieldError{Field: "title", Message: "title is required", Code: CodeRequired})
	case len(category.Title) > maxTitleLength:
		errs = append(errs, FieldError{Field: "title", Message: fmt.Sprintf("title must not exceed %d characters", maxTitleLength), Code: CodeMaxLength})
	}
	for i, item := range category.Items {
		for _, e := range ValidateNavigationItem(item) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("items[%d].%s", i, e.Field),
				Message: fmt.Sprintf("item %d: %s", i+1, e.Message),
				Code:    e.Code,
			})
		}
	}
	for i, sub := range category.SubCategories {
		if blank(sub.ID) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("subCategories[%d].id", i), Message: fmt.Sprintf("sub-category %d: id is required", i+1), Code: CodeRequired})
		}
		if blank(sub.Title) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("subCategories[%d].title", i), Message: fmt.Sprintf("sub-category %d: title is required", i+1), Code: CodeRequired})
		}
		for j, item := range sub.Items {
			for _, e := range ValidateNavigationItem(item) {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("subCategories[%d].items[%d].%s", i, j, e.Field),
					Message: fmt.Sprintf("sub-category %d item %d: %s", i+1, j+1, e.Message),
					Code:    e.Code,
				})
			}
		}
	}
	return errs
}

// ValidateNavigation checks a full navigation document, including duplicate category ids.
func ValidateNavigation(categories []NavigationCategory) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(categories))
	for i, category := range categories {
		if category.ID != "" {
			if seen[category.ID] {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("[%d].id", i),
					Message: fmt.Sprintf("category id %q is duplicated", category.ID),
					Code:    CodeDuplicate,
				})
			}
			seen[category.ID] = true
		}
		for _, e := range ValidateNavigationCategory(category) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("[%d].%s", i, e.Field), Message: e.Message, Code: e.Code})
		}
	}
	return errs
}

// ValidateSite checks the site configuration.
func ValidateSite(cfg SiteConfig) []FieldError {
	var errs []FieldError
	if blank(cfg.Basic.Title) {
		errs = append(errs, FieldError{Field: "basic.title", Message: "site title is required", Code: CodeRequired})
	}
	if blank(cfg.Basic.Description) {
		errs = append(errs, FieldError{Field: "basic.description", Message: "site description is required", Code: CodeRequired})
	}
	if cfg.Basic.Email != "" && !emailPattern.MatchString(cfg.Basic.Email) {
		errs = append(errs, FieldError{Field: "basic.email", Message: "email format is invalid", Code: CodeInvalidFormat})
	}
	if cfg.Basic.URL != "" && !urlPattern.MatchString(cfg.Basic.URL) {
		errs = append(errs, FieldError{Field: "basic.url", Message: "site URL format is invalid", Code: CodeInvalidFormat})
	}
	if !validThemes[cfg.Appearance.Theme] {
		errs = append(errs, FieldError{Field: "appearance.theme", Message: "theme must be light, dark or system", Code: CodeInvalidValue})
	}
	return errs
}

// ValidateResources checks every resource section and item.
func ValidateResources(sections []ResourceSection) []FieldError {
	var errs []FieldError
	for i, section := range sections {
		if blank(section.ID) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("[%d].id", i), Message: fmt.Sprintf("section %d: id is required", i+1), Code: CodeRequired})
		}
		if blank(section.Title) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("[%d].title", i), Message: fmt.Sprintf("section %d: title is required", i+1), Code: CodeRequired})
		}
		for j, item := range section.Items {
			if blank(item.Title) {
				errs = append(errs, FieldError{Field: fmt.Sprintf("[%d].items[%d].title", i, j), Message: fmt.Sprintf("section %d item %d: title is required", i+1, j+1), Code: CodeRequired})
			}
			if blank(item.URL) {
				errs = append(errs, FieldError{Field: fmt.Sprintf("[%d].items[%d].url", i, j), Message: fmt.Sprintf("section %d item %d: url is required", i+1, j+1), Code: CodeRequired})
			}
		}
	}
	return errs
}
