package domain

import (
	"fmt"
	"regexp"
)

// ThemeField names one of the four theme colors.
type ThemeField string

const (
	FieldPrimary   ThemeField = "primary"
	FieldSecondary ThemeField = "secondary"
	FieldBody      ThemeField = "body"
	FieldCard      ThemeField = "card"
)

// ThemeFields lists the theme colors in display order.
var ThemeFields = []ThemeField{FieldPrimary, FieldSecondary, FieldBody, FieldCard}

// Default public page colors.
const (
	DefaultPrimaryColor   = "#7b68ee"
	DefaultSecondaryColor = "#2b2d42"
	DefaultBodyColor      = "#f7f9fb"
	DefaultCardColor      = "#ffffff"
)

var colorHexPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// IsColorHex reports whether s is a 7-character #RRGGBB value.
func IsColorHex(s string) bool {
	return colorHexPattern.MatchString(s)
}

// ParseThemeField converts s into a ThemeField.
func ParseThemeField(s string) (ThemeField, error) {
	for _, f := range ThemeFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown theme field %q", s)
}

// ThemeColors is the 4-color theme of a public profile page.
type ThemeColors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Body      string `json:"body"`
	Card      string `json:"card"`
}

// DefaultTheme returns the colors used when a profile never customized its page.
func DefaultTheme() ThemeColors {
	return ThemeColors{
		Primary:   DefaultPrimaryColor,
		Secondary: DefaultSecondaryColor,
		Body:      DefaultBodyColor,
		Card:      DefaultCardColor,
	}
}

// WithDefaults substitutes the default color for every empty field.
func (t ThemeColors) WithDefaults() ThemeColors {
	d := DefaultTheme()
	if t.Primary == "" {
		t.Primary = d.Primary
	}
	if t.Secondary == "" {
		t.Secondary = d.Secondary
	}
	if t.Body == "" {
		t.Body = d.Body
	}
	if t.Card == "" {
		t.Card = d.Card
	}
	return t
}

// Get returns the value of field f.
func (t ThemeColors) Get(f ThemeField) string {
	switch f {
	case FieldPrimary:
		return t.Primary
	case FieldSecondary:
		return t.Secondary
	case FieldBody:
		return t.Body
	case FieldCard:
		return t.Card
	}
	return ""
}

// With returns a copy of t with field f set to value.
func (t ThemeColors) With(f ThemeField, value string) ThemeColors {
	switch f {
	case FieldPrimary:
		t.Primary = value
	case FieldSecondary:
		t.Secondary = value
	case FieldBody:
		t.Body = value
	case FieldCard:
		t.Card = value
	}
	return t
}

// Equal compares all four fields.
func (t ThemeColors) Equal(o ThemeColors) bool {
	for _, f := range ThemeFields {
		if t.Get(f) != o.Get(f) {
			return false
		}
	}
	return true
}

// Validate returns a ValidationError naming every field that is not a #RRGGBB value.
func (t ThemeColors) Validate() error {
	var fields []FieldError
	for _, f := range ThemeFields {
		if !IsColorHex(t.Get(f)) {
			fields = append(fields, FieldError{
				Field:   string(f),
				Message: fmt.Sprintf("%s color must be a hex value like #7b68ee", f),
			})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
