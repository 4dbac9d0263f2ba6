package models

import (
	"strings"

	"gorm.io/gorm"
)

// User represents a staff account allowed into the formula builder.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	Theme        string `gorm:"type:varchar(32);default:system"`
}

const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"

	DefaultTheme = ThemeSystem
)

// ValidTheme reports whether value names a supported theme.
func ValidTheme(value string) bool {
	switch value {
	case ThemeSystem, ThemeLight, ThemeDark:
		return true
	}
	return false
}

// NormalizeTheme trims value and falls back to DefaultTheme when unsupported.
func NormalizeTheme(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if ValidTheme(trimmed) {
		return trimmed
	}
	return DefaultTheme
}
