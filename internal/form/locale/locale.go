// Package locale carries the display preferences of one wizard session.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en"
	Arabic  = "ar"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

var matcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

// Preferences selects the language and theme used to render a session.
// It is passed explicitly to whatever renders output.
type Preferences struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
}

// Default returns English in the light theme.
func Default() Preferences {
	return Preferences{Language: English, Theme: ThemeLight}
}

// Normalize fills unset or unsupported values with defaults.
func (p Preferences) Normalize() Preferences {
	if p.Language != Arabic {
		p.Language = English
	}
	if p.Theme != ThemeDark {
		p.Theme = ThemeLight
	}
	return p
}

// Direction returns the text direction for the language.
func (p Preferences) Direction() string {
	if p.Language == Arabic {
		return "rtl"
	}
	return "ltr"
}

// IsArabic reports whether Arabic is selected.
func (p Preferences) IsArabic() bool {
	return p.Language == Arabic
}

// Match picks en or ar from an explicit value or an Accept-Language header.
// fallback is used when neither names a supported language.
func Match(explicit, acceptLanguage, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case English:
		return English
	case Arabic:
		return Arabic
	}

	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				if idx == 1 {
					return Arabic
				}
				return English
			}
		}
	}

	if fallback == Arabic {
		return Arabic
	}
	return English
}
