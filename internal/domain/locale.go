package domain

import (
	"fmt"
	"strings"
)

type Locale string

const (
	LocaleKa Locale = "ka"
	LocaleEn Locale = "en"
	LocaleRu Locale = "ru"
	LocaleAr Locale = "ar"
	LocaleDe Locale = "de"
	LocaleTr Locale = "tr"
)

// Locales is the supported set, in fallback order of last resort.
var Locales = []Locale{LocaleKa, LocaleEn, LocaleRu, LocaleAr, LocaleDe, LocaleTr}

func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Locales {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unsupported locale: %q", s)
}

// LocaleFromHeader picks the first supported language tag of an
// Accept-Language value, ignoring region and quality.
func LocaleFromHeader(header string, fallback Locale) Locale {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		tag = strings.SplitN(tag, "-", 2)[0]
		if l, err := ParseLocale(tag); err == nil {
			return l
		}
	}
	return fallback
}

// LocalizedText holds one string per locale.
type LocalizedText map[Locale]string

// Resolve returns the text for l, falling back to English, then Georgian,
// then the first non-empty translation.
func (t LocalizedText) Resolve(l Locale) string {
	for _, candidate := range []Locale{l, LocaleEn, LocaleKa} {
		if v := t[candidate]; v != "" {
			return v
		}
	}
	for _, candidate := range Locales {
		if v := t[candidate]; v != "" {
			return v
		}
	}
	return ""
}

func (t LocalizedText) Empty() bool {
	for _, v := range t {
		if v != "" {
			return false
		}
	}
	return true
}
