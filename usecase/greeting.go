package usecase

import (
	"strings"
	"unicode"

	"github.com/geostat-assistant/server/domain/entities"
)

const (
	greetingGeorgian = "გამარჯობა! რა სტატისტიკური მონაცემები გაინტერესებთ?"
	greetingEnglish  = "Hello! What statistics are you looking for today?"
)

var simpleGreetings = map[string]struct{}{
	"hi":          {},
	"hello":       {},
	"hey":         {},
	"gamarjoba":   {},
	"გამარჯობა":   {},
	"მოგესალმები": {},
}

func isGeorgianLetter(r rune) bool {
	return r >= 'ა' && r <= 'ჰ'
}

// DetectLanguage returns Georgian for empty text or text containing any
// Georgian letter, English otherwise.
func DetectLanguage(text string) entities.Language {
	if text == "" {
		return entities.LanguageGeorgian
	}
	if strings.IndexFunc(text, isGeorgianLetter) >= 0 {
		return entities.LanguageGeorgian
	}
	return entities.LanguageEnglish
}

// normalizeGreeting lowercases msg and keeps only latin and Georgian letters
func normalizeGreeting(msg string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || isGeorgianLetter(r) {
			return r
		}
		return -1
	}, msg)
}

// IsSimpleGreeting reports whether msg is nothing more than a hello
func IsSimpleGreeting(msg string) bool {
	_, ok := simpleGreetings[normalizeGreeting(msg)]
	return ok
}

// GreetingResponse answers a simple greeting in the user's language.
// Romanized "gamarjoba" is answered in Georgian.
func GreetingResponse(msg string) string {
	if normalizeGreeting(msg) == "gamarjoba" {
		return greetingGeorgian
	}
	if DetectLanguage(msg).IsGeorgian() {
		return greetingGeorgian
	}
	return greetingEnglish
}
