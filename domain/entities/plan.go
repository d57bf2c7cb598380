package entities

import (
	"strings"
)

// Language is the two-letter code the assistant answers in
type Language string

const (
	LanguageGeorgian Language = "ka"
	LanguageEnglish  Language = "en"
)

// IsGeorgian reports whether replies should be written in Georgian
func (l Language) IsGeorgian() bool {
	return l == LanguageGeorgian
}

// Label returns the language name used inside LLM prompts
func (l Language) Label() string {
	if l.IsGeorgian() {
		return "Georgian language"
	}
	return "English language"
}

// Intent is the kind of question the user asked
type Intent string

const (
	IntentNavigation       Intent = "navigation"
	IntentGeneralKnowledge Intent = "general_knowledge"
	IntentSmallTalk        Intent = "small_talk"
)

// Topic is a statistics area that may have its own data portal
type Topic string

const (
	TopicEconomy       Topic = "economy"
	TopicPrices        Topic = "prices"
	TopicPopulation    Topic = "population"
	TopicEnvironment   Topic = "environment"
	TopicEnergy        Topic = "energy"
	TopicTourism       Topic = "tourism"
	TopicTrade         Topic = "trade"
	TopicAgriculture   Topic = "agriculture"
	TopicGender        Topic = "gender"
	TopicRegions       Topic = "regions"
	TopicYouth         Topic = "youth"
	TopicAutomobile    Topic = "automobile"
	TopicWages         Topic = "wages"
	TopicTaxes         Topic = "taxes"
	TopicFDI           Topic = "fdi"
	TopicGIS           Topic = "gis"
	TopicDisability    Topic = "disability"
	TopicInternational Topic = "international"
	TopicOther         Topic = "other"
)

// QueryPlan is the classifier's reading of a user message
type QueryPlan struct {
	Language      Language `json:"language"`
	Intent        Intent   `json:"intent"`
	Topic         Topic    `json:"topic"`
	SearchQueries []string `json:"searchQueries"`
}

// FallbackPlan is used when the classifier cannot produce a plan.
// The raw message becomes the only search query.
func FallbackPlan(message string, detected Language) QueryPlan {
	return QueryPlan{
		Language:      detected,
		Intent:        IntentNavigation,
		Topic:         TopicOther,
		SearchQueries: []string{message},
	}
}

// Normalize fills defaults and canonicalizes intent and topic.
// A navigation plan always ends up with at least one search query.
func (p *QueryPlan) Normalize(message string, detected Language) {
	if strings.TrimSpace(string(p.Language)) == "" {
		p.Language = detected
	}

	if strings.TrimSpace(string(p.Intent)) == "" {
		p.Intent = IntentNavigation
	} else {
		p.Intent = Intent(strings.ToLower(strings.TrimSpace(string(p.Intent))))
	}

	if strings.TrimSpace(string(p.Topic)) == "" {
		p.Topic = TopicOther
	} else {
		p.Topic = Topic(strings.ToLower(strings.TrimSpace(string(p.Topic))))
	}

	if p.SearchQueries == nil {
		p.SearchQueries = []string{}
	}

	if p.Intent == IntentNavigation && len(p.SearchQueries) == 0 {
		words := strings.Fields(message)
		if len(words) > 3 {
			words = words[:3]
		}
		p.SearchQueries = []string{strings.Join(words, " ")}
	}
}
