package entities

import (
	"regexp"
	"strings"
)

// SearchResult is a single hit from the site search engine
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Score   int    `json:"score"`
}

var (
	subdomainPortalPattern = regexp.MustCompile(`^https://[a-zA-Z0-9.-]+\.geostat\.ge.*`)
	sectionPagePattern     = regexp.MustCompile(`^https://www\.geostat\.ge/[a-z]{2}/[a-zA-Z-]+/?$`)
	datedTitlePattern      = regexp.MustCompile(`202[0-4]`)
	georgianMonthPattern   = regexp.MustCompile(`იანვარი|თებერვალი|მარტი|აპრილი|მაისი|ივნისი|ივლისი|აგვისტო|სექტემბერი|ოქტომბერი|ნოემბერი|დეკემბერი`)
	englishMonthPattern    = regexp.MustCompile(`January|February|March|April|May|June|July|August|September|October|November|December`)
)

// NewSearchResult builds a result and computes its relevance score
func NewSearchResult(title, link, snippet string) SearchResult {
	return SearchResult{
		Title:   title,
		Link:    link,
		Snippet: snippet,
		Score:   RelevanceScore(title, link),
	}
}

// RelevanceScore ranks geostat.ge pages. Category and portal pages score high,
// dated reports and PDFs score low, foreign sites are pushed far below zero.
func RelevanceScore(title, link string) int {
	if !strings.Contains(link, "geostat.ge") {
		return -10000
	}

	score := 100

	if strings.Contains(link, "/modules/categories/") {
		score += 30
	}
	if strings.Contains(link, "/page/") {
		score += 30
	}
	if subdomainPortalPattern.MatchString(link) {
		score += 40
	}
	if sectionPagePattern.MatchString(link) {
		score += 35
	}
	if len(link) < 80 {
		score += 20
	}

	if strings.Contains(link, ".pdf") {
		score -= 70
		if strings.Contains(link, "/media/") {
			score -= 40
		}
	}
	if datedTitlePattern.MatchString(title) {
		score -= 25
	}
	if georgianMonthPattern.MatchString(title) {
		score -= 30
	}
	if englishMonthPattern.MatchString(title) {
		score -= 30
	}

	return score
}
