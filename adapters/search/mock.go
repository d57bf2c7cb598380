package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
)

type mockPage struct {
	title    string
	link     string
	snippet  string
	keywords []string
}

// A handful of real geostat.ge pages so offline mode still produces links.
var mockCatalogue = []mockPage{
	{
		title:    "Inflation",
		link:     "https://www.geostat.ge/en/modules/categories/26/consumer-price-index-inflation",
		snippet:  "Consumer price index and annual inflation rate in Georgia.",
		keywords: []string{"inflation", "cpi", "price", "ინფლაცია", "ფასები"},
	},
	{
		title:    "Gross Domestic Product (GDP)",
		link:     "https://www.geostat.ge/en/modules/categories/23/gross-domestic-product-gdp",
		snippet:  "Quarterly and annual GDP at current and constant prices.",
		keywords: []string{"gdp", "economy", "growth", "მშპ", "ეკონომიკა"},
	},
	{
		title:    "Employment and Unemployment",
		link:     "https://www.geostat.ge/en/modules/categories/683/employment-unemployment",
		snippet:  "Labour force survey results, unemployment and employment rates.",
		keywords: []string{"unemployment", "employment", "labour", "უმუშევრობა", "დასაქმება"},
	},
	{
		title:    "Average monthly nominal earnings",
		link:     "https://www.geostat.ge/en/modules/categories/39/wages",
		snippet:  "Average monthly nominal earnings of employees by sector.",
		keywords: []string{"wage", "wages", "salary", "earnings", "ხელფასი", "ხელფასები"},
	},
	{
		title:    "Population",
		link:     "https://www.geostat.ge/en/modules/categories/41/population",
		snippet:  "Population by regions, births, deaths and migration.",
		keywords: []string{"population", "census", "demography", "მოსახლეობა"},
	},
	{
		title:    "External Trade",
		link:     "https://www.geostat.ge/en/modules/categories/35/external-trade",
		snippet:  "Exports and imports of Georgia by country and commodity.",
		keywords: []string{"trade", "export", "import", "ვაჭრობა", "ექსპორტი", "იმპორტი"},
	},
}

// MockSiteSearch answers from a fixed catalogue of pages
type MockSiteSearch struct {
	logger *zap.Logger
}

var _ repositories.SiteSearch = (*MockSiteSearch)(nil)

// NewMockSiteSearch creates a new offline search
func NewMockSiteSearch(logger *zap.Logger) *MockSiteSearch {
	return &MockSiteSearch{logger: logger}
}

// Search returns every catalogue page sharing a keyword with query
func (m *MockSiteSearch) Search(ctx context.Context, query string) ([]entities.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := strings.Fields(strings.ToLower(query))

	var results []entities.SearchResult
	for _, page := range mockCatalogue {
		if matchesAny(page.keywords, words) {
			results = append(results, entities.NewSearchResult(page.title, page.link, page.snippet))
		}
	}

	m.logger.Info("Mock search", zap.String("query", query), zap.Int("results", len(results)))
	return results, nil
}

func matchesAny(keywords, words []string) bool {
	for _, word := range words {
		for _, keyword := range keywords {
			if strings.HasPrefix(word, keyword) {
				return true
			}
		}
	}
	return false
}
