package usecase

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
)

const (
	sitePrefix       = "site:geostat.ge "
	maxSnippetRunes  = 250
	maxRankedResults = 5
)

var portals = map[entities.Topic]string{
	entities.TopicEconomy:       "https://eap.geostat.ge",
	entities.TopicPrices:        "https://kaleidoscope.geostat.ge/",
	entities.TopicPopulation:    "https://census2024.geostat.ge/ka",
	entities.TopicGIS:           "https://gis.geostat.ge/geomap/index.html",
	entities.TopicGender:        "https://gender.geostat.ge/gender/index.php",
	entities.TopicEnvironment:   "https://environment.geostat.ge/",
	entities.TopicRegions:       "https://regions.geostat.ge/regions/",
	entities.TopicYouth:         "https://youth.geostat.ge/index.php?lang=ka",
	entities.TopicAutomobile:    "https://automobile.geostat.ge/ka/",
	entities.TopicAgriculture:   "https://agriculture.geostat.ge/",
	entities.TopicTourism:       "https://tourism.geostat.ge/",
	entities.TopicDisability:    "https://disability.geostat.ge/shshm/index.php?lang=ka",
	entities.TopicFDI:           "https://fdi.geostat.ge/",
	entities.TopicEnergy:        "https://energy.geostat.ge",
	entities.TopicInternational: "https://i-rating.geostat.ge/",
	entities.TopicTaxes:         "https://mytaxes.geostat.ge/mytaxes/",
	entities.TopicTrade:         "https://ex-trade.geostat.ge/",
	entities.TopicWages:         "https://salarium.geostat.ge/",
}

type portalDescription struct {
	georgian string
	english  string
}

var portalDescriptions = map[entities.Topic]portalDescription{
	entities.TopicInternational: {
		georgian: "საერთაშორისო შედარებები და გლობალური რეიტინგები",
		english:  "International comparisons and global rankings",
	},
	entities.TopicGIS: {
		georgian: "გეოგრაფიული ინფორმაციული სისტემა და რუქები",
		english:  "Geographic Information System and maps",
	},
	entities.TopicWages: {
		georgian: "ხელფასების კალკულატორი და შრომის ბაზრის ანალიზი",
		english:  "Salary calculator and labor market analysis",
	},
}

// PortalURL returns the dedicated data portal for topic, if there is one
func PortalURL(topic entities.Topic) (string, bool) {
	url, ok := portals[topic]
	return url, ok
}

// NavigationService points users at the geostat.ge page or portal that
// holds the data they asked for.
type NavigationService struct {
	llm    repositories.LargeLanguageModel
	search repositories.SiteSearch
	logger *zap.Logger
}

// NewNavigationService creates a new navigation service
func NewNavigationService(llm repositories.LargeLanguageModel, search repositories.SiteSearch, logger *zap.Logger) *NavigationService {
	return &NavigationService{
		llm:    llm,
		search: search,
		logger: logger,
	}
}

// HandleNavigation searches the site for the plan's queries and builds the
// reply from the topic portal and the model's pick among the results.
func (s *NavigationService) HandleNavigation(ctx context.Context, message string, plan entities.QueryPlan) string {
	s.logger.Info("Handling navigation", zap.String("topic", string(plan.Topic)))

	results := s.runSearch(ctx, plan.SearchQueries)
	portal, hasPortal := portals[plan.Topic]

	if len(results) == 0 && !hasPortal {
		s.logger.Warn("No results and no portal for topic", zap.String("topic", string(plan.Topic)))
		return noResultsMessage(plan.Language)
	}

	georgian := plan.Language.IsGeorgian()
	var response strings.Builder

	if hasPortal {
		if georgian {
			response.WriteString("📊 **რეკომენდებული პორტალი**: ")
		} else {
			response.WriteString("📊 **Recommended portal**: ")
		}
		response.WriteString(strings.ToUpper(string(plan.Topic)))
		response.WriteString("\n\n")
		response.WriteString(portal)
		response.WriteString("\n\n")

		description, ok := portalDescriptions[plan.Topic]
		switch {
		case ok && georgian:
			response.WriteString(description.georgian)
		case ok:
			response.WriteString(description.english)
		case georgian:
			response.WriteString("ინტერაქტიული ვიზუალიზაცია და მონაცემები.")
		default:
			response.WriteString("Interactive visualisations and data.")
		}
		response.WriteString("\n\n")
	}

	if len(results) > 0 {
		analysis := s.analyzeResults(ctx, message, results, plan.Language)
		response.WriteString(strings.TrimSpace(analysis))
	}

	return strings.TrimSpace(response.String())
}

func resultHeading(language entities.Language) string {
	if language.IsGeorgian() {
		return "📄 **შესაბამისი გვერდი:**"
	}
	return "📄 **Relevant Page:**"
}

// analyzeResults lets the model pick the best page. If the model is
// unavailable the top ranked link is used.
func (s *NavigationService) analyzeResults(ctx context.Context, question string, results []entities.SearchResult, language entities.Language) string {
	heading := resultHeading(language)
	prompt := buildAnalysisPrompt(question, formatResults(results), language, heading)

	analysis, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("Result analysis failed", zap.Error(err))
		s.logger.Info("Using fallback URL", zap.String("url", results[0].Link))
		return heading + "\n" + results[0].Link
	}

	return strings.TrimSpace(analysis)
}

// runSearch tries each planned query in order and stops at the first one
// that yields usable results. As a last resort the first word of the first
// query is searched alone.
func (s *NavigationService) runSearch(ctx context.Context, queries []string) []entities.SearchResult {
	if len(queries) == 0 {
		s.logger.Warn("No search queries provided")
		return nil
	}

	for i, query := range queries {
		q := sitePrefix + query
		s.logger.Debug("Search attempt", zap.Int("attempt", i+1), zap.String("query", q))

		if results := s.searchRanked(ctx, q); len(results) > 0 {
			s.logger.Info("Found results", zap.Int("attempt", i+1), zap.Int("count", len(results)))
			return results
		}
	}

	words := strings.Fields(queries[0])
	if len(words) > 0 && utf8.RuneCountInString(words[0]) > 2 {
		q := sitePrefix + words[0]
		s.logger.Debug("Search fallback on first word", zap.String("query", q))

		if results := s.searchRanked(ctx, q); len(results) > 0 {
			return results
		}
	}

	s.logger.Warn("No results found after all attempts")
	return nil
}

func (s *NavigationService) searchRanked(ctx context.Context, query string) []entities.SearchResult {
	results, err := s.search.Search(ctx, query)
	if err != nil {
		s.logger.Error("Site search failed", zap.Error(err), zap.String("query", query))
		return nil
	}
	return rankResults(results)
}

// rankResults drops non-positive scores, shortens long snippets and keeps
// the best few results, ties in their original order.
func rankResults(results []entities.SearchResult) []entities.SearchResult {
	ranked := make([]entities.SearchResult, 0, len(results))
	for _, result := range results {
		if result.Score <= 0 {
			continue
		}
		if utf8.RuneCountInString(result.Snippet) > maxSnippetRunes {
			result.Snippet = string([]rune(result.Snippet)[:maxSnippetRunes-3]) + "..."
		}
		ranked = append(ranked, result)
	}

	slices.SortStableFunc(ranked, func(a, b entities.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(ranked) > maxRankedResults {
		ranked = ranked[:maxRankedResults]
	}
	return ranked
}

func formatResults(results []entities.SearchResult) string {
	var sb strings.Builder
	for i, result := range results {
		fmt.Fprintf(&sb, "Result #%d (score: %d):\n", i+1, result.Score)
		fmt.Fprintf(&sb, "Title: %s\n", result.Title)
		fmt.Fprintf(&sb, "URL: %s\n", result.Link)
		fmt.Fprintf(&sb, "Description: %s\n\n", result.Snippet)
	}
	return sb.String()
}

func noResultsMessage(language entities.Language) string {
	if language.IsGeorgian() {
		return "ვერ მოიძებნა შესაბამისი გვერდები.\n\nსცადეთ:\n" +
			"- მთავარი კატეგორიები: https://www.geostat.ge/ka/modules/categories\n" +
			"- მონაცემთა პორტალები: https://www.geostat.ge/ka/page/data-portals"
	}
	return "Couldn't find relevant pages.\n\nTry:\n" +
		"- Main categories: https://www.geostat.ge/en/modules/categories\n" +
		"- Data portals: https://www.geostat.ge/en/page/data-portals"
}
