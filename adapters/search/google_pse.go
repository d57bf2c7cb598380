package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/geostat-assistant/server/domain/entities"
	"github.com/geostat-assistant/server/domain/repositories"
)

const defaultResultsPerQuery = 10

// GooglePSEConfig holds the Programmable Search Engine credentials
type GooglePSEConfig struct {
	APIKey   string
	EngineID string // the "cx" identifier
	Endpoint string // Optional: override for tests and proxies
	Results  int64  // Optional: results per call, at most 10
}

// GooglePSE implements SiteSearch with the Custom Search JSON API
type GooglePSE struct {
	service  *customsearch.Service
	engineID string
	results  int64
	logger   *zap.Logger
}

var _ repositories.SiteSearch = (*GooglePSE)(nil)

// NewGooglePSE creates a search client
func NewGooglePSE(ctx context.Context, config GooglePSEConfig, logger *zap.Logger) (*GooglePSE, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("programmable search API key is required")
	}
	if config.EngineID == "" {
		return nil, fmt.Errorf("programmable search engine id is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	service, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}

	results := config.Results
	if results <= 0 || results > defaultResultsPerQuery {
		results = defaultResultsPerQuery
	}

	return &GooglePSE{
		service:  service,
		engineID: config.EngineID,
		results:  results,
		logger:   logger,
	}, nil
}

// Search runs query and scores every returned item
func (g *GooglePSE) Search(ctx context.Context, query string) ([]entities.SearchResult, error) {
	g.logger.Info("Calling Google PSE API", zap.String("query", query))

	resp, err := g.service.Cse.List().
		Cx(g.engineID).
		Q(query).
		Num(g.results).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("programmable search request failed: %w", err)
	}

	results := make([]entities.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		results = append(results, entities.NewSearchResult(item.Title, item.Link, item.Snippet))
	}

	g.logger.Info("PSE API response received", zap.Int("items", len(results)))
	return results, nil
}
