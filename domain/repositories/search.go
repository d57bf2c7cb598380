package repositories

import (
	"context"

	"github.com/geostat-assistant/server/domain/entities"
)

// SiteSearch runs a web search restricted by the query itself (site: operator)
type SiteSearch interface {
	Search(ctx context.Context, query string) ([]entities.SearchResult, error)
}
