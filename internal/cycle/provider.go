package cycle

import (
	"context"
	"fmt"

	"github.com/wallpick/wallpick/internal/catalog"
	"github.com/wallpick/wallpick/internal/config"
	"github.com/wallpick/wallpick/internal/filter"
	"github.com/wallpick/wallpick/pkg/logger"
)

// Provider supplies and orders candidate items for a cycle.
type Provider interface {
	// Fetch gathers raw candidates. In subscribe mode these are the
	// configured ids hydrated with metadata; otherwise the workshop
	// listing under the snapshot's filters.
	Fetch(ctx context.Context, snap *config.Snapshot) ([]catalog.Item, error)
	// Rank filters and orders the candidates. Subscribe mode preserves
	// the configured order and skips the filter.
	Rank(items []catalog.Item, snap *config.Snapshot) []catalog.Item
	// ResolveCreator returns the normalized creator id of an item.
	ResolveCreator(ctx context.Context, itemID uint64) (string, error)
}

// CatalogProvider composes the workshop catalog client with the filter
// engine.
type CatalogProvider struct {
	client *catalog.Client
	log    logger.Logger
}

func NewCatalogProvider(client *catalog.Client, log logger.Logger) *CatalogProvider {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &CatalogProvider{client: client, log: log}
}

func filterConfig(snap *config.Snapshot) filter.Config {
	return filter.Config{
		ShowOnly:        snap.ShowOnly,
		Tags:            snap.Tags,
		Types:           snap.Types,
		Ages:            snap.Ages,
		Resolutions:     snap.Resolutions,
		ExcludeTags:     snap.ExcludeTags,
		ExcludeTitles:   snap.ExcludeTitles,
		ExcludeCreators: snap.ExcludeCreators,
		MinCandidates:   snap.MinCandidates,
	}
}

func (p *CatalogProvider) Fetch(ctx context.Context, snap *config.Snapshot) ([]catalog.Item, error) {
	if len(snap.SubscribeIDs) > 0 {
		return p.fetchSubscribed(ctx, snap)
	}

	fcfg := filterConfig(snap)
	spec := filter.Compile(fcfg)
	opts := catalog.CollectOptions{
		SortMethod:    snap.SortMethod,
		PageSize:      snap.NumPerPage,
		MaxPages:      snap.MaxPages,
		RequiredTags:  spec.RequiredQueryTags(fcfg),
		ExcludedTags:  snap.ExcludeTags,
		MinCandidates: snap.MinCandidates,
		Admit:         func(items []catalog.Item) int { return len(spec.Select(items)) },
	}

	if p.client.HasAPIKey() {
		return p.client.Collect(ctx, opts)
	}

	// No API key: scrape item ids out of the browse pages, then hydrate
	// through the keyless details endpoint.
	p.log.Info("catalog: no api key, falling back to html scrape")
	ids, err := p.client.ScrapeCollect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	details, err := p.client.Details(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]catalog.Item, 0, len(details))
	for _, id := range ids {
		if it, ok := details[id]; ok {
			items = append(items, it)
		}
	}
	return items, nil
}

// fetchSubscribed hydrates the configured id list. Ids the catalog does not
// know are kept as bare items so the download is still attempted.
func (p *CatalogProvider) fetchSubscribed(ctx context.Context, snap *config.Snapshot) ([]catalog.Item, error) {
	details, err := p.client.Details(ctx, snap.SubscribeIDs)
	if err != nil {
		p.log.Warning("catalog: hydrating subscribed ids: %s", err)
		details = nil
	}
	items := make([]catalog.Item, 0, len(snap.SubscribeIDs))
	for _, id := range snap.SubscribeIDs {
		if it, ok := details[id]; ok {
			items = append(items, it)
			continue
		}
		items = append(items, catalog.Item{ID: id})
	}
	return items, nil
}

func (p *CatalogProvider) Rank(items []catalog.Item, snap *config.Snapshot) []catalog.Item {
	if len(snap.SubscribeIDs) > 0 {
		return items
	}
	spec := filter.Compile(filterConfig(snap))
	return filter.Rank(items, spec, snap.SortMethod)
}

func (p *CatalogProvider) ResolveCreator(ctx context.Context, itemID uint64) (string, error) {
	details, err := p.client.Details(ctx, []uint64{itemID})
	if err != nil {
		return "", err
	}
	it, ok := details[itemID]
	if !ok {
		return "", fmt.Errorf("item %d not found in catalog", itemID)
	}
	id, ok := filter.NormalizeCreator(it.CreatorID)
	if !ok {
		return "", fmt.Errorf("item %d has no resolvable creator (%q)", itemID, it.CreatorID)
	}
	return id, nil
}

func normalizedCreator(it catalog.Item) (string, bool) {
	return filter.NormalizeCreator(it.CreatorID)
}

var _ Provider = (*CatalogProvider)(nil)
