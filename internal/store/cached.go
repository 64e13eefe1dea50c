package store

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/invoice-intake/backend/internal/metrics"
	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/query"
)

// Cached memoises Query pages of the wrapped store. Entries are keyed by the
// store revision, so a page computed before a mutation is never returned
// after it.
type Cached struct {
	Store
	pages *expirable.LRU[string, models.PaginatedInvoices]
}

// NewCached wraps inner with an LRU of size entries that expire after ttl.
func NewCached(inner Store, size int, ttl time.Duration) *Cached {
	return &Cached{
		Store: inner,
		pages: expirable.NewLRU[string, models.PaginatedInvoices](size, nil, ttl),
	}
}

func (c *Cached) Query(ctx context.Context, p query.Params) (models.PaginatedInvoices, error) {
	p = p.Normalize(query.DefaultDefaults)
	key := strconv.FormatUint(c.Store.Revision(), 10) + "|" + p.Key()

	if page, ok := c.pages.Get(key); ok {
		metrics.QueryCacheHitsTotal.Inc()
		return copyPage(page), nil
	}
	metrics.QueryCacheMissesTotal.Inc()

	page, err := c.Store.Query(ctx, p)
	if err != nil {
		return models.PaginatedInvoices{}, err
	}
	c.pages.Add(key, copyPage(page))
	return page, nil
}

// Len reports the number of cached pages.
func (c *Cached) Len() int {
	return c.pages.Len()
}

func copyPage(page models.PaginatedInvoices) models.PaginatedInvoices {
	out := page
	out.Data = make([]models.Invoice, len(page.Data))
	for i, inv := range page.Data {
		out.Data[i] = inv.Clone()
	}
	return out
}
