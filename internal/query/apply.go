package query

import (
	"slices"
	"strings"

	"github.com/invoice-intake/backend/internal/models"
)

// Apply runs the filter, sort and paginate pipeline over records and returns
// one page. records is not modified; the page holds its own slice.
func Apply(records []models.Invoice, p Params) models.PaginatedInvoices {
	p = p.Normalize(DefaultDefaults)
	needle := strings.ToLower(p.Search)

	filtered := make([]models.Invoice, 0, len(records))
	for _, inv := range records {
		if p.Status != nil && inv.Status != *p.Status {
			continue
		}
		if needle != "" && !MatchesSearch(inv, needle) {
			continue
		}
		filtered = append(filtered, inv)
	}

	slices.SortStableFunc(filtered, func(a, b models.Invoice) int {
		return Compare(p.SortBy, p.Order, &a, &b)
	})

	total := len(filtered)
	if p.Beyond(total) {
		return models.PaginatedInvoices{Data: []models.Invoice{}, Total: total, Page: p.Page, Limit: p.Limit}
	}
	start := p.Offset()
	end := min(start+p.Limit, total)

	return models.PaginatedInvoices{
		Data:  filtered[start:end],
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}
}

// MatchesSearch reports whether the lower-cased needle occurs in the file or
// client name, ignoring case.
func MatchesSearch(inv models.Invoice, needle string) bool {
	return strings.Contains(strings.ToLower(inv.FileName), needle) ||
		strings.Contains(strings.ToLower(inv.ClientName), needle)
}
