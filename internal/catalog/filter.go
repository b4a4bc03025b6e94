package catalog

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type PriceRange string

const (
	PriceAll      PriceRange = "all"
	PriceUnder50  PriceRange = "under50"
	Price50To100  PriceRange = "50to100"
	Price100To200 PriceRange = "100to200"
	PriceOver200  PriceRange = "over200"
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "priceAsc"
	SortPriceDesc SortOrder = "priceDesc"
	SortRating    SortOrder = "rating"
)

const AllCategories = "all"

// Filter is applied client-side to the fetched listing. MinRating 0 means any.
type Filter struct {
	Category   string     `json:"category"`
	PriceRange PriceRange `json:"priceRange"`
	MinRating  float64    `json:"minRating"`
	Sort       SortOrder  `json:"sort"`
	Search     string     `json:"search,omitempty"`
}

func DefaultFilter() Filter {
	return Filter{Category: AllCategories, PriceRange: PriceAll, Sort: SortNewest}
}

var (
	fifty      = decimal.NewFromInt(50)
	hundred    = decimal.NewFromInt(100)
	twoHundred = decimal.NewFromInt(200)
)

func (r PriceRange) contains(p decimal.Decimal) bool {
	switch r {
	case PriceUnder50:
		return p.LessThan(fifty)
	case Price50To100:
		return p.GreaterThanOrEqual(fifty) && p.LessThanOrEqual(hundred)
	case Price100To200:
		return p.GreaterThan(hundred) && p.LessThanOrEqual(twoHundred)
	case PriceOver200:
		return p.GreaterThan(twoHundred)
	}
	return true
}

// Apply filters and sorts products without touching the input slice.
// Filtering keeps fetch order, and every sort is stable.
func Apply(products []domain.Product, f Filter) []domain.Product {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.Category != "" && f.Category != AllCategories && p.Category != f.Category {
			continue
		}
		if !f.PriceRange.contains(p.Price) {
			continue
		}
		if f.MinRating > 0 && p.Rating < f.MinRating {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}

	switch f.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	}
	return out
}

// ParseFilter reads the filter from query parameters. Unknown values are rejected.
func ParseFilter(q url.Values) (Filter, error) {
	f := DefaultFilter()
	var bad []string

	if c := q.Get("category"); c != "" {
		f.Category = c
	}
	if r := q.Get("priceRange"); r != "" {
		switch pr := PriceRange(r); pr {
		case PriceAll, PriceUnder50, Price50To100, Price100To200, PriceOver200:
			f.PriceRange = pr
		default:
			bad = append(bad, "priceRange")
		}
	}
	if r := q.Get("rating"); r != "" && r != "all" {
		v, err := strconv.ParseFloat(r, 64)
		if err != nil || v < 0 || v > 5 {
			bad = append(bad, "rating")
		} else {
			f.MinRating = v
		}
	}
	if s := q.Get("sort"); s != "" {
		switch so := SortOrder(s); so {
		case SortNewest, SortPriceAsc, SortPriceDesc, SortRating:
			f.Sort = so
		default:
			bad = append(bad, "sort")
		}
	}
	f.Search = q.Get("search")

	if len(bad) > 0 {
		v := api.NewValidationError(bad...)
		v.Message = "invalid filter"
		return f, v
	}
	return f, nil
}

// Categories lists distinct categories in first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

type Page struct {
	Items      []domain.Product `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	Total      int              `json:"total"`
	TotalPages int              `json:"totalPages"`
}

// Paginate slices products into 1-based pages. Out of range pages are empty.
func Paginate(products []domain.Product, page, size int) Page {
	if size <= 0 {
		size = 12
	}
	if page <= 0 {
		page = 1
	}
	total := len(products)
	pages := (total + size - 1) / size

	start := (page - 1) * size
	items := []domain.Product{}
	if start < total {
		end := start + size
		if end > total {
			end = total
		}
		items = append(items, products[start:end]...)
	}
	return Page{Items: items, Page: page, PageSize: size, Total: total, TotalPages: pages}
}
