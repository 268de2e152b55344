// internal/domain/discovery/websearch.go
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/shopping-agent/internal/config"
	"github.com/your-org/shopping-agent/internal/domain/product"
)

const customSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

// webSearchAdapter fetches live product data through the Google Custom
// Search API. When unconfigured it degrades to empty results instead of
// failing, so the engine keeps working on mock adapters alone.
type webSearchAdapter struct {
	apiKey string
	cx     string
	client *http.Client
	logger *logrus.Logger
}

// NewWebSearchAdapter creates the live search adapter.
func NewWebSearchAdapter(cfg *config.Config, logger *logrus.Logger) Adapter {
	return &webSearchAdapter{
		apiKey: cfg.Search.GoogleAPIKey,
		cx:     cfg.Search.GoogleSearchCX,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (w *webSearchAdapter) RetailerID() string   { return "web-search" }
func (w *webSearchAdapter) RetailerName() string { return "Web Search" }

type searchResponse struct {
	Items []searchItem `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type searchItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink"`
	Snippet     string `json:"snippet"`
	CacheID     string `json:"cacheId"`
	Pagemap     struct {
		CSEImage []struct {
			Src string `json:"src"`
		} `json:"cse_image"`
		Product []struct {
			Name        string `json:"name"`
			Price       string `json:"price"`
			Description string `json:"description"`
			Image       string `json:"image"`
		} `json:"product"`
		Offer []struct {
			Price        string `json:"price"`
			Availability string `json:"availability"`
		} `json:"offer"`
		Metatags []map[string]string `json:"metatags"`
	} `json:"pagemap"`
}

func (w *webSearchAdapter) Search(ctx context.Context, query string, filters Filters) ([]product.Product, error) {
	if w.apiKey == "" || w.cx == "" {
		w.logger.Debug("web search adapter not configured, returning no results")
		return []product.Product{}, nil
	}

	searchQuery := query
	if !strings.Contains(strings.ToLower(query), "buy") && !strings.Contains(strings.ToLower(query), "shop") {
		searchQuery = "buy " + query
	}
	if filters.MinPrice > 0 && filters.MaxPrice > 0 {
		searchQuery += fmt.Sprintf(" price $%.0f-$%.0f", filters.MinPrice, filters.MaxPrice)
	} else if filters.MaxPrice > 0 {
		searchQuery += fmt.Sprintf(" under $%.0f", filters.MaxPrice)
	}

	num := 10
	if filters.Limit > 0 && filters.Limit < num {
		num = filters.Limit
	}

	params := url.Values{}
	params.Set("key", w.apiKey)
	params.Set("cx", w.cx)
	params.Set("q", searchQuery)
	params.Set("num", strconv.Itoa(num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, customSearchEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	if decoded.Error != nil {
		return nil, fmt.Errorf("web search error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}

	products := make([]product.Product, 0, len(decoded.Items))
	for i, item := range decoded.Items {
		p := w.mapToProduct(item, i)

		// Zero-price products survive price filters; the price could not
		// be extracted, not "free".
		if filters.MinPrice > 0 && p.Price != 0 && p.Price < filters.MinPrice {
			continue
		}
		if filters.MaxPrice > 0 && p.Price != 0 && p.Price > filters.MaxPrice {
			continue
		}
		if filters.Category != "" {
			cat := strings.ToLower(filters.Category)
			if !strings.Contains(strings.ToLower(p.Name), cat) && !strings.Contains(strings.ToLower(p.Description), cat) {
				continue
			}
		}

		products = append(products, p)
	}

	return products, nil
}

func (w *webSearchAdapter) mapToProduct(item searchItem, index int) product.Product {
	domain := strings.TrimPrefix(strings.ToLower(item.DisplayLink), "www.")
	retailerSlug := strings.ReplaceAll(domain, ".", "-")
	retailer := product.Retailer{
		ID:       "web-" + retailerSlug,
		Name:     formatRetailerName(domain),
		Slug:     retailerSlug,
		LogoURL:  fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=64", item.DisplayLink),
		BaseURL:  "https://" + item.DisplayLink,
		IsActive: true,
	}

	name := item.Title
	description := item.Snippet
	if len(item.Pagemap.Product) > 0 {
		if item.Pagemap.Product[0].Name != "" {
			name = item.Pagemap.Product[0].Name
		}
		if item.Pagemap.Product[0].Description != "" {
			description = item.Pagemap.Product[0].Description
		}
	}
	if description == "" {
		description = item.Title
	}

	externalID := item.CacheID
	if externalID == "" {
		externalID = fmt.Sprintf("gcs-%d", index)
	}

	return product.Product{
		ID:           fmt.Sprintf("gcs-%d-%d", index, time.Now().UnixMilli()),
		ExternalID:   externalID,
		RetailerID:   retailer.ID,
		Name:         cleanProductTitle(name),
		Description:  description,
		Price:        extractPrice(item),
		Currency:     "USD",
		ImageURL:     extractImage(item),
		ProductURL:   item.Link,
		InStock:      checkAvailability(item),
		DeliveryDays: estimateDeliveryDays(domain),
		Retailer:     retailer,
	}
}

var (
	nonPricePattern     = regexp.MustCompile(`[^0-9.]`)
	snippetPricePattern = regexp.MustCompile(`\$([0-9,]+\.?\d*)`)
	siteSuffixPattern   = regexp.MustCompile(`\s*[-|]\s*[^-|]*$`)
)

// extractPrice digs a price out of structured product data, metatags, or the
// snippet text, in that order. Zero means no price could be extracted.
func extractPrice(item searchItem) float64 {
	if len(item.Pagemap.Offer) > 0 {
		if p, err := strconv.ParseFloat(nonPricePattern.ReplaceAllString(item.Pagemap.Offer[0].Price, ""), 64); err == nil && p > 0 {
			return p
		}
	}
	if len(item.Pagemap.Product) > 0 {
		if p, err := strconv.ParseFloat(nonPricePattern.ReplaceAllString(item.Pagemap.Product[0].Price, ""), 64); err == nil && p > 0 {
			return p
		}
	}
	if len(item.Pagemap.Metatags) > 0 {
		meta := item.Pagemap.Metatags[0]
		for _, key := range []string{"og:price:amount", "product:price:amount", "price"} {
			if raw, ok := meta[key]; ok {
				if p, err := strconv.ParseFloat(nonPricePattern.ReplaceAllString(raw, ""), 64); err == nil && p > 0 {
					return p
				}
			}
		}
	}
	if m := snippetPricePattern.FindStringSubmatch(item.Snippet); m != nil {
		if p, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			return p
		}
	}
	return 0
}

func extractImage(item searchItem) string {
	if len(item.Pagemap.CSEImage) > 0 && item.Pagemap.CSEImage[0].Src != "" {
		return item.Pagemap.CSEImage[0].Src
	}
	if len(item.Pagemap.Product) > 0 && item.Pagemap.Product[0].Image != "" {
		return item.Pagemap.Product[0].Image
	}
	if len(item.Pagemap.Metatags) > 0 {
		if img, ok := item.Pagemap.Metatags[0]["og:image"]; ok && img != "" {
			return img
		}
	}

	title := item.Title
	if len(title) > 20 {
		title = title[:20]
	}
	return "https://placehold.co/400x400/6366f1/ffffff?text=" + url.QueryEscape(title)
}

func checkAvailability(item searchItem) bool {
	if len(item.Pagemap.Offer) > 0 && item.Pagemap.Offer[0].Availability != "" {
		availability := strings.ToLower(item.Pagemap.Offer[0].Availability)
		return strings.Contains(availability, "instock") || strings.Contains(availability, "in stock")
	}
	// Assume in stock if not specified
	return true
}

func cleanProductTitle(title string) string {
	cleaned := siteSuffixPattern.ReplaceAllString(title, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return strings.TrimSpace(title)
	}
	return cleaned
}

var knownRetailers = map[string]string{
	"amazon.com":    "Amazon",
	"ebay.com":      "eBay",
	"walmart.com":   "Walmart",
	"target.com":    "Target",
	"bestbuy.com":   "Best Buy",
	"newegg.com":    "Newegg",
	"costco.com":    "Costco",
	"homedepot.com": "Home Depot",
	"lowes.com":     "Lowe's",
	"macys.com":     "Macy's",
	"nordstrom.com": "Nordstrom",
	"zappos.com":    "Zappos",
	"rei.com":       "REI",
	"nike.com":      "Nike",
	"adidas.com":    "Adidas",
}

func formatRetailerName(domain string) string {
	if name, ok := knownRetailers[domain]; ok {
		return name
	}

	base := strings.Split(domain, ".")[0]
	words := strings.Split(base, "-")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

func estimateDeliveryDays(domain string) int {
	switch {
	case strings.Contains(domain, "amazon"), strings.Contains(domain, "walmart"):
		return 2
	case strings.Contains(domain, "target"), strings.Contains(domain, "bestbuy"):
		return 3
	default:
		return 5
	}
}
