// Package openfoodfacts resolves barcodes against the Open Food Facts API.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/roshaninfordham/safebiteai/internal/adapter/httpx"
	"github.com/roshaninfordham/safebiteai/internal/logging"
)

// DefaultBaseURL is the public Open Food Facts endpoint.
const DefaultBaseURL = "https://world.openfoodfacts.org"

// ErrorCode is reported in Product.Error when the provider is unreachable.
const ErrorCode = "openfoodfacts_error"

// Product is the barcode lookup result. Found is false for unknown barcodes;
// Error is set when the provider could not be queried.
type Product struct {
	Found           bool     `json:"found"`
	ProductName     string   `json:"product_name,omitempty"`
	IngredientsText string   `json:"ingredients_text,omitempty"`
	AllergensTags   []string `json:"allergens_tags,omitempty"`
	Categories      string   `json:"categories,omitempty"`
	NutriScore      string   `json:"nutriscore,omitempty"`
	NovaGroup       int      `json:"nova_group,omitempty"`
	Error           string   `json:"error,omitempty"`
}

type apiResponse struct {
	Status  int `json:"status"`
	Product *struct {
		ProductName     string   `json:"product_name"`
		IngredientsText string   `json:"ingredients_text"`
		AllergensTags   []string `json:"allergens_tags"`
		Categories      string   `json:"categories"`
		NutriScore      string   `json:"nutriscore_grade"`
		NovaGroup       int      `json:"nova_group"`
	} `json:"product"`
}

// Client is the Open Food Facts client.
type Client struct {
	baseURL string
	http    *httpx.Client
	group   singleflight.Group
	logger  logging.Logger
}

// NewClient creates a new Open Food Facts client.
func NewClient(baseURL string, httpClient *httpx.Client, logger logging.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		logger:  logging.OrNop(logger),
	}
}

// ProductURL returns the public page for a barcode.
func ProductURL(barcode string) string {
	return DefaultBaseURL + "/product/" + url.PathEscape(barcode)
}

// Lookup resolves a barcode. Concurrent lookups of the same barcode share one
// request. Failures are folded into the result, never returned.
func (c *Client) Lookup(ctx context.Context, barcode string) Product {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{Found: false}
	}
	v, _, _ := c.group.Do(barcode, func() (interface{}, error) {
		return c.lookup(ctx, barcode), nil
	})
	return v.(Product)
}

func (c *Client) lookup(ctx context.Context, barcode string) Product {
	endpoint := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode))
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "SafeBite/1.0")
		return req, nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("barcode", barcode).Warn("open food facts lookup failed")
		return Product{Error: ErrorCode}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Product{Found: false}
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.WithError(err).WithField("barcode", barcode).Warn("failed to decode open food facts response")
		return Product{Error: ErrorCode}
	}
	if body.Product == nil {
		return Product{Found: false}
	}

	p := Product{
		Found:           true,
		ProductName:     body.Product.ProductName,
		IngredientsText: body.Product.IngredientsText,
		AllergensTags:   body.Product.AllergensTags,
		Categories:      body.Product.Categories,
		NutriScore:      body.Product.NutriScore,
		NovaGroup:       body.Product.NovaGroup,
	}
	if p.ProductName == "" {
		p.ProductName = "Unknown product"
	}
	if p.AllergensTags == nil {
		p.AllergensTags = []string{}
	}
	return p
}

// Ingredients splits the free-text ingredient list on commas and semicolons.
func (p Product) Ingredients() []string {
	fields := strings.FieldsFunc(p.IngredientsText, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
