package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roshaninfordham/safebiteai/internal/adapter/foodkeeper"
	"github.com/roshaninfordham/safebiteai/internal/adapter/news"
	"github.com/roshaninfordham/safebiteai/internal/adapter/openfda"
	"github.com/roshaninfordham/safebiteai/internal/adapter/openfoodfacts"
	"github.com/roshaninfordham/safebiteai/internal/adapter/sustainability"
)

// Tool names exposed to the model.
const (
	LookupProductByBarcode    = "lookup_product_by_barcode"
	CheckFoodRecalls          = "check_food_recalls"
	CheckSustainabilityImpact = "check_sustainability_impact"
	CheckFoodSafetyNews       = "check_food_safety_news"
	LookupStorageGuidance     = "lookup_storage_guidance"
)

// BarcodeLookup resolves product identity from a barcode.
type BarcodeLookup interface {
	Lookup(ctx context.Context, barcode string) openfoodfacts.Product
}

// RecallChecker searches active recalls.
type RecallChecker interface {
	CheckRecalls(ctx context.Context, query string) openfda.RecallResult
}

// GuidanceLookup finds storage guidance by category or name.
type GuidanceLookup interface {
	Lookup(query string) *foodkeeper.Record
}

// NewsScanner searches recent outbreak reporting.
type NewsScanner interface {
	Scan(ctx context.Context, query string) news.Result
}

// Providers are the adapters behind the builtin tools. Nil providers leave
// their tool unregistered.
type Providers struct {
	Barcode  BarcodeLookup
	Recalls  RecallChecker
	Guidance GuidanceLookup
	News     NewsScanner
}

// GuidanceResult is the storage guidance tool result.
type GuidanceResult struct {
	Found bool `json:"found"`
	*foodkeeper.Record
}

// RegisterBuiltins registers the food safety tools backed by p.
func RegisterBuiltins(r *Router, p Providers) error {
	tools := []Tool{{
		Name:        CheckSustainabilityImpact,
		Description: "Estimate sustainability impact score (0-100, higher is better) of a food category.",
		Parameters:  stringParams("category", "Food category or product name"),
		Exec: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args struct {
				Category string `json:"category"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			return json.Marshal(sustainability.Score(args.Category))
		},
	}}

	if p.Barcode != nil {
		tools = append(tools, Tool{
			Name:        LookupProductByBarcode,
			Description: "Get product details (name, ingredients, allergens, categories) from a barcode.",
			Parameters:  stringParams("barcode", "The barcode number"),
			Exec: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
				var args struct {
					Barcode string `json:"barcode"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				if strings.TrimSpace(args.Barcode) == "" {
					return nil, fmt.Errorf("%w: barcode is required", ErrInvalidArguments)
				}
				return json.Marshal(p.Barcode.Lookup(ctx, args.Barcode))
			},
		})
	}

	if p.Recalls != nil {
		tools = append(tools, Tool{
			Name:        CheckFoodRecalls,
			Description: "Check the FDA enforcement database for official food recalls.",
			Parameters:  stringParams("product_name", "Product name"),
			Exec: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
				var args struct {
					ProductName string `json:"product_name"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				if strings.TrimSpace(args.ProductName) == "" {
					return nil, fmt.Errorf("%w: product_name is required", ErrInvalidArguments)
				}
				return json.Marshal(p.Recalls.CheckRecalls(ctx, args.ProductName))
			},
		})
	}

	if p.Guidance != nil {
		tools = append(tools, Tool{
			Name:        LookupStorageGuidance,
			Description: "Look up fridge and freezer storage guidance for a food.",
			Parameters:  stringParams("name", "Food name or category"),
			Exec: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
				var args struct {
					Name string `json:"name"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				rec := p.Guidance.Lookup(args.Name)
				return json.Marshal(GuidanceResult{Found: rec != nil, Record: rec})
			},
		})
	}

	if p.News != nil {
		tools = append(tools, Tool{
			Name:        CheckFoodSafetyNews,
			Description: "Search recent news and social media for outbreaks, viruses or bacteria linked to a food.",
			Parameters:  stringParams("query", `The food item or topic to search for (e.g. "raw oysters outbreaks")`),
			Exec: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
				var args struct {
					Query string `json:"query"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return json.Marshal(p.News.Scan(ctx, args.Query))
			},
		})
	}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func decodeArgs(raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func stringParams(name, description string) json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			name: map[string]string{"type": "string", "description": description},
		},
		"required": []string{name},
	}
	data, _ := json.Marshal(schema)
	return data
}
