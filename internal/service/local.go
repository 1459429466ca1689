package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/roshaninfordham/safebiteai/internal/adapter/foodkeeper"
	"github.com/roshaninfordham/safebiteai/internal/adapter/openfda"
	"github.com/roshaninfordham/safebiteai/internal/adapter/openfoodfacts"
	"github.com/roshaninfordham/safebiteai/internal/adapter/sustainability"
	"github.com/roshaninfordham/safebiteai/internal/domain"
)

// findings collects what the local pipeline learned about a product.
type findings struct {
	productName string
	barcode     string
	product     *openfoodfacts.Product
	recall      openfda.RecallResult
	guidance    *foodkeeper.Record
	impact      sustainability.Result
	summary     string
}

func (f *findings) allergens() []string {
	if f.product == nil {
		return nil
	}
	return f.product.AllergensTags
}

// runLocal executes the deterministic provider pipeline.
func (s *Service) runLocal(ctx context.Context, sessionID string, req *domain.RunRequest) (*domain.SafetyReport, error) {
	f := &findings{productName: fallbackProductName(req), barcode: strings.TrimSpace(req.Barcode)}

	if f.barcode != "" {
		s.resolveBarcode(ctx, sessionID, f)
	}

	s.running(sessionID, domain.StepRecall, "Checking recalls")
	if s.providers.Recalls != nil {
		f.recall = s.providers.Recalls.CheckRecalls(ctx, f.productName)
	}
	if f.recall.HasRecall {
		s.completed(sessionID, domain.StepRecall, "Recall detected")
	} else {
		s.completed(sessionID, domain.StepRecall, "No recalls found")
	}

	s.running(sessionID, domain.StepSpoilage, "Checking storage guidance")
	if f.guidance == nil && s.providers.Guidance != nil {
		f.guidance = s.providers.Guidance.Lookup(f.productName)
	}
	if f.guidance != nil {
		s.completed(sessionID, domain.StepSpoilage, "Storage guidance found")
	} else {
		s.completed(sessionID, domain.StepSpoilage, "No storage guidance")
	}

	s.running(sessionID, domain.StepSustainability, "Scoring sustainability")
	f.impact = sustainability.Score(f.classificationText())
	s.completed(sessionID, domain.StepSustainability, "Sustainability scored")

	s.running(sessionID, domain.StepReasoning, "Summarizing findings")
	f.summary = s.summarize(ctx, f, req.EffectivePrefs().UserLanguage)
	s.completed(sessionID, domain.StepReasoning, "Summary ready")

	return assembleReport(sessionID, f), nil
}

// resolveBarcode looks the barcode up and, when found, seeds guidance from
// the product categories.
func (s *Service) resolveBarcode(ctx context.Context, sessionID string, f *findings) {
	s.running(sessionID, domain.StepBarcode, "Looking up barcode")
	if s.providers.Barcode == nil {
		s.emit(sessionID, domain.StepBarcode, "Barcode not found", domain.StepStatusError, "barcode lookup unavailable")
		return
	}

	product := s.providers.Barcode.Lookup(ctx, f.barcode)
	if !product.Found {
		s.emit(sessionID, domain.StepBarcode, "Barcode not found", domain.StepStatusError, product.Error)
		return
	}

	f.product = &product
	f.productName = product.ProductName
	if s.providers.Guidance != nil {
		key := product.Categories
		if key == "" {
			key = product.ProductName
		}
		f.guidance = s.providers.Guidance.Lookup(key)
	}
	s.completed(sessionID, domain.StepBarcode, "Barcode lookup complete")
}

func (f *findings) classificationText() string {
	if f.product != nil && f.product.Categories != "" {
		return f.product.Categories
	}
	return f.productName
}

func (s *Service) summarize(ctx context.Context, f *findings, language string) string {
	recall := "none"
	if f.recall.HasRecall {
		recall = f.recall.Details
	}
	allergens := strings.Join(f.allergens(), ",")
	if allergens == "" {
		allergens = "none"
	}
	storage := "n/a"
	if f.guidance != nil {
		storage = f.guidance.Notes
	}
	prompt := fmt.Sprintf("Product: %s. Recall: %s. Allergens: %s. Storage: %s.", f.productName, recall, allergens, storage)

	return s.summarizer.Summarize(ctx, prompt, language)
}

// fallbackProductName names the product before any lookup succeeds.
func fallbackProductName(req *domain.RunRequest) string {
	for _, candidate := range []string{req.RawText, req.Recipe, req.UserPrompt, req.Barcode} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return "Food item"
}
