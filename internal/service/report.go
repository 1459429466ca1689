package service

import (
	"strings"

	"github.com/roshaninfordham/safebiteai/internal/adapter/openfda"
	"github.com/roshaninfordham/safebiteai/internal/adapter/openfoodfacts"
	"github.com/roshaninfordham/safebiteai/internal/domain"
)

// assembleReport builds the local pipeline report from its findings.
func assembleReport(sessionID string, f *findings) *domain.SafetyReport {
	allergens := f.allergens()
	score, flag := computeSafety(f.recall.HasRecall, allergens, f.guidance)

	report := &domain.SafetyReport{
		SessionID:           sessionID,
		ProductName:         f.productName,
		IngredientList:      []string{},
		AllergenRisk:        "No common allergens detected in data.",
		SafetyScore:         score,
		SafetyFlag:          flag,
		SustainabilityScore: f.impact.Score,
		SustainabilityFlag:  f.impact.Flag,
		ExplanationShort:    f.summary,
		ExplanationDetailed: "Keep refrigerated if perishable; follow standard food safety practices.",
		Alternatives:        []domain.Alternative{},
		NextSteps:           make([]string, 0, 2),
		Sources:             make([]domain.Source, 0, 2),
	}

	if f.product != nil {
		report.IngredientList = f.product.Ingredients()
	}
	if len(allergens) > 0 {
		report.AllergenRisk = "Potential allergens: " + strings.Join(allergens, ", ")
	}
	if f.guidance != nil {
		report.ExplanationDetailed = f.guidance.Notes
	}
	if domain.NeedsAlternatives(flag) {
		report.Alternatives = defaultAlternatives()
	}

	if f.recall.HasRecall {
		report.NextSteps = append(report.NextSteps, "Do not consume; check recall details.")
	} else {
		report.NextSteps = append(report.NextSteps, "Inspect packaging and consume within safe dates.")
	}
	if f.guidance != nil {
		report.NextSteps = append(report.NextSteps, f.guidance.Summary())
	} else {
		report.NextSteps = append(report.NextSteps, "Keep refrigerated if perishable.")
	}

	if f.product != nil {
		report.Sources = append(report.Sources, domain.Source{Title: "OpenFoodFacts", URI: openfoodfacts.ProductURL(f.barcode)})
	}
	report.Sources = append(report.Sources, domain.Source{Title: "openFDA", URI: openfda.SourceURL})

	return report
}

// mergeSources appends extra sources whose URI is not already cited.
func mergeSources(sources []domain.Source, extra ...domain.Source) []domain.Source {
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		seen[src.URI] = true
	}
	for _, src := range extra {
		if src.URI == "" || seen[src.URI] {
			continue
		}
		seen[src.URI] = true
		sources = append(sources, src)
	}
	return sources
}
