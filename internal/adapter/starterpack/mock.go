package starterpack

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/roshaninfordham/safebiteai/internal/domain"
)

// MockRunHandler answers /run with a fixed report for local development.
func MockRunHandler(c echo.Context) error {
	var req domain.RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	return c.JSON(http.StatusOK, MockReport(&req, time.Now().UTC()))
}

// MockReport builds the canned backend report for req.
func MockReport(req *domain.RunRequest, now time.Time) *domain.SafetyReport {
	product := req.RawText
	if product == "" {
		product = req.UserPrompt
	}
	if product == "" {
		product = req.Barcode
	}
	if product == "" {
		product = "Unknown item"
	}
	name := []rune(product)
	if len(name) > 50 {
		name = name[:50]
	}

	return &domain.SafetyReport{
		SessionID:           "mock-" + uuid.NewString()[:6],
		ProductName:         string(name),
		IngredientList:      []string{"water", "salt", "spices"},
		AllergenRisk:        "Contains mock data only. Replace with real backend analysis.",
		SafetyScore:         78,
		SafetyFlag:          domain.SafetyFlagLowRisk,
		SustainabilityScore: 65,
		SustainabilityFlag:  "Moderate impact",
		ExplanationShort:    fmt.Sprintf("Mock assessment for %s.", product),
		ExplanationDetailed: fmt.Sprintf("This is a mock response generated locally at %s.", now.Format(time.RFC3339)),
		Alternatives: []domain.Alternative{
			{Name: "Alt A", Why: "Lower salt", TasteSimilarity: "8/10"},
			{Name: "Alt B", Why: "Organic option", TasteSimilarity: "7/10"},
		},
		NextSteps: []string{
			"Verify ingredients on label.",
			"Consult your dietician for personal restrictions.",
		},
		Sources: []domain.Source{
			{Title: "Mock source 1", URI: "https://example.com/mock1"},
			{Title: "Mock source 2", URI: "https://example.com/mock2"},
		},
	}
}
