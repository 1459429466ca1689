package domain

import "encoding/json"

// Safety score cut lines.
const (
	UnsafeBelow  = 40
	CautionBelow = 70
)

// Alternative is a suggested replacement product.
type Alternative struct {
	Name            string `json:"name"`
	Why             string `json:"why"`
	TasteSimilarity string `json:"taste_similarity"`
}

// Source is a reference backing the assessment.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// SafetyReport is the terminal result of a run.
type SafetyReport struct {
	SessionID           string          `json:"session_id"`
	ProductName         string          `json:"product_name"`
	IngredientList      []string        `json:"ingredient_list"`
	AllergenRisk        string          `json:"allergen_risk"`
	SafetyScore         int             `json:"safety_score"`
	SafetyFlag          SafetyFlag      `json:"safety_flag"`
	SustainabilityScore int             `json:"sustainability_score"`
	SustainabilityFlag  string          `json:"sustainability_flag"`
	ExplanationShort    string          `json:"explanation_short"`
	ExplanationDetailed string          `json:"explanation_detailed"`
	Alternatives        []Alternative   `json:"alternatives"`
	NextSteps           []string        `json:"next_steps"`
	Sources             []Source        `json:"sources"`
	Trace               json.RawMessage `json:"trace,omitempty"`
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// FlagForScore maps a safety score to its flag.
func FlagForScore(score int) SafetyFlag {
	switch {
	case score < UnsafeBelow:
		return SafetyFlagUnsafe
	case score < CautionBelow:
		return SafetyFlagCaution
	default:
		return SafetyFlagLowRisk
	}
}

// NeedsAlternatives reports whether alternatives belong in a report with flag.
func NeedsAlternatives(flag SafetyFlag) bool {
	return flag == SafetyFlagUnsafe || flag == SafetyFlagCaution
}

// Normalize enforces the report invariants: clamped scores, a flag consistent
// with the safety score, no alternatives for low-risk items and non-nil lists.
func (r *SafetyReport) Normalize() {
	r.SafetyScore = ClampScore(r.SafetyScore)
	r.SustainabilityScore = ClampScore(r.SustainabilityScore)
	r.SafetyFlag = FlagForScore(r.SafetyScore)
	if !NeedsAlternatives(r.SafetyFlag) {
		r.Alternatives = []Alternative{}
	}
	if r.IngredientList == nil {
		r.IngredientList = []string{}
	}
	if r.Alternatives == nil {
		r.Alternatives = []Alternative{}
	}
	if r.NextSteps == nil {
		r.NextSteps = []string{}
	}
	if r.Sources == nil {
		r.Sources = []Source{}
	}
}
